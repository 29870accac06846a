// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/civihub/internal/app/store/users"
	"github.com/dalemusser/civihub/internal/app/system/auth"
	"github.com/dalemusser/civihub/internal/app/system/phone"
	"github.com/dalemusser/civihub/internal/app/system/ratelimit"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler authenticates users by phone or email plus password and
// establishes the session cookie.
type Handler struct {
	Users   *userstore.Store
	Limiter *ratelimit.LoginLimiter
	Log     *zap.Logger
}

func NewHandler(users *userstore.Store, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:   users,
		Limiter: limiter,
		Log:     logger,
	}
}

// loginRequest is the JSON body for POST /login. Identifier is a phone
// number in any accepted format, or an email address.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// ServeLogin handles POST /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	if h.Limiter != nil {
		if allowed, reason := h.Limiter.Check(r, req.Identifier); !allowed {
			h.Log.Warn("login rate limited",
				zap.String("ip", ratelimit.ClientIP(r)),
				zap.String("reason", reason))
			writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.lookup(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			// Same response as a bad password so identifiers can't be probed.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.Log.Error("login: user lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	role := "user"
	if user.SystemRole != "" {
		role = user.SystemRole
	}
	sessionUser := auth.SessionUser{
		ID:    user.ID.Hex(),
		Name:  user.FullName,
		Email: user.Email,
		Role:  role,
	}
	if err := auth.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("login: save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetIdentifier(req.Identifier)
	}
	h.Log.Info("user signed in", zap.String("user_id", user.ID.Hex()))

	_ = json.NewEncoder(w).Encode(loginResponse{
		UserID: user.ID.Hex(),
		Name:   user.FullName,
		Role:   role,
	})
}

// lookup resolves the identifier as a phone number when it normalizes,
// falling back to an email lookup.
func (h *Handler) lookup(ctx context.Context, identifier string) (models.User, error) {
	if normalized, ok := phone.Normalize(identifier); ok {
		u, err := h.Users.GetByPhone(ctx, normalized)
		if err == nil || !errors.Is(err, userstore.ErrNotFound) {
			return u, err
		}
	}
	return h.Users.GetByEmail(ctx, strings.ToLower(identifier))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
