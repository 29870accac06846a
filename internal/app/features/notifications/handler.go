// internal/app/features/notifications/handler.go

// Package notifications serves the signed-in user's queued notification
// feed. Entries are written by the group-mutation dispatch pipeline; this
// feature only reads them.
package notifications

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/store/audit"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/paging"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the notification feed.
type Handler struct {
	Audit *audit.Store
	Log   *zap.Logger
}

// NewHandler constructs a notifications Handler.
func NewHandler(auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{Audit: auditStore, Log: logger}
}

// ServeList handles GET /notifications for the signed-in user, oldest
// first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid := authz.UserID(r)
	if uid.IsZero() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "not signed in",
			"code":  "unauthorized",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	notes, err := h.Audit.PendingNotificationsForUser(ctx, uid, paging.Limit(r))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(notes)
}
