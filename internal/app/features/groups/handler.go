// internal/app/features/groups/handler.go
package groups

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/reconcile"
	"github.com/dalemusser/civihub/internal/app/store/audit"
	groupstore "github.com/dalemusser/civihub/internal/app/store/groups"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the group mutation API backed by the broker. Groups is
// used directly only for discovery search; every mutation goes through
// the broker.
type Handler struct {
	Broker *broker.Broker
	Groups *groupstore.Store
	Audit  *audit.Store
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler bound to the broker, the group
// store, the durable audit store, and a logger.
func NewHandler(b *broker.Broker, groups *groupstore.Store, auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Broker: b,
		Groups: groups,
		Audit:  auditStore,
		Log:    logger,
	}
}

// memberInput is the wire shape for a described member.
type memberInput struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

func toDescriptors(in []memberInput) []reconcile.MemberDescriptor {
	out := make([]reconcile.MemberDescriptor, 0, len(in))
	for _, m := range in {
		out = append(out, reconcile.MemberDescriptor{
			Phone: m.Phone,
			Name:  m.Name,
			Role:  m.Role,
		})
	}
	return out
}

// actor returns the signed-in user's ID. On a missing session it writes a
// 401 response and returns ok=false. Routes mount behind RequireSignedIn,
// so this is a second line of defense.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	uid := authz.UserID(r)
	if uid.IsZero() {
		h.respond(w, http.StatusUnauthorized, map[string]string{
			"error": "not signed in",
			"code":  "unauthorized",
		})
		return primitive.NilObjectID, false
	}
	return uid, true
}

// urlID parses the named chi URL parameter as an ObjectID. On failure it
// writes a 400 response and returns ok=false.
func (h *Handler) urlID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// decode parses the request body as JSON into dst. On failure it writes a
// 400 response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed request body"})
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
