// internal/app/features/groups/token.go
package groups

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
)

// tokenRequest is the JSON body for the open and extend endpoints. A nil
// expiry means the token never expires.
type tokenRequest struct {
	Expiry *time.Time `json:"expiry,omitempty"`
}

// tokenResponse carries the join code back to the caller.
type tokenResponse struct {
	Code string `json:"code"`
}

// ServeOpenToken handles POST /groups/{groupID}/token/open.
func (h *Handler) ServeOpenToken(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	code, err := h.Broker.OpenJoinToken(ctx, actorID, groupID, req.Expiry)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, tokenResponse{Code: code})
}

// ServeExtendToken handles POST /groups/{groupID}/token/extend.
func (h *Handler) ServeExtendToken(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	code, err := h.Broker.ExtendJoinToken(ctx, actorID, groupID, req.Expiry)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, tokenResponse{Code: code})
}

// ServeCloseToken handles POST /groups/{groupID}/token/close.
func (h *Handler) ServeCloseToken(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.CloseJoinToken(ctx, actorID, groupID); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "closed"})
}

// permissionsRequest is the JSON body for PUT /groups/{groupID}/permissions.
// Keys are role names, values the complete permission list for that role.
type permissionsRequest struct {
	Permissions map[string][]string `json:"permissions"`
}

// ServeUpdatePermissions handles PUT /groups/{groupID}/permissions.
func (h *Handler) ServeUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req permissionsRequest
	if !h.decode(w, r, &req) {
		return
	}

	byRole := make(map[string][]authz.Permission, len(req.Permissions))
	for role, names := range req.Permissions {
		perms := make([]authz.Permission, 0, len(names))
		for _, n := range names {
			perms = append(perms, authz.Permission(n))
		}
		byRole[role] = perms
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.UpdateGroupPermissions(ctx, actorID, groupID, byRole); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}
