// internal/app/features/groups/members.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
)

// ServeListMembers handles GET /groups/{groupID}/members.
func (h *Handler) ServeListMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.Broker.ListMembers(ctx, actorID, groupID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, members)
}

// addMembersRequest is the JSON body for POST /groups/{groupID}/members.
type addMembersRequest struct {
	Members []memberInput `json:"members"`
	AsAdmin bool          `json:"as_admin,omitempty"`
}

// addMembersResponse reports how many members were added and which
// descriptors were dropped for unusable phone numbers.
type addMembersResponse struct {
	Added   int           `json:"added"`
	Dropped []memberInput `json:"dropped,omitempty"`
}

// ServeAddMembers handles POST /groups/{groupID}/members.
func (h *Handler) ServeAddMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req addMembersRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	result, err := h.Broker.AddMembers(ctx, actorID, groupID, toDescriptors(req.Members), req.AsAdmin)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	resp := addMembersResponse{Added: result.Added}
	for _, d := range result.Dropped {
		resp.Dropped = append(resp.Dropped, memberInput{Phone: d.Phone, Name: d.Name, Role: d.Role})
	}
	h.respond(w, http.StatusOK, resp)
}

// removeMembersRequest is the JSON body for DELETE /groups/{groupID}/members.
type removeMembersRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// ServeRemoveMembers handles DELETE /groups/{groupID}/members.
func (h *Handler) ServeRemoveMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req removeMembersRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := parseIDs(req.MemberIDs)
	if err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed member id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.RemoveMembers(ctx, actorID, groupID, ids); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "removed"})
}

// updateMembersRequest is the JSON body for PUT /groups/{groupID}/members.
type updateMembersRequest struct {
	Members          []memberInput `json:"members"`
	CheckForDeletion bool          `json:"check_for_deletion,omitempty"`
}

// ServeUpdateMembers handles PUT /groups/{groupID}/members. The member list
// is the desired final state; removals only happen when check_for_deletion
// is set.
func (h *Handler) ServeUpdateMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req updateMembersRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if err := h.Broker.UpdateMembers(ctx, actorID, groupID, toDescriptors(req.Members), req.CheckForDeletion); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

// roleRequest is the JSON body for PUT /groups/{groupID}/members/{userID}/role.
type roleRequest struct {
	Role string `json:"role"`
}

// ServeUpdateRole handles PUT /groups/{groupID}/members/{userID}/role.
func (h *Handler) ServeUpdateRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	memberID, ok := h.urlID(w, r, "userID")
	if !ok {
		return
	}
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.UpdateMembershipRole(ctx, actorID, groupID, memberID, req.Role); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ServeUnsubscribe handles POST /groups/{groupID}/unsubscribe. The caller
// removes themself, so no group permission is required.
func (h *Handler) ServeUnsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.UnsubscribeMember(ctx, userID, groupID); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// joinRequest is the JSON body for POST /groups/{groupID}/join.
type joinRequest struct {
	Code string `json:"code"`
}

// ServeJoin handles POST /groups/{groupID}/join.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.AddMemberViaJoinCode(ctx, userID, groupID, req.Code); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "joined"})
}
