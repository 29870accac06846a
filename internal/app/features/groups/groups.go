// internal/app/features/groups/groups.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// createRequest is the JSON body for POST /groups.
type createRequest struct {
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	ParentID           string        `json:"parent_id,omitempty"`
	Members            []memberInput `json:"members,omitempty"`
	PermissionTemplate string        `json:"permission_template,omitempty"`
	ReminderMinutes    int           `json:"reminder_minutes,omitempty"`
	Language           string        `json:"language,omitempty"`
	OpenJoinToken      bool          `json:"open_join_token,omitempty"`
}

// ServeCreate handles POST /groups.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := broker.CreateParams{
		Name:               req.Name,
		Description:        req.Description,
		Members:            toDescriptors(req.Members),
		PermissionTemplate: req.PermissionTemplate,
		ReminderMinutes:    req.ReminderMinutes,
		Language:           req.Language,
		OpenJoinToken:      req.OpenJoinToken,
	}
	if req.ParentID != "" {
		pid, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed parent_id"})
			return
		}
		params.ParentID = &pid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	group, err := h.Broker.Create(ctx, actorID, params)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusCreated, group)
}

// ServeGet handles GET /groups/{groupID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	group, err := h.Broker.Load(ctx, groupID)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, group)
}

// deactivateRequest is the JSON body for POST /groups/{groupID}/deactivate.
type deactivateRequest struct {
	CheckWindow bool `json:"check_window"`
}

// ServeDeactivate handles POST /groups/{groupID}/deactivate.
func (h *Handler) ServeDeactivate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req deactivateRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.Deactivate(ctx, actorID, groupID, req.CheckWindow); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// editRequest is the JSON body for PATCH /groups/{groupID}. Absent fields
// leave the group untouched.
type editRequest struct {
	Name              *string  `json:"name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	ResetImage        bool     `json:"reset_image,omitempty"`
	Discoverable      *bool    `json:"discoverable,omitempty"`
	JoinApproverID    string   `json:"join_approver_id,omitempty"`
	CloseJoinToken    bool     `json:"close_join_token,omitempty"`
	RemoveMembers     []string `json:"remove_members,omitempty"`
	PromoteOrganizers []string `json:"promote_organizers,omitempty"`
}

// ServeEdit handles PATCH /groups/{groupID}.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}

	edits := broker.CombinedEdits{
		Name:           req.Name,
		Description:    req.Description,
		ResetImage:     req.ResetImage,
		Discoverable:   req.Discoverable,
		CloseJoinToken: req.CloseJoinToken,
	}
	if req.JoinApproverID != "" {
		aid, err := primitive.ObjectIDFromHex(req.JoinApproverID)
		if err != nil {
			apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed join_approver_id"})
			return
		}
		edits.JoinApproverID = &aid
	}
	var err error
	if edits.RemoveMembers, err = parseIDs(req.RemoveMembers); err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed remove_members id"})
		return
	}
	if edits.PromoteOrganizers, err = parseIDs(req.PromoteOrganizers); err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed promote_organizers id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.ApplyEdits(ctx, actorID, groupID, edits); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ServeLink handles POST /groups/{groupID}/link/{parentID}.
func (h *Handler) ServeLink(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	childID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}
	parentID, ok := h.urlID(w, r, "parentID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Broker.Link(ctx, actorID, childID, parentID); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"status": "linked"})
}

// mergeRequest is the JSON body for POST /groups/merge.
type mergeRequest struct {
	First          string `json:"first"`
	Second         string `json:"second"`
	LeaveActive    bool   `json:"leave_active,omitempty"`
	OrderSpecified bool   `json:"order_specified,omitempty"`
	CreateNew      bool   `json:"create_new,omitempty"`
	NewName        string `json:"new_name,omitempty"`
}

// ServeMerge handles POST /groups/merge.
func (h *Handler) ServeMerge(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req mergeRequest
	if !h.decode(w, r, &req) {
		return
	}
	firstID, err := primitive.ObjectIDFromHex(req.First)
	if err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed first group id"})
		return
	}
	secondID, err := primitive.ObjectIDFromHex(req.Second)
	if err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: "malformed second group id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	result, err := h.Broker.Merge(ctx, actorID, firstID, secondID, broker.MergeOptions{
		LeaveActive:    req.LeaveActive,
		OrderSpecified: req.OrderSpecified,
		CreateNew:      req.CreateNew,
		NewName:        req.NewName,
	})
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
