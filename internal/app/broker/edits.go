// internal/app/broker/edits.go
package broker

import (
	"context"
	"strings"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CombinedEdits is a batch of optional edits applied together, made for
// clients that queue changes offline and submit them in one round trip.
// Nil / zero fields are skipped; an edit that would change nothing writes
// no log entry.
type CombinedEdits struct {
	Name              *string
	Description       *string
	ResetImage        bool
	Discoverable      *bool
	JoinApproverID    *primitive.ObjectID
	CloseJoinToken    bool
	RemoveMembers     []primitive.ObjectID
	PromoteOrganizers []primitive.ObjectID
}

// ApplyEdits applies a combined-edit batch in one transaction, emitting
// one log entry per edit that actually changed something.
func (b *Broker) ApplyEdits(ctx context.Context, actorID, groupID primitive.ObjectID, edits CombinedEdits) error {
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermUpdateGroupDetails); err != nil {
		return err
	}
	if len(edits.RemoveMembers) > 0 {
		if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermDeleteGroupMember); err != nil {
			return err
		}
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		newName, newDesc := group.Name, group.Description
		rename, redescribe := false, false
		if edits.Name != nil {
			if n := strings.TrimSpace(htmlsanitize.Sanitize(*edits.Name)); n != "" && n != group.Name {
				newName, rename = n, true
			}
		}
		if edits.Description != nil {
			if d := htmlsanitize.Sanitize(*edits.Description); d != group.Description {
				newDesc, redescribe = d, true
			}
		}
		if rename || redescribe {
			if err := b.groups.UpdateInfo(ctx, groupID, newName, newDesc); err != nil {
				return err
			}
			if rename {
				bundle.AddLog(groupID, actorID, models.ChangeGroupRenamed, nil, group.Name+" to "+newName)
			}
			if redescribe {
				bundle.AddLog(groupID, actorID, models.ChangeDescriptionChanged, nil, "")
			}
		}

		if edits.ResetImage && group.ImageKey != "" {
			if err := b.groups.SetImageKey(ctx, groupID, ""); err != nil {
				return err
			}
			bundle.AddLog(groupID, actorID, models.ChangeImageChanged, nil, "image reset to default")
		}

		if edits.Discoverable != nil && *edits.Discoverable != group.Discoverable {
			if err := b.groups.SetDiscoverable(ctx, groupID, *edits.Discoverable, edits.JoinApproverID); err != nil {
				return err
			}
			desc := "group hidden"
			if *edits.Discoverable {
				desc = "group discoverable"
			}
			bundle.AddLog(groupID, actorID, models.ChangeDiscoverability, nil, desc)
		}

		if edits.CloseJoinToken && group.JoinTokenLive(b.now()) {
			desc := b.tokens.Close(&group, b.now())
			if err := b.groups.SetJoinToken(ctx, groupID, group.JoinCode, group.JoinCodeExpiry); err != nil {
				return err
			}
			bundle.AddLog(groupID, actorID, models.ChangeTokenChanged, nil, desc)
		}

		for _, uid := range edits.RemoveMembers {
			if uid == actorID {
				continue
			}
			exists, err := b.members.Exists(ctx, groupID, uid)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			if err := b.removeOne(ctx, groupID, actorID, uid, bundle); err != nil {
				return err
			}
		}

		for _, uid := range edits.PromoteOrganizers {
			m, err := b.members.Get(ctx, groupID, uid)
			if err != nil {
				return err
			}
			if m.Role == authz.RoleOrganizer {
				continue
			}
			if err := b.members.UpdateRole(ctx, groupID, uid, authz.RoleOrganizer); err != nil {
				return err
			}
			target := uid
			bundle.AddLog(groupID, actorID, models.ChangeOrganizerPromoted, &target, "")
		}
		return b.dispatch.Defer(ctx, bundle)
	})
}

// Rename changes the display name only.
func (b *Broker) Rename(ctx context.Context, actorID, groupID primitive.ObjectID, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return b.ApplyEdits(ctx, actorID, groupID, CombinedEdits{Name: &name})
}

// UpdateDescription changes the description only. An empty string clears
// it.
func (b *Broker) UpdateDescription(ctx context.Context, actorID, groupID primitive.ObjectID, desc string) error {
	return b.ApplyEdits(ctx, actorID, groupID, CombinedEdits{Description: &desc})
}

// SetDiscoverable flips whether the group shows up in public search, with
// an optional member who approves join requests.
func (b *Broker) SetDiscoverable(ctx context.Context, actorID, groupID primitive.ObjectID, discoverable bool, approverID *primitive.ObjectID) error {
	return b.ApplyEdits(ctx, actorID, groupID, CombinedEdits{Discoverable: &discoverable, JoinApproverID: approverID})
}
