// internal/app/reconcile/reconcile.go

// Package reconcile turns a desired member set into concrete add / re-role /
// remove operations against a group's current memberships. Everything here
// is pure computation: callers resolve users and apply the resulting plan.
package reconcile

import (
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/app/system/phone"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode selects how much of the diff is computed.
type Mode int

const (
	// ModeCreation seeds a brand-new group: additions only, no removal or
	// re-role logic (there is nothing current to diff against).
	ModeCreation Mode = iota
	// ModeAddOnly adds missing members and leaves everyone else alone.
	ModeAddOnly
	// ModeFull computes additions, role changes, and removals.
	ModeFull
)

// MemberDescriptor describes one desired member. The phone number is the
// natural key; Role may be empty, meaning the caller's default.
type MemberDescriptor struct {
	Phone string
	Name  string
	Role  string
}

// Addition is a membership to create for an already-known user.
type Addition struct {
	UserID primitive.ObjectID
	Name   string
	Role   string
}

// NewMember is a membership whose user record must be minted first. Kept
// separate from Addition so callers and tests can see implicit user
// creation explicitly instead of it hiding inside a membership write.
type NewMember struct {
	Phone string // normalized
	Name  string
	Role  string
}

// RoleChange re-roles an existing membership.
type RoleChange struct {
	UserID  primitive.ObjectID
	OldRole string
	NewRole string
}

// Input is everything the planner needs. KnownUsers maps normalized phone
// numbers to existing user records for every phone the caller could
// resolve; phones absent from the map become NewMember entries.
type Input struct {
	Mode        Mode
	Current     []models.Membership
	Targets     []MemberDescriptor
	KnownUsers  map[string]models.User
	DefaultRole string
}

// Plan is the computed diff. Dropped holds target descriptors whose phone
// number would not normalize; they are filtered out rather than failing
// the batch, because partial success is the intended behavior for bulk
// member entry.
type Plan struct {
	AddExisting []Addition
	AddNew      []NewMember
	RoleChanges []RoleChange
	Removals    []primitive.ObjectID
	Dropped     []MemberDescriptor
}

// Compute builds the plan. Duplicate phone numbers inside Targets collapse
// to their first occurrence, so a batch can never yield two memberships
// for the same user.
func Compute(in Input) Plan {
	defaultRole := in.DefaultRole
	if defaultRole == "" {
		defaultRole = authz.RoleOrdinaryMember
	}

	currentByUser := make(map[primitive.ObjectID]models.Membership, len(in.Current))
	for _, m := range in.Current {
		currentByUser[m.UserID] = m
	}

	var plan Plan
	seenPhones := make(map[string]struct{}, len(in.Targets))
	covered := make(map[primitive.ObjectID]struct{}, len(in.Targets))

	for _, t := range in.Targets {
		norm, ok := phone.Normalize(t.Phone)
		if !ok {
			plan.Dropped = append(plan.Dropped, t)
			continue
		}
		if _, dup := seenPhones[norm]; dup {
			continue
		}
		seenPhones[norm] = struct{}{}

		role := t.Role
		if role == "" || !authz.ValidRole(role) {
			role = defaultRole
		}

		user, known := in.KnownUsers[norm]
		if !known {
			plan.AddNew = append(plan.AddNew, NewMember{Phone: norm, Name: t.Name, Role: role})
			continue
		}
		covered[user.ID] = struct{}{}

		existing, isMember := currentByUser[user.ID]
		if !isMember {
			plan.AddExisting = append(plan.AddExisting, Addition{UserID: user.ID, Name: t.Name, Role: role})
			continue
		}
		if in.Mode == ModeFull && t.Role != "" && authz.ValidRole(t.Role) && existing.Role != t.Role {
			plan.RoleChanges = append(plan.RoleChanges, RoleChange{
				UserID:  user.ID,
				OldRole: existing.Role,
				NewRole: t.Role,
			})
		}
	}

	if in.Mode == ModeFull {
		for _, m := range in.Current {
			if _, ok := covered[m.UserID]; !ok {
				plan.Removals = append(plan.Removals, m.UserID)
			}
		}
	}

	return plan
}

// MeetingNotifications selects, from the upcoming meetings visible to a
// group, the ones a newly added member should hear about. Meetings on the
// group itself always qualify. Meetings inherited from an ancestor (via
// IncludeSubgroups) qualify only when the new member is not already a
// member of that ancestor - otherwise they were notified when the meeting
// was called.
func MeetingNotifications(meetings []models.Meeting, groupID primitive.ObjectID, memberOfAncestor map[primitive.ObjectID]bool) []models.Meeting {
	var out []models.Meeting
	for _, m := range meetings {
		if m.GroupID == groupID {
			out = append(out, m)
			continue
		}
		if m.IncludeSubgroups && !memberOfAncestor[m.GroupID] {
			out = append(out, m)
		}
	}
	return out
}
