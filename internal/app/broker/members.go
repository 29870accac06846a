// internal/app/broker/members.go
package broker

import (
	"context"
	"errors"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/reconcile"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddMembersResult reports what a batch add actually did.
type AddMembersResult struct {
	Added   int
	Dropped []reconcile.MemberDescriptor
}

// AddMembers adds the described members to the group. The ordinary path
// needs the add-member permission and passes the quota guard; the admin
// path needs the platform admin role and bypasses quota. Descriptors with
// unusable phone numbers are dropped, the rest succeed.
func (b *Broker) AddMembers(ctx context.Context, actorID, groupID primitive.ObjectID, members []reconcile.MemberDescriptor, isAdminCall bool) (AddMembersResult, error) {
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return AddMembersResult{}, err
	}

	if isAdminCall {
		admin, err := b.perms.IsSystemAdmin(ctx, actorID)
		if err != nil {
			return AddMembersResult{}, err
		}
		if !admin {
			return AddMembersResult{}, &authz.AccessDeniedError{UserID: actorID, GroupID: groupID, Reason: "admin call requires the platform admin role"}
		}
	} else if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermAddGroupMember); err != nil {
		return AddMembersResult{}, err
	}

	bundle := dispatch.NewBundle()
	var result AddMembersResult

	err = b.txn.Run(ctx, func(ctx context.Context) error {
		current, err := b.members.ListByGroup(ctx, groupID, "")
		if err != nil {
			return err
		}
		known, err := b.resolveKnownUsers(ctx, members)
		if err != nil {
			return err
		}
		plan := reconcile.Compute(reconcile.Input{
			Mode:       reconcile.ModeAddOnly,
			Current:    current,
			Targets:    members,
			KnownUsers: known,
		})
		result.Dropped = plan.Dropped

		wanted := len(plan.AddExisting) + len(plan.AddNew)
		if !isAdminCall {
			ok, remaining, err := b.quota.CanAdd(ctx, groupID, wanted)
			if err != nil {
				return err
			}
			if !ok {
				return &GroupSizeLimitExceededError{GroupID: groupID, Requested: wanted, Remaining: remaining}
			}
		}

		added, err := b.applyPlan(ctx, group, actorID, plan, bundle, models.ChangeMemberAdded)
		if err != nil {
			return err
		}
		result.Added = len(added)
		if err := b.queueMeetingNotices(ctx, group, added, bundle); err != nil {
			return err
		}
		return b.dispatch.Defer(ctx, bundle)
	})
	if err != nil {
		return AddMembersResult{}, err
	}
	return result, nil
}

// RemoveMembers removes the given members. The actor's own ID is silently
// stripped from the set; self-removal goes through UnsubscribeMember.
func (b *Broker) RemoveMembers(ctx context.Context, actorID, groupID primitive.ObjectID, memberIDs []primitive.ObjectID) error {
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermDeleteGroupMember); err != nil {
		return err
	}

	targets := memberIDs[:0:0]
	for _, id := range memberIDs {
		if id != actorID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		for _, uid := range targets {
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
		return b.dispatch.Defer(ctx, bundle)
	})
}

// UnsubscribeMember removes the caller's own membership. No permission
// check: leaving a group is always allowed.
func (b *Broker) UnsubscribeMember(ctx context.Context, userID, groupID primitive.ObjectID) error {
	exists, err := b.members.Exists(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	bundle := dispatch.NewBundle()
	err = b.txn.Run(ctx, func(ctx context.Context) error {
		return b.removeOne(ctx, groupID, userID, userID, bundle)
	})
	if err != nil {
		return err
	}
	return b.dispatch.Dispatch(ctx, bundle)
}

// UpdateMembers reconciles the group against a full target member set.
// Additions are quota-checked; role differences are applied one by one;
// members missing from the target are removed only when checkForDeletion
// is set, which also demands the delete-member permission. Without the
// flag, missing members are left untouched.
func (b *Broker) UpdateMembers(ctx context.Context, actorID, groupID primitive.ObjectID, targets []reconcile.MemberDescriptor, checkForDeletion bool) error {
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermAddGroupMember); err != nil {
		return err
	}
	if checkForDeletion {
		if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermDeleteGroupMember); err != nil {
			return err
		}
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		current, err := b.members.ListByGroup(ctx, groupID, "")
		if err != nil {
			return err
		}
		known, err := b.resolveKnownUsers(ctx, targets)
		if err != nil {
			return err
		}
		plan := reconcile.Compute(reconcile.Input{
			Mode:       reconcile.ModeFull,
			Current:    current,
			Targets:    targets,
			KnownUsers: known,
		})
		if !checkForDeletion {
			plan.Removals = nil
		}
		// The actor never removes themselves through reconciliation.
		kept := plan.Removals[:0]
		for _, uid := range plan.Removals {
			if uid != actorID {
				kept = append(kept, uid)
			}
		}
		plan.Removals = kept

		wanted := len(plan.AddExisting) + len(plan.AddNew)
		if wanted > 0 {
			ok, remaining, err := b.quota.CanAdd(ctx, groupID, wanted)
			if err != nil {
				return err
			}
			if !ok {
				return &GroupSizeLimitExceededError{GroupID: groupID, Requested: wanted, Remaining: remaining}
			}
		}

		added, err := b.applyPlan(ctx, group, actorID, plan, bundle, models.ChangeMemberAdded)
		if err != nil {
			return err
		}
		if err := b.queueMeetingNotices(ctx, group, added, bundle); err != nil {
			return err
		}
		return b.dispatch.Defer(ctx, bundle)
	})
}

// UpdateMembershipRole changes one member's role. Changing your own role
// is always rejected; otherwise the actor needs the update-details
// permission or the platform admin role.
func (b *Broker) UpdateMembershipRole(ctx context.Context, actorID, groupID, memberID primitive.ObjectID, role string) error {
	if memberID == actorID {
		return &InvalidArgumentError{Reason: "a user cannot change their own role"}
	}
	if !authz.ValidRole(role) {
		return &ValidationError{Field: "role", Reason: "unknown role " + role}
	}

	allowed, err := b.perms.HasGroupPermission(ctx, actorID, groupID, authz.PermUpdateGroupDetails)
	if err != nil {
		return err
	}
	if !allowed {
		admin, err := b.perms.IsSystemAdmin(ctx, actorID)
		if err != nil {
			return err
		}
		if !admin {
			return authz.Denied(actorID, groupID, authz.PermUpdateGroupDetails)
		}
	}

	current, err := b.members.Get(ctx, groupID, memberID)
	if err != nil {
		return err
	}
	if current.Role == role {
		return nil
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		if err := b.members.UpdateRole(ctx, groupID, memberID, role); err != nil {
			return err
		}
		uid := memberID
		bundle.AddLog(groupID, actorID, models.ChangeMemberRoleChanged, &uid, current.Role+" to "+role)
		return b.dispatch.Defer(ctx, bundle)
	})
}

// AddMemberViaJoinCode adds a user who presented the group's join code.
// The code must match a live token; quota still applies. Already being a
// member is not an error. Stand-alone operation: the bundle is dispatched
// with the call.
func (b *Broker) AddMemberViaJoinCode(ctx context.Context, userID, groupID primitive.ObjectID, code string) error {
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !b.tokens.Matches(group, code, b.now()) {
		return &InvalidTokenError{GroupID: groupID}
	}

	exists, err := b.members.Exists(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ok, remaining, err := b.quota.CanAdd(ctx, groupID, 1)
	if err != nil {
		return err
	}
	if !ok {
		return &GroupSizeLimitExceededError{GroupID: groupID, Requested: 1, Remaining: remaining}
	}

	bundle := dispatch.NewBundle()
	err = b.txn.Run(ctx, func(ctx context.Context) error {
		err := b.members.Add(ctx, groupID, userID, authz.RoleOrdinaryMember, "")
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			return nil
		}
		if err != nil {
			return err
		}
		uid := userID
		entry := bundle.AddLog(groupID, userID, models.ChangeMemberAddedViaJoinCode, &uid, "")
		return b.queueMeetingNotices(ctx, group, []addedMember{{UserID: userID, LogID: entry.ID}}, bundle)
	})
	if err != nil {
		return err
	}
	return b.dispatch.Dispatch(ctx, bundle)
}
