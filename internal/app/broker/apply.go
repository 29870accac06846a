// internal/app/broker/apply.go
package broker

import (
	"context"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/reconcile"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	"github.com/dalemusser/civihub/internal/app/system/phone"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// resolveKnownUsers maps every normalizable target phone to its existing
// user record. Phones the system has never seen are simply absent; the
// reconciler turns those into NewMember entries.
func (b *Broker) resolveKnownUsers(ctx context.Context, targets []reconcile.MemberDescriptor) (map[string]models.User, error) {
	var phones []string
	for _, t := range targets {
		if norm, ok := phone.Normalize(t.Phone); ok {
			phones = append(phones, norm)
		}
	}
	if len(phones) == 0 {
		return map[string]models.User{}, nil
	}
	return b.users.FindByPhones(ctx, phones)
}

// applyPlan executes a reconciliation plan against one group: mints user
// records for unknown phones, inserts memberships, applies role changes,
// performs removals, and records one log entry per effect. addChangeType
// is the change type stamped on member-added entries, so the join-code
// path can mark its additions distinctly.
//
// Returns the user IDs of every member added, paired with the log entry
// recorded for them, for meeting-notice queuing.
func (b *Broker) applyPlan(ctx context.Context, group models.Group, actorID primitive.ObjectID, plan reconcile.Plan, bundle *dispatch.Bundle, addChangeType string) ([]addedMember, error) {
	entries := make([]membershipstore.Entry, 0, len(plan.AddExisting)+len(plan.AddNew))
	names := make([]string, 0, cap(entries))

	for _, a := range plan.AddExisting {
		entries = append(entries, membershipstore.Entry{UserID: a.UserID, Role: a.Role})
		names = append(names, a.Name)
	}
	for _, n := range plan.AddNew {
		u, created, err := b.users.CreateMinimal(ctx, n.Phone, n.Name)
		if err != nil {
			return nil, err
		}
		if created {
			bundle.AddLog(group.ID, actorID, models.ChangeUserCreatedInDB, &u.ID,
				"user record created for "+phone.Display(n.Phone))
		}
		entries = append(entries, membershipstore.Entry{UserID: u.ID, Role: n.Role})
		names = append(names, n.Name)
	}

	if _, err := b.members.AddBatch(ctx, group.ID, entries); err != nil {
		return nil, err
	}

	added := make([]addedMember, 0, len(entries))
	for i, e := range entries {
		uid := e.UserID
		entry := bundle.AddLog(group.ID, actorID, addChangeType, &uid, names[i])
		added = append(added, addedMember{UserID: uid, LogID: entry.ID})
	}

	for _, rc := range plan.RoleChanges {
		if err := b.members.UpdateRole(ctx, group.ID, rc.UserID, rc.NewRole); err != nil {
			return nil, err
		}
		uid := rc.UserID
		bundle.AddLog(group.ID, actorID, models.ChangeMemberRoleChanged, &uid,
			rc.OldRole+" to "+rc.NewRole)
	}

	for _, uid := range plan.Removals {
		if err := b.removeOne(ctx, group.ID, actorID, uid, bundle); err != nil {
			return nil, err
		}
	}

	return added, nil
}

type addedMember struct {
	UserID primitive.ObjectID
	LogID  primitive.ObjectID
}

// removeOne deletes a single membership, logs it, and best-effort detaches
// the user from the group's push topics.
func (b *Broker) removeOne(ctx context.Context, groupID, actorID, userID primitive.ObjectID, bundle *dispatch.Bundle) error {
	if err := b.members.Remove(ctx, groupID, userID); err != nil {
		return err
	}
	uid := userID
	bundle.AddLog(groupID, actorID, models.ChangeMemberRemoved, &uid, "")
	if b.topics != nil {
		if err := b.topics.Unsubscribe(ctx, userID, groupID); err != nil {
			b.log.Warn("push topic unsubscribe failed",
				zap.String("group_id", groupID.Hex()),
				zap.String("user_id", userID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

// queueMeetingNotices adds one notification per upcoming meeting each new
// member should see. Meetings inherited from an ancestor group only count
// when the member does not already belong to that ancestor.
func (b *Broker) queueMeetingNotices(ctx context.Context, group models.Group, added []addedMember, bundle *dispatch.Bundle) error {
	if b.meetings == nil || len(added) == 0 {
		return nil
	}

	ancestors, err := b.ancestorIDs(ctx, group)
	if err != nil {
		return err
	}
	scope := append([]primitive.ObjectID{group.ID}, ancestors...)
	meetings, err := b.meetings.UpcomingForGroups(ctx, scope, b.now())
	if err != nil {
		return err
	}
	if len(meetings) == 0 {
		return nil
	}

	for _, m := range added {
		memberOf := make(map[primitive.ObjectID]bool, len(ancestors))
		for _, aid := range ancestors {
			ok, err := b.members.Exists(ctx, aid, m.UserID)
			if err != nil {
				return err
			}
			memberOf[aid] = ok
		}
		for _, mt := range reconcile.MeetingNotifications(meetings, group.ID, memberOf) {
			mid := mt.ID
			bundle.AddNotification(m.UserID, b.renderer.MeetingNotice(group, mt), m.LogID, &mid)
		}
	}
	return nil
}
