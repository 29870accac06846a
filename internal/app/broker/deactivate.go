// internal/app/broker/deactivate.go
package broker

import (
	"context"
	"strings"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Deactivate soft-deletes a group. With checkWindow=false only the
// creator may do it, and creatorship alone is the gate: creation does not
// auto-add the creator as a member, so the creator may hold no group role
// at all. With checkWindow=true anyone holding the update-details
// permission may, but only inside the configured window after creation,
// or at any time when the group is malformed (unnamed or two members or
// fewer). There is no reactivation.
func (b *Broker) Deactivate(ctx context.Context, actorID, groupID primitive.ObjectID, checkWindow bool) error {
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if checkWindow {
		if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermUpdateGroupDetails); err != nil {
			return err
		}
	}
	if err := b.deactivationAvailable(ctx, actorID, group, checkWindow); err != nil {
		return err
	}

	bundle := dispatch.NewBundle()
	err = b.txn.Run(ctx, func(ctx context.Context) error {
		return b.deactivateInTxn(ctx, actorID, group, bundle)
	})
	if err != nil {
		return err
	}
	return b.dispatch.Dispatch(ctx, bundle)
}

// deactivateInTxn flips the group inactive and records the logs. Shared
// with merge, which has already done its own permission checks and runs
// this as one of its separately committed steps.
func (b *Broker) deactivateInTxn(ctx context.Context, actorID primitive.ObjectID, group models.Group, bundle *dispatch.Bundle) error {
	if err := b.groups.SetStatus(ctx, group.ID, models.StatusInactive); err != nil {
		return err
	}
	bundle.AddLog(group.ID, actorID, models.ChangeGroupRemoved, nil, group.Name)
	if group.ParentID != nil {
		child := group.ID
		bundle.AddLog(*group.ParentID, actorID, models.ChangeSubgroupRemoved, &child, group.Name)
	}
	return nil
}

func (b *Broker) deactivationAvailable(ctx context.Context, actorID primitive.ObjectID, group models.Group, checkWindow bool) error {
	if !checkWindow {
		if group.CreatedBy != actorID {
			return &DeactivationNotAvailableError{GroupID: group.ID, Reason: "only the creator can deactivate"}
		}
		return nil
	}

	if b.now().Sub(group.CreatedAt) <= b.cfg.DeactivationWindow {
		return nil
	}

	malformed, err := b.isMalformed(ctx, group)
	if err != nil {
		return err
	}
	if malformed {
		return nil
	}
	return &DeactivationNotAvailableError{GroupID: group.ID, Reason: "deactivation window has passed"}
}

// isMalformed identifies abandoned or duplicate groups: no real name, or
// hardly any members. Such groups may be deactivated regardless of the
// window.
func (b *Broker) isMalformed(ctx context.Context, group models.Group) (bool, error) {
	if strings.TrimSpace(group.Name) == "" {
		return true, nil
	}
	count, err := b.members.CountByGroup(ctx, group.ID)
	if err != nil {
		return false, err
	}
	return count <= 2, nil
}
