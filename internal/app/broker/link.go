// internal/app/broker/link.go
package broker

import (
	"context"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Link makes child a subgroup of parent. The actor needs the
// create-subgroup permission on the parent and update-details on the
// child. Both sides get a log entry.
func (b *Broker) Link(ctx context.Context, actorID, childID, parentID primitive.ObjectID) error {
	if childID == parentID {
		return &InvalidArgumentError{Reason: "a group cannot be its own parent"}
	}
	child, err := b.groups.GetByID(ctx, childID)
	if err != nil {
		return err
	}
	if _, err := b.groups.GetByID(ctx, parentID); err != nil {
		return err
	}
	if child.ParentID != nil && *child.ParentID == parentID {
		return nil
	}

	if err := b.perms.ValidateGroupPermission(ctx, actorID, parentID, authz.PermCreateSubgroup); err != nil {
		return err
	}
	if err := b.perms.ValidateGroupPermission(ctx, actorID, childID, authz.PermUpdateGroupDetails); err != nil {
		return err
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		pid := parentID
		if err := b.groups.SetParent(ctx, childID, &pid); err != nil {
			return err
		}
		cid := childID
		bundle.AddLog(childID, actorID, models.ChangeParentLinked, &pid, "")
		bundle.AddLog(parentID, actorID, models.ChangeSubgroupAdded, &cid, child.Name)
		return b.dispatch.Defer(ctx, bundle)
	})
}
