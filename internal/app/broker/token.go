// internal/app/broker/token.go
package broker

import (
	"context"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OpenJoinToken opens the group's join token, or extends it if one is
// already live (the existing code is kept). A nil expiry means open until
// explicitly closed. Returns the active code.
func (b *Broker) OpenJoinToken(ctx context.Context, actorID, groupID primitive.ObjectID, expiry *time.Time) (string, error) {
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermUpdateGroupDetails); err != nil {
		return "", err
	}
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}

	bundle := dispatch.NewBundle()
	err = b.txn.Run(ctx, func(ctx context.Context) error {
		desc := b.tokens.Open(&group, expiry, b.now())
		if err := b.groups.SetJoinToken(ctx, groupID, group.JoinCode, group.JoinCodeExpiry); err != nil {
			return err
		}
		bundle.AddLog(groupID, actorID, models.ChangeTokenChanged, nil, desc)
		return b.dispatch.Defer(ctx, bundle)
	})
	if err != nil {
		return "", err
	}
	return group.JoinCode, nil
}

// ExtendJoinToken pushes a live token's expiry out. Same merge path as
// OpenJoinToken: a dead token gets a fresh code instead.
func (b *Broker) ExtendJoinToken(ctx context.Context, actorID, groupID primitive.ObjectID, expiry *time.Time) (string, error) {
	return b.OpenJoinToken(ctx, actorID, groupID, expiry)
}

// CloseJoinToken closes the group's join token.
func (b *Broker) CloseJoinToken(ctx context.Context, actorID, groupID primitive.ObjectID) error {
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermUpdateGroupDetails); err != nil {
		return err
	}
	group, err := b.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		desc := b.tokens.Close(&group, b.now())
		if err := b.groups.SetJoinToken(ctx, groupID, group.JoinCode, group.JoinCodeExpiry); err != nil {
			return err
		}
		bundle.AddLog(groupID, actorID, models.ChangeTokenChanged, nil, desc)
		return b.dispatch.Defer(ctx, bundle)
	})
}
