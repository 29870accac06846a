// internal/app/broker/permissions.go
package broker

import (
	"context"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UpdateGroupPermissionsForRole rewrites one role's permission list.
// Writes to the organizer role always come back with the protected subset
// unioned in, whatever the caller sent, so a group can never lock out its
// own organizers.
func (b *Broker) UpdateGroupPermissionsForRole(ctx context.Context, actorID, groupID primitive.ObjectID, role string, perms []authz.Permission) error {
	if !authz.ValidRole(role) {
		return &ValidationError{Field: "role", Reason: "unknown role " + role}
	}
	for _, p := range perms {
		if !p.Valid() {
			return &ValidationError{Field: "permissions", Reason: "unknown permission " + string(p)}
		}
	}
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermChangePermissionTemplate); err != nil {
		return err
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		if err := b.roles.SetPermissions(ctx, groupID, role, perms); err != nil {
			return err
		}
		bundle.AddLog(groupID, actorID, models.ChangePermissionsChanged, nil, role)
		return b.dispatch.Defer(ctx, bundle)
	})
}

// UpdateGroupPermissions rewrites several roles in one call, one log per
// role written.
func (b *Broker) UpdateGroupPermissions(ctx context.Context, actorID, groupID primitive.ObjectID, byRole map[string][]authz.Permission) error {
	for role, perms := range byRole {
		if !authz.ValidRole(role) {
			return &ValidationError{Field: "role", Reason: "unknown role " + role}
		}
		for _, p := range perms {
			if !p.Valid() {
				return &ValidationError{Field: "permissions", Reason: "unknown permission " + string(p)}
			}
		}
	}
	if err := b.perms.ValidateGroupPermission(ctx, actorID, groupID, authz.PermChangePermissionTemplate); err != nil {
		return err
	}

	bundle := dispatch.NewBundle()
	return b.txn.Run(ctx, func(ctx context.Context) error {
		for role, perms := range byRole {
			if err := b.roles.SetPermissions(ctx, groupID, role, perms); err != nil {
				return err
			}
			bundle.AddLog(groupID, actorID, models.ChangePermissionsChanged, nil, role)
		}
		return b.dispatch.Defer(ctx, bundle)
	})
}
