// internal/app/policy/grouppolicy/grouppolicy.go

// Package grouppolicy answers "may this user do this to this group" from
// the authoritative collections.
//
// Authorization rules:
//   - Platform admins pass every group permission check
//   - Everyone else must hold a membership whose role's permission list,
//     read from the group's role table, contains the permission
//   - Non-members are denied outright
package grouppolicy

import (
	"context"
	"errors"

	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	rolestore "github.com/dalemusser/civihub/internal/app/store/roles"
	userstore "github.com/dalemusser/civihub/internal/app/store/users"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Checker resolves permission checks against live membership and role
// data. It is read-only: policies never mutate.
type Checker struct {
	memberships *membershipstore.Store
	roles       *rolestore.Store
	users       *userstore.Store
}

func New(memberships *membershipstore.Store, roles *rolestore.Store, users *userstore.Store) *Checker {
	return &Checker{memberships: memberships, roles: roles, users: users}
}

// ValidateGroupPermission returns nil when the user may perform the
// permission in the group, and *authz.AccessDeniedError otherwise.
// Platform admins short-circuit past the membership lookup.
func (c *Checker) ValidateGroupPermission(ctx context.Context, userID, groupID primitive.ObjectID, perm authz.Permission) error {
	ok, err := c.HasGroupPermission(ctx, userID, groupID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return authz.Denied(userID, groupID, perm)
	}
	return nil
}

// HasGroupPermission is ValidateGroupPermission without the error
// wrapping, for callers that branch rather than abort.
func (c *Checker) HasGroupPermission(ctx context.Context, userID, groupID primitive.ObjectID, perm authz.Permission) (bool, error) {
	admin, err := c.IsSystemAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}

	m, err := c.memberships.Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	perms, err := c.roles.Permissions(ctx, groupID, m.Role)
	if errors.Is(err, rolestore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

// IsSystemAdmin reports whether the user holds the platform admin role.
func (c *Checker) IsSystemAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	role, err := c.users.SystemRole(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == authz.SystemRoleAdmin, nil
}

// MemberRole returns the user's role in the group, or "" for non-members.
func (c *Checker) MemberRole(ctx context.Context, userID, groupID primitive.ObjectID) (string, error) {
	m, err := c.memberships.Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
