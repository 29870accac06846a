// internal/app/system/authz/errors.go
package authz

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessDeniedError reports a failed permission check. It names the user,
// the group, and the permission that was required, so handlers can log a
// precise denial without reconstructing the context.
type AccessDeniedError struct {
	UserID     primitive.ObjectID
	GroupID    primitive.ObjectID
	Permission Permission
	Reason     string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("access denied: %s", e.Reason)
	}
	return fmt.Sprintf("access denied: user %s lacks %s in group %s",
		e.UserID.Hex(), e.Permission, e.GroupID.Hex())
}

// Denied builds the standard denial for a missing group permission.
func Denied(userID, groupID primitive.ObjectID, perm Permission) *AccessDeniedError {
	return &AccessDeniedError{UserID: userID, GroupID: groupID, Permission: perm}
}
