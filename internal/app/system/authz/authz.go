// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/civihub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the session user's system role (lowercased), name, Mongo
// ObjectID, and a found flag. If no user is present in context or the user
// ID is malformed, it returns "visitor", "", NilObjectID, false, so callers
// can trust that ok=true means a valid, authenticated user.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsSystemAdmin reports whether the current request's user holds the
// platform admin role.
func IsSystemAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == SystemRoleAdmin
}

// UserID returns the current user's ObjectID, or NilObjectID when not
// signed in.
func UserID(r *http.Request) primitive.ObjectID {
	_, _, uid, ok := UserCtx(r)
	if !ok {
		return primitive.NilObjectID
	}
	return uid
}
