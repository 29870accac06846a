// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a platform user, keyed by normalized phone number.
//
// NOTE:
//   - Group membership is not embedded on User. Use the group_memberships
//     collection to discover a user's groups.
//   - Users can be minted implicitly during membership reconciliation when
//     a batch names a phone number the system has never seen. Such records
//     carry only a phone and (possibly empty) display name.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone      string             `bson:"phone" json:"phone"` // normalized, unique
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"`
	Language   string             `bson:"language,omitempty" json:"language,omitempty"`

	// SystemRole is "" for ordinary users and "admin" for platform admins.
	SystemRole string `bson:"system_role,omitempty" json:"system_role,omitempty"`

	// Staff accounts (console/API callers) additionally carry credentials.
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
