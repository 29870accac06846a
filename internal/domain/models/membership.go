// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id), enforced by a unique index.
type Membership struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`

	// Role is one of authz.RoleOrganizer, authz.RoleCommittee,
	// authz.RoleOrdinaryMember.
	Role string `bson:"role" json:"role"`

	Alias  string   `bson:"alias,omitempty" json:"alias,omitempty"`
	Topics []string `bson:"topics,omitempty" json:"topics,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
