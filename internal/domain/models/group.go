// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a membership group on the platform.
//
// NOTE:
//   - Member lists are not embedded on Group. All membership is stored
//     in the group_memberships collection.
//   - Deactivation is a soft delete: Status flips to "inactive" and the
//     document is never removed.
//   - ParentID forms a tree; one level of "subgroup" semantics is used
//     throughout (meeting visibility, subgroup audit entries).
type Group struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"name_ci"`
	Description string              `bson:"description" json:"description"`
	ParentID    *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	Status string `bson:"status" json:"status"`

	DefaultReminderMinutes int    `bson:"default_reminder_minutes" json:"default_reminder_minutes"`
	DefaultLanguage        string `bson:"default_language" json:"default_language"`

	// Join token. The token is live iff JoinCode is non-empty and
	// JoinCodeExpiry is in the future. Closing sets JoinCode to "" and
	// JoinCodeExpiry to the close instant (never to a zero time, so a
	// closed token is distinguishable from one that was never opened).
	JoinCode       string    `bson:"join_code,omitempty" json:"join_code,omitempty"`
	JoinCodeExpiry time.Time `bson:"join_code_expiry,omitempty" json:"join_code_expiry,omitempty"`

	Discoverable   bool                `bson:"discoverable" json:"discoverable"`
	JoinApproverID *primitive.ObjectID `bson:"join_approver_id,omitempty" json:"join_approver_id,omitempty"`

	ImageKey string `bson:"image_key,omitempty" json:"image_key,omitempty"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Group lifecycle states. There is no reactivation operation: inactive is
// terminal for ordinary flows.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// JoinTokenLive reports whether the group's join token is usable at the
// given instant.
func (g Group) JoinTokenLive(now time.Time) bool {
	return g.JoinCode != "" && g.JoinCodeExpiry.After(now)
}
