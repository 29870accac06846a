// internal/domain/models/auditlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Change types recorded against a group. The set is closed: every mutation
// the broker performs maps to exactly one of these.
const (
	ChangeGroupAdded             = "group_added"
	ChangeSubgroupAdded          = "subgroup_added"
	ChangeGroupRemoved           = "group_removed"
	ChangeSubgroupRemoved        = "subgroup_removed"
	ChangeGroupRenamed           = "group_renamed"
	ChangeDescriptionChanged     = "description_changed"
	ChangeMemberAdded            = "group_member_added"
	ChangeMemberAddedViaJoinCode = "group_member_added_via_join_code"
	ChangeMemberRemoved          = "group_member_removed"
	ChangeMemberRoleChanged      = "member_role_changed"
	ChangePermissionsChanged     = "permissions_changed"
	ChangeTokenChanged           = "token_changed"
	ChangeParentLinked           = "parent_linked"
	ChangeDiscoverability        = "discoverability_changed"
	ChangeImageChanged           = "image_changed"
	ChangeOrganizerPromoted      = "organizer_promoted"
	ChangeMerge                  = "merge"
	ChangeUserCreatedInDB        = "created_in_db"
)

// AuditLogEntry is an immutable record of one change to one group.
// Entries are append-only: never updated, never deleted.
type AuditLogEntry struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID    primitive.ObjectID  `bson:"group_id" json:"group_id"`
	ActorID    primitive.ObjectID  `bson:"actor_id" json:"actor_id"`
	ChangeType string              `bson:"change_type" json:"change_type"`
	TargetID   *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}

// NotificationRequest asks the delivery layer to tell one user about one
// logged change. A request never exists without its originating log entry.
type NotificationRequest struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Message   string              `bson:"message" json:"message"`
	LogID     primitive.ObjectID  `bson:"log_id" json:"log_id"`
	MeetingID *primitive.ObjectID `bson:"meeting_id,omitempty" json:"meeting_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
