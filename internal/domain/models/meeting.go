// internal/domain/models/meeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting is a scheduled event attached to a group. This core only reads
// meetings, to decide whether a newly added member should be notified of
// something already on the calendar; scheduling itself lives elsewhere.
type Meeting struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	Subject  string             `bson:"subject" json:"subject"`
	StartsAt time.Time          `bson:"starts_at" json:"starts_at"`

	// IncludeSubgroups extends visibility to members of child groups.
	IncludeSubgroups bool `bson:"include_subgroups" json:"include_subgroups"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
