// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a paid account that sponsors one or more groups and lifts
// the free-tier size limit for them.
type Account struct {
	ID              primitive.ObjectID   `bson:"_id" json:"id"`
	Name            string               `bson:"name" json:"name"`
	MaxSizePerGroup int                  `bson:"max_size_per_group" json:"max_size_per_group"`
	GroupIDs        []primitive.ObjectID `bson:"group_ids,omitempty" json:"group_ids,omitempty"`
	Status          string               `bson:"status" json:"status"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}
