// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meetings")}
}

// UpcomingForGroups returns meetings starting after now on any of the
// given groups, soonest first. Callers pass a group plus its ancestor
// chain to pick up IncludeSubgroups meetings.
func (s *Store) UpcomingForGroups(ctx context.Context, groupIDs []primitive.ObjectID, now time.Time) ([]models.Meeting, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{
		"group_id":  bson.M{"$in": groupIDs},
		"starts_at": bson.M{"$gt": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}
