// internal/app/store/accounts/accountstore.go
package accountstore

import (
	"context"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// FindAccountForGroup returns the active paid account sponsoring a group,
// or nil when the group is on the free tier. Satisfies quota.AccountLookup.
func (s *Store) FindAccountForGroup(ctx context.Context, groupID primitive.ObjectID) (*models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, bson.M{
		"group_ids": groupID,
		"status":    models.StatusActive,
	}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AttachGroup records that an account sponsors a group.
func (s *Store) AttachGroup(ctx context.Context, accountID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, accountID, bson.M{
		"$addToSet": bson.M{"group_ids": groupID},
	})
	return err
}
