// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civihub/internal/app/system/authz"
	"github.com/dalemusser/civihub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	errBadRole = errors.New("role must be organizer, committee, or member")

	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrNotFound            = errors.New("membership not found")
)

// Add creates one membership. The unique (group_id, user_id) index is the
// authority on duplicates.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role, alias string) error {
	if !authz.ValidRole(role) {
		return errBadRole
	}
	doc := bson.M{
		"group_id":   groupID,
		"user_id":    userID,
		"role":       role,
		"created_at": time.Now().UTC(),
	}
	if alias != "" {
		doc["alias"] = alias
	}
	_, err := s.c.InsertOne(ctx, doc)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// Entry is one membership to create in a batch.
type Entry struct {
	UserID primitive.ObjectID
	Role   string
	Alias  string
}

// AddBatchResult carries counts from a batch add.
type AddBatchResult struct {
	Added      int
	Duplicates int
}

// AddBatch inserts many memberships at once. Duplicates are counted, not
// errors: inserts run unordered so every non-duplicate lands even when some
// entries collide with existing members.
func (s *Store) AddBatch(ctx context.Context, groupID primitive.ObjectID, entries []Entry) (AddBatchResult, error) {
	if len(entries) == 0 {
		return AddBatchResult{}, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		if !authz.ValidRole(e.Role) {
			return AddBatchResult{}, errBadRole
		}
		doc := bson.M{
			"group_id":   groupID,
			"user_id":    e.UserID,
			"role":       e.Role,
			"created_at": now,
		}
		if e.Alias != "" {
			doc["alias"] = e.Alias
		}
		docs = append(docs, doc)
	}

	opts := options.InsertMany().SetOrdered(false)
	result, err := s.c.InsertMany(ctx, docs, opts)

	added := 0
	if result != nil {
		added = len(result.InsertedIDs)
	}
	res := AddBatchResult{Added: added, Duplicates: len(entries) - added}

	if err != nil {
		if bulkErr, ok := err.(mongo.BulkWriteException); ok {
			for _, we := range bulkErr.WriteErrors {
				if we.Code != 11000 {
					return res, err
				}
			}
			// All failures were duplicate keys - expected.
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// Remove deletes the membership for (groupID, userID).
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

// UpdateRole re-roles one membership in place.
func (s *Store) UpdateRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if !authz.ValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAlias changes the member's display alias within the group.
func (s *Store) UpdateAlias(ctx context.Context, groupID, userID primitive.ObjectID, alias string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"alias": alias}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the membership for (groupID, userID).
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, ErrNotFound
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Exists checks whether (groupID, userID) is a membership.
func (s *Store) Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByGroup returns all memberships for a group, optionally filtered by
// role ("" means all).
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"group_id": groupID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByUser returns all of a user's memberships.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByGroup returns the group's membership count.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}

// DeleteByGroup removes all memberships for a group. Returns the number of
// documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
