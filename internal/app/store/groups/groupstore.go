// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("group not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.Status == "" {
		g.Status = models.StatusActive
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// UpdateInfo renames and/or re-describes a group. A blank name is ignored;
// the description can be cleared (set to empty).
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc string) error {
	set := bson.M{
		"updated_at":  time.Now().UTC(),
		"description": desc,
	}
	if strings.TrimSpace(name) != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// SetStatus flips the group's lifecycle state (soft delete on "inactive").
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SetParent points the group at a new parent (nil detaches it).
func (s *Store) SetParent(ctx context.Context, id primitive.ObjectID, parentID *primitive.ObjectID) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if parentID == nil {
		update["$unset"] = bson.M{"parent_id": ""}
	} else {
		set["parent_id"] = *parentID
	}
	_, err := s.c.UpdateByID(ctx, id, update)
	return err
}

// SetJoinToken persists the token fields produced by the join-token
// manager. An empty code stores as an absent field.
func (s *Store) SetJoinToken(ctx context.Context, id primitive.ObjectID, code string, expiry time.Time) error {
	set := bson.M{
		"join_code_expiry": expiry,
		"updated_at":       time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if code == "" {
		update["$unset"] = bson.M{"join_code": ""}
	} else {
		set["join_code"] = code
	}
	_, err := s.c.UpdateByID(ctx, id, update)
	return err
}

// FindByJoinCode looks up the active group currently holding a live join
// code.
func (s *Store) FindByJoinCode(ctx context.Context, code string, now time.Time) (models.Group, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{
		"join_code":        code,
		"join_code_expiry": bson.M{"$gt": now},
		"status":           models.StatusActive,
	}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return models.Group{}, ErrNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// SetDiscoverable updates public discoverability and the join approver.
func (s *Store) SetDiscoverable(ctx context.Context, id primitive.ObjectID, discoverable bool, approverID *primitive.ObjectID) error {
	set := bson.M{
		"discoverable": discoverable,
		"updated_at":   time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if approverID == nil {
		update["$unset"] = bson.M{"join_approver_id": ""}
	} else {
		set["join_approver_id"] = *approverID
	}
	_, err := s.c.UpdateByID(ctx, id, update)
	return err
}

// SetImageKey replaces the group's image selection ("" resets it).
func (s *Store) SetImageKey(ctx context.Context, id primitive.ObjectID, key string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"image_key":  key,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SearchDiscoverable lists active groups that opted into discovery,
// optionally filtered by an anchored case-folded name pattern.
func (s *Store) SearchDiscoverable(ctx context.Context, namePattern string, limit int64) ([]models.Group, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{
		"discoverable": true,
		"status":       models.StatusActive,
	}
	if namePattern != "" {
		filter["name_ci"] = bson.M{"$regex": namePattern}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ClearExpiredJoinTokens closes join tokens whose expiry has passed.
// FindByJoinCode already refuses expired codes; this sweep just keeps
// stale codes from lingering on group documents.
func (s *Store) ClearExpiredJoinTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"join_code":        bson.M{"$exists": true, "$ne": ""},
			"join_code_expiry": bson.M{"$lte": now},
		},
		bson.M{
			"$unset": bson.M{"join_code": ""},
			"$set":   bson.M{"updated_at": now},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListByParent returns the active child groups of a parent.
func (s *Store) ListByParent(ctx context.Context, parentID primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{"parent_id": parentID, "status": models.StatusActive})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
