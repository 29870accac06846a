// internal/app/store/roles/rolestore.go

// Package rolestore persists the per-group role→permission table. One
// document per (group_id, role); the permission lists hold only values
// from the closed authz.Permission set.
package rolestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civihub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("group role not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_roles")}
}

// GroupRole is the stored role document.
type GroupRole struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	GroupID     primitive.ObjectID `bson:"group_id"`
	Role        string             `bson:"role"`
	Permissions []authz.Permission `bson:"permissions"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// Seed writes the full role table for a new group from a template.
// Organizer rows always carry the protected subset, whatever the template
// says.
func (s *Store) Seed(ctx context.Context, groupID primitive.ObjectID, template string) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, 3)
	for role, perms := range authz.TemplatePermissions(template) {
		if role == authz.RoleOrganizer {
			perms = authz.WithProtected(perms)
		}
		docs = append(docs, GroupRole{
			ID:          primitive.NewObjectID(),
			GroupID:     groupID,
			Role:        role,
			Permissions: perms,
			UpdatedAt:   now,
		})
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// Permissions returns the permission set for one role of one group.
func (s *Store) Permissions(ctx context.Context, groupID primitive.ObjectID, role string) ([]authz.Permission, error) {
	var doc GroupRole
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "role": role}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Permissions, nil
}

// SetPermissions replaces one role's permission set. Writes to the
// organizer role re-union the protected subset unconditionally, so a
// group can never strip its own organizers of control.
func (s *Store) SetPermissions(ctx context.Context, groupID primitive.ObjectID, role string, perms []authz.Permission) error {
	if role == authz.RoleOrganizer {
		perms = authz.WithProtected(perms)
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "role": role},
		bson.M{"$set": bson.M{
			"permissions": perms,
			"updated_at":  time.Now().UTC(),
		}},
		opts)
	return err
}

// ListByGroup returns the whole role table for a group.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]GroupRole, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var roles []GroupRole
	if err := cur.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
