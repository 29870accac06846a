package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given normalized phone and name.
// Returns the created user with its generated ID.
func (f *Fixtures) CreateUser(ctx context.Context, phone, fullName string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Phone:      phone,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("fixture: insert user: %v", err)
	}
	return u
}

// CreateAdmin creates a test user carrying the system admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, phone, fullName string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Phone:      phone,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		SystemRole: "admin",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("fixture: insert admin user: %v", err)
	}
	return u
}

// CreateGroup creates an active test group created by the given user.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, createdBy primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    models.StatusActive,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("fixture: insert group: %v", err)
	}
	return g
}

// CreateSubgroup creates an active test group linked under the given parent.
func (f *Fixtures) CreateSubgroup(ctx context.Context, name string, parentID, createdBy primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		ParentID:  &parentID,
		Status:    models.StatusActive,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("fixture: insert subgroup: %v", err)
	}
	return g
}

// AddMember inserts a membership linking the user to the group with the role.
func (f *Fixtures) AddMember(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture: insert membership: %v", err)
	}
	return m
}

// CreateMeeting inserts an upcoming meeting for the group.
func (f *Fixtures) CreateMeeting(ctx context.Context, groupID primitive.ObjectID, subject string, startsAt time.Time) models.Meeting {
	f.t.Helper()

	m := models.Meeting{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Subject:   subject,
		StartsAt:  startsAt,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("meetings").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture: insert meeting: %v", err)
	}
	return m
}
