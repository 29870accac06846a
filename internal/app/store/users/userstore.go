// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("user not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByPhone looks a user up by normalized phone number.
func (s *Store) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"phone": phone}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks a staff user up by login email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// FindByPhones returns the users whose normalized phone number is in
// phones, keyed by phone. Numbers the system has never seen are simply
// absent from the result.
func (s *Store) FindByPhones(ctx context.Context, phones []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(phones))
	if len(phones) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"phone": bson.M{"$in": phones}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.Phone] = u
	}
	return out, cur.Err()
}

// Create inserts a user record. Phone must already be normalized; the
// unique phone index rejects duplicates.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.FullNameCI = text.Fold(u.FullName)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// CreateMinimal mints the barest possible user record for a phone number
// encountered during membership reconciliation. If another writer minted
// the same phone concurrently, the existing record is returned and
// created is false.
func (s *Store) CreateMinimal(ctx context.Context, phone, fullName string) (u models.User, created bool, err error) {
	u, err = s.Create(ctx, models.User{Phone: phone, FullName: fullName})
	if err == nil {
		return u, true, nil
	}
	if wafflemongo.IsDup(err) {
		existing, gerr := s.GetByPhone(ctx, phone)
		if gerr != nil {
			return models.User{}, false, gerr
		}
		return existing, false, nil
	}
	return models.User{}, false, err
}

// SystemRole returns the user's system-wide role ("" for ordinary users).
func (s *Store) SystemRole(ctx context.Context, id primitive.ObjectID) (string, error) {
	var row struct {
		SystemRole string `bson:"system_role"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.SystemRole, nil
}
