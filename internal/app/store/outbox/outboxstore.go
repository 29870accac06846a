// internal/app/store/outbox/outboxstore.go

// Package outbox holds bundles that committed with a mutation but have not
// yet been delivered to the durable audit and notification stores. Rows
// are claimed by the drain worker and removed once delivered.
package outbox

import (
	"context"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is one parked bundle. BundleID is the unique idempotency key; a
// re-enqueue of the same bundle is dropped rather than duplicated.
type Entry struct {
	BundleID      string                       `bson:"_id"`
	Logs          []models.AuditLogEntry       `bson:"logs,omitempty"`
	Notifications []models.NotificationRequest `bson:"notifications,omitempty"`
	Attempts      int                          `bson:"attempts"`
	CreatedAt     time.Time                    `bson:"created_at"`
}

// Bundle converts the stored entry back into its dispatch form.
func (e Entry) Bundle() *dispatch.Bundle {
	return &dispatch.Bundle{
		ID:            e.BundleID,
		Logs:          e.Logs,
		Notifications: e.Notifications,
	}
}

// Store manages the dispatch_outbox collection.
type Store struct {
	col *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{col: db.Collection("dispatch_outbox")}
}

// Enqueue parks a bundle. It runs under whatever session ctx carries, so
// it participates in the caller's transaction when there is one.
func (s *Store) Enqueue(ctx context.Context, b *dispatch.Bundle) error {
	entry := Entry{
		BundleID:      b.ID,
		Logs:          b.Logs,
		Notifications: b.Notifications,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.col.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// ListPending returns up to limit undelivered entries, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkDispatched removes a delivered entry. Missing rows are fine: another
// drainer may have raced us, and the durable store is idempotent anyway.
func (s *Store) MarkDispatched(ctx context.Context, bundleID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": bundleID})
	return err
}

// RecordAttempt bumps the delivery counter on a failed drain so operators
// can spot stuck bundles.
func (s *Store) RecordAttempt(ctx context.Context, bundleID string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": bundleID},
		bson.M{"$inc": bson.M{"attempts": 1}})
	return err
}
