// internal/app/store/audit/store.go

// Package audit is the durable sink for group audit logs and notification
// requests. Log entries are append-only: nothing here updates or deletes.
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the group_audit_log and notifications collections.
type Store struct {
	logs          *mongo.Collection
	notifications *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		logs:          db.Collection("group_audit_log"),
		notifications: db.Collection("notifications"),
	}
}

// StoreBundle persists every entry in the bundle. Entries already carry
// their ObjectIDs, so redelivery of the same bundle hits duplicate keys,
// which are swallowed: the commit-hook/outbox machinery delivers
// at-least-once and this store makes that exactly-once in effect.
func (s *Store) StoreBundle(ctx context.Context, b *dispatch.Bundle) error {
	if len(b.Logs) > 0 {
		docs := make([]interface{}, 0, len(b.Logs))
		for _, e := range b.Logs {
			docs = append(docs, e)
		}
		if err := insertToleratingDups(ctx, s.logs, docs); err != nil {
			return err
		}
	}
	if len(b.Notifications) > 0 {
		docs := make([]interface{}, 0, len(b.Notifications))
		for _, n := range b.Notifications {
			docs = append(docs, n)
		}
		if err := insertToleratingDups(ctx, s.notifications, docs); err != nil {
			return err
		}
	}
	return nil
}

// insertToleratingDups runs an unordered InsertMany and treats duplicate
// keys (code 11000) as already-delivered rows, not failures.
func insertToleratingDups(ctx context.Context, c *mongo.Collection, docs []interface{}) error {
	opts := options.InsertMany().SetOrdered(false)
	_, err := c.InsertMany(ctx, docs, opts)
	if err == nil {
		return nil
	}
	if bulkErr, ok := err.(mongo.BulkWriteException); ok {
		for _, we := range bulkErr.WriteErrors {
			if we.Code != 11000 {
				return err
			}
		}
		return nil
	}
	return err
}

// QueryFilter narrows audit-log queries.
type QueryFilter struct {
	GroupID    *primitive.ObjectID
	ActorID    *primitive.ObjectID
	ChangeType string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Query retrieves audit entries matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]models.AuditLogEntry, error) {
	query := bson.M{}
	if filter.GroupID != nil {
		query["group_id"] = *filter.GroupID
	}
	if filter.ActorID != nil {
		query["actor_id"] = *filter.ActorID
	}
	if filter.ChangeType != "" {
		query["change_type"] = filter.ChangeType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["created_at"] = timeQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.logs.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []models.AuditLogEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByGroup returns the number of audit entries for a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.logs.CountDocuments(ctx, bson.M{"group_id": groupID})
}

// PendingNotificationsForUser lists a user's queued notifications, oldest
// first, for the delivery layer to pick up.
func (s *Store) PendingNotificationsForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.NotificationRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)
	cur, err := s.notifications.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.NotificationRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
