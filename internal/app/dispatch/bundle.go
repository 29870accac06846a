// internal/app/dispatch/bundle.go

// Package dispatch collects the audit-log entries and notification requests
// produced by one group mutation and hands them to durable storage only
// after the mutation itself has committed.
package dispatch

import (
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bundle is the transient aggregate built up during one mutation. Log
// entries get their ObjectIDs at Add time, so notifications created in the
// same pass can reference their originating entry before anything is
// persisted. The uuid ID doubles as the idempotency key for at-least-once
// delivery into the durable stores.
type Bundle struct {
	ID            string
	Logs          []models.AuditLogEntry
	Notifications []models.NotificationRequest
}

// NewBundle returns an empty bundle with a fresh idempotency key.
func NewBundle() *Bundle {
	return &Bundle{ID: uuid.NewString()}
}

// AddLog appends an audit entry, assigning its ID and timestamp, and
// returns the stored copy so callers can attach notifications to it.
func (b *Bundle) AddLog(groupID, actorID primitive.ObjectID, changeType string, targetID *primitive.ObjectID, description string) models.AuditLogEntry {
	entry := models.AuditLogEntry{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		ActorID:     actorID,
		ChangeType:  changeType,
		TargetID:    targetID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	b.Logs = append(b.Logs, entry)
	return entry
}

// AddNotification queues a notification for one user, tied to the log
// entry that caused it.
func (b *Bundle) AddNotification(userID primitive.ObjectID, message string, logID primitive.ObjectID, meetingID *primitive.ObjectID) {
	b.Notifications = append(b.Notifications, models.NotificationRequest{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Message:   message,
		LogID:     logID,
		MeetingID: meetingID,
		CreatedAt: time.Now().UTC(),
	})
}

// Merge folds other into b. The operation is an associative union: the
// combined bundle carries both lists and keeps b's idempotency key.
func (b *Bundle) Merge(other *Bundle) {
	if other == nil {
		return
	}
	b.Logs = append(b.Logs, other.Logs...)
	b.Notifications = append(b.Notifications, other.Notifications...)
}

// Empty reports whether the bundle carries nothing worth dispatching.
func (b *Bundle) Empty() bool {
	return len(b.Logs) == 0 && len(b.Notifications) == 0
}
