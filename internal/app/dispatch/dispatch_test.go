package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeDurable struct {
	stored []*Bundle
	err    error
}

func (f *fakeDurable) StoreBundle(ctx context.Context, b *Bundle) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, b)
	return nil
}

type fakeOutbox struct {
	queued []*Bundle
	err    error
}

func (f *fakeOutbox) Enqueue(ctx context.Context, b *Bundle) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, b)
	return nil
}

func TestBundle_AddLogAssignsIdentity(t *testing.T) {
	b := NewBundle()
	if b.ID == "" {
		t.Fatal("expected bundle ID to be assigned")
	}

	group := primitive.NewObjectID()
	actor := primitive.NewObjectID()
	entry := b.AddLog(group, actor, models.ChangeGroupAdded, nil, "created")

	if entry.ID.IsZero() {
		t.Error("expected log entry ID to be assigned")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected log entry timestamp to be assigned")
	}
	if len(b.Logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(b.Logs))
	}
}

func TestBundle_NotificationReferencesLog(t *testing.T) {
	b := NewBundle()
	entry := b.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeMemberAdded, nil, "")
	user := primitive.NewObjectID()
	b.AddNotification(user, "You were added to Ward 12", entry.ID, nil)

	if len(b.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(b.Notifications))
	}
	if b.Notifications[0].LogID != entry.ID {
		t.Error("notification does not reference its originating log entry")
	}
}

func TestBundle_MergeIsUnion(t *testing.T) {
	a := NewBundle()
	a.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeGroupAdded, nil, "")

	c := NewBundle()
	e := c.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeMemberAdded, nil, "")
	c.AddNotification(primitive.NewObjectID(), "hello", e.ID, nil)

	wantID := a.ID
	a.Merge(c)

	if len(a.Logs) != 2 || len(a.Notifications) != 1 {
		t.Errorf("merge: got %d logs, %d notifications; want 2, 1", len(a.Logs), len(a.Notifications))
	}
	if a.ID != wantID {
		t.Error("merge must keep the receiver's idempotency key")
	}

	// Merging nil is a no-op.
	a.Merge(nil)
	if len(a.Logs) != 2 {
		t.Error("merging nil changed the bundle")
	}
}

func TestDispatcher_DeferSkipsEmptyBundle(t *testing.T) {
	outbox := &fakeOutbox{}
	d := New(&fakeDurable{}, outbox, zap.NewNop())

	if err := d.Defer(context.Background(), NewBundle()); err != nil {
		t.Fatalf("Defer failed: %v", err)
	}
	if len(outbox.queued) != 0 {
		t.Error("empty bundle must not be enqueued")
	}
}

func TestDispatcher_DeferEnqueues(t *testing.T) {
	outbox := &fakeOutbox{}
	durable := &fakeDurable{}
	d := New(durable, outbox, zap.NewNop())

	b := NewBundle()
	b.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeGroupRenamed, nil, "")

	if err := d.Defer(context.Background(), b); err != nil {
		t.Fatalf("Defer failed: %v", err)
	}
	if len(outbox.queued) != 1 {
		t.Fatalf("expected 1 queued bundle, got %d", len(outbox.queued))
	}
	if len(durable.stored) != 0 {
		t.Error("Defer must not write to the durable store directly")
	}
}

func TestDispatcher_DispatchWritesThrough(t *testing.T) {
	outbox := &fakeOutbox{}
	durable := &fakeDurable{}
	d := New(durable, outbox, zap.NewNop())

	b := NewBundle()
	b.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeGroupAdded, nil, "")

	if err := d.Dispatch(context.Background(), b); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(durable.stored) != 1 {
		t.Fatalf("expected 1 stored bundle, got %d", len(durable.stored))
	}
	if len(outbox.queued) != 0 {
		t.Error("successful dispatch must not touch the outbox")
	}
}

func TestDispatcher_DispatchFallsBackToOutbox(t *testing.T) {
	outbox := &fakeOutbox{}
	durable := &fakeDurable{err: errors.New("store down")}
	d := New(durable, outbox, zap.NewNop())

	b := NewBundle()
	b.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeGroupAdded, nil, "")

	if err := d.Dispatch(context.Background(), b); err != nil {
		t.Fatalf("Dispatch should succeed via outbox fallback, got %v", err)
	}
	if len(outbox.queued) != 1 {
		t.Fatalf("expected bundle in outbox, got %d", len(outbox.queued))
	}
}

func TestDispatcher_DispatchDoubleFailureSurfaces(t *testing.T) {
	outbox := &fakeOutbox{err: errors.New("outbox down")}
	durable := &fakeDurable{err: errors.New("store down")}
	d := New(durable, outbox, zap.NewNop())

	b := NewBundle()
	b.AddLog(primitive.NewObjectID(), primitive.NewObjectID(), models.ChangeGroupAdded, nil, "")

	if err := d.Dispatch(context.Background(), b); err == nil {
		t.Fatal("expected error when both sinks fail")
	}
}
