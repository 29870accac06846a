// internal/app/store/audit/store_test.go

package audit

import (
	"testing"
	"time"

	"github.com/dalemusser/civihub/internal/app/dispatch"
	"github.com/dalemusser/civihub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_StoreBundle_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	groupID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()

	b := dispatch.NewBundle()
	entry := b.AddLog(groupID, actorID, "member_added", &memberID, "Thandi added")
	b.AddNotification(memberID, "You were added", entry.ID, nil)

	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle: %v", err)
	}
	// Redelivery of the same bundle must not duplicate rows.
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle redelivery: %v", err)
	}

	count, err := store.CountByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("CountByGroup: %v", err)
	}
	if count != 1 {
		t.Fatalf("log count = %d, want 1", count)
	}

	notes, err := store.PendingNotificationsForUser(ctx, memberID, 10)
	if err != nil {
		t.Fatalf("PendingNotificationsForUser: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	if notes[0].LogID != entry.ID {
		t.Fatalf("notification log id = %s, want %s", notes[0].LogID.Hex(), entry.ID.Hex())
	}
}

func TestStore_StoreBundle_PartialRedelivery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	groupID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	b := dispatch.NewBundle()
	b.AddLog(groupID, actorID, "member_added", nil, "first")
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle: %v", err)
	}

	// A retried dispatch can carry already-stored entries alongside new
	// ones; the stored ones are skipped and the new one lands.
	b.AddLog(groupID, actorID, "member_removed", nil, "second")
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle retry: %v", err)
	}

	count, err := store.CountByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("CountByGroup: %v", err)
	}
	if count != 2 {
		t.Fatalf("log count = %d, want 2", count)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	groupA := primitive.NewObjectID()
	groupB := primitive.NewObjectID()
	actorOne := primitive.NewObjectID()
	actorTwo := primitive.NewObjectID()

	b := dispatch.NewBundle()
	b.AddLog(groupA, actorOne, "member_added", nil, "a1")
	b.AddLog(groupA, actorTwo, "member_removed", nil, "a2")
	b.AddLog(groupB, actorOne, "member_added", nil, "b1")
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{GroupID: &groupA})
	if err != nil {
		t.Fatalf("Query by group: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("group filter returned %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.GroupID != groupA {
			t.Fatalf("entry %s belongs to group %s", e.ID.Hex(), e.GroupID.Hex())
		}
	}

	entries, err = store.Query(ctx, QueryFilter{GroupID: &groupA, ChangeType: "member_removed"})
	if err != nil {
		t.Fatalf("Query by change type: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "a2" {
		t.Fatalf("change type filter returned %+v", entries)
	}

	entries, err = store.Query(ctx, QueryFilter{ActorID: &actorOne})
	if err != nil {
		t.Fatalf("Query by actor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("actor filter returned %d entries, want 2", len(entries))
	}
}

func TestStore_Query_SortLimitAndWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	groupID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	// Spread entries across distinct timestamps.
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	b := dispatch.NewBundle()
	for i := 0; i < 3; i++ {
		b.AddLog(groupID, actorID, "group_edited", nil, "entry")
		b.Logs[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{GroupID: &groupID, Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("limit returned %d entries, want 2", len(entries))
	}
	if entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Fatalf("entries not sorted newest first: %v then %v",
			entries[0].CreatedAt, entries[1].CreatedAt)
	}

	start := base.Add(30 * time.Second)
	end := base.Add(90 * time.Second)
	entries, err = store.Query(ctx, QueryFilter{GroupID: &groupID, StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("Query window: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("time window returned %d entries, want 1", len(entries))
	}
}

func TestStore_PendingNotificationsForUser_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	groupID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	b := dispatch.NewBundle()
	entry := b.AddLog(groupID, actorID, "meeting_created", nil, "meeting")
	b.AddNotification(userID, "second", entry.ID, nil)
	b.AddNotification(userID, "first", entry.ID, nil)
	b.AddNotification(otherID, "other", entry.ID, nil)
	b.Notifications[0].CreatedAt = base.Add(time.Minute)
	b.Notifications[1].CreatedAt = base
	if err := store.StoreBundle(ctx, b); err != nil {
		t.Fatalf("StoreBundle: %v", err)
	}

	notes, err := store.PendingNotificationsForUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("PendingNotificationsForUser: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notes))
	}
	if notes[0].Message != "first" || notes[1].Message != "second" {
		t.Fatalf("notifications out of order: %q, %q", notes[0].Message, notes[1].Message)
	}
}
