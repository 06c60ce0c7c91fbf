package queue_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jamroom/internal/domain"
	"jamroom/internal/queue"
)

func openDB(t *testing.T) *queue.DB {
	t.Helper()
	db, err := queue.Open(filepath.Join(t.TempDir(), "jamroom.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveRoomRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	added := time.Now().UTC().Truncate(time.Millisecond)
	entries := []domain.Entry{
		{ID: "e1", VideoRef: "v1", Title: "First", Author: "a", PositionKey: 0, AddedAt: added},
		{ID: "e2", VideoRef: "v2", Title: "Second", Author: "b", PositionKey: 1, AddedAt: added.Add(time.Second)},
	}
	if err := db.SaveRoom("kitchen", entries); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}

	records, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	rec, ok := records["kitchen"]
	if !ok {
		t.Fatal("expected kitchen room to be persisted")
	}
	if len(rec.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rec.Entries))
	}
	if rec.Entries[0].ID != "e1" || rec.Entries[1].ID != "e2" {
		t.Fatalf("order lost: %v, %v", rec.Entries[0].ID, rec.Entries[1].ID)
	}
	if !rec.Entries[0].AddedAt.Equal(added) {
		t.Fatalf("added_at mangled: %v != %v", rec.Entries[0].AddedAt, added)
	}
	if rec.State.Volume != domain.DefaultVolume {
		t.Fatalf("expected default volume, got %d", rec.State.Volume)
	}
}

func TestSaveRoomRewritesSequence(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if err := db.SaveRoom("kitchen", []domain.Entry{
		{ID: "e1", VideoRef: "v1", PositionKey: 0, AddedAt: time.Now().UTC()},
		{ID: "e2", VideoRef: "v2", PositionKey: 1, AddedAt: time.Now().UTC()},
	}); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}
	// A later commit fully replaces the previous rows.
	if err := db.SaveRoom("kitchen", []domain.Entry{
		{ID: "e2", VideoRef: "v2", PositionKey: 0, AddedAt: time.Now().UTC()},
	}); err != nil {
		t.Fatalf("second SaveRoom failed: %v", err)
	}

	records, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	rec := records["kitchen"]
	if len(rec.Entries) != 1 || rec.Entries[0].ID != "e2" {
		t.Fatalf("expected only e2 to survive, got %#v", rec.Entries)
	}
}

func TestSaveRoomStateUpsert(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if err := db.SaveRoomState("den", domain.RoomState{Volume: 40, Muted: true}); err != nil {
		t.Fatalf("SaveRoomState failed: %v", err)
	}
	if err := db.SaveRoomState("den", domain.RoomState{Volume: 70, Muted: false}); err != nil {
		t.Fatalf("second SaveRoomState failed: %v", err)
	}

	records, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	rec, ok := records["den"]
	if !ok {
		t.Fatal("expected den room to be persisted")
	}
	if rec.State.Volume != 70 || rec.State.Muted {
		t.Fatalf("unexpected state: %#v", rec.State)
	}
	if len(rec.Entries) != 0 {
		t.Fatalf("expected empty queue, got %d entries", len(rec.Entries))
	}
}

func TestLoadAllEmptyDatabase(t *testing.T) {
	db := openDB(t)
	records, err := db.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no rooms, got %d", len(records))
	}
}
