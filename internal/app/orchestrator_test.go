package app_test

import (
	"errors"
	"testing"

	"jamroom/internal/app"
	"jamroom/internal/domain"
	"jamroom/internal/queue"
)

type nopSender struct{}

func (nopSender) TrySend([]byte) error { return nil }

func newOrchestrator() *app.Orchestrator {
	return &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(nil),
		Queue:    queue.NewStore(nil),
	}
}

func bind(o *app.Orchestrator, sid app.SessionID) {
	o.Registry.Bind(sid, nopSender{}, nil)
}

func TestJoinCreatesRoomLazily(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")

	res, err := o.Join("alice", "attic")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if res.RoomID != "attic" {
		t.Fatalf("unexpected room: %v", res.RoomID)
	}
	if len(res.Queue) != 0 {
		t.Fatalf("expected empty queue on first join, got %d entries", len(res.Queue))
	}
	if res.State.Volume != domain.DefaultVolume {
		t.Fatalf("expected default volume, got %d", res.State.Volume)
	}

	// Idempotent: a second join returns the same room.
	again, err := o.Join("alice", "attic")
	if err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if again.State.Volume != res.State.Volume {
		t.Fatalf("room state changed across joins: %#v vs %#v", again.State, res.State)
	}
}

func TestJoinValidatesRoomID(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	if _, err := o.Join("alice", ""); !errors.Is(err, domain.ErrRoomIDEmpty) {
		t.Fatalf("expected ErrRoomIDEmpty, got %v", err)
	}
}

func TestJoinSnapshotContainsExistingQueue(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	bind(o, "bob")

	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, _, err := o.AddEntry("alice", domain.EntryDraft{VideoRef: "v1", Title: "A"}, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if _, _, err := o.AddEntry("alice", domain.EntryDraft{VideoRef: "v2", Title: "B"}, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	// A new subscriber sees [A B] at join time, before any live update.
	res, err := o.Join("bob", "attic")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if len(res.Queue) != 2 || res.Queue[0].Title != "A" || res.Queue[1].Title != "B" {
		t.Fatalf("unexpected snapshot: %#v", res.Queue)
	}
}

func TestJoinImplicitlyLeavesPreviousRoom(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")

	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := o.Join("alice", "cellar"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	roomID, ok := o.Registry.RoomOf("alice")
	if !ok || roomID != "cellar" {
		t.Fatalf("expected alice in cellar, got %q (%v)", roomID, ok)
	}
	if members := o.Registry.MembersOfRoom("attic"); len(members) != 0 {
		t.Fatalf("expected attic empty after re-join, got %d members", len(members))
	}
}

func TestCommandsRequireJoin(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")

	if _, _, err := o.AddEntry("alice", domain.EntryDraft{VideoRef: "v"}, false); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, _, err := o.Advance("alice"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, _, err := o.SetVolume("alice", 10); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAddEntryValidatesDraft(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, _, err := o.AddEntry("alice", domain.EntryDraft{}, false); !errors.Is(err, domain.ErrVideoRefEmpty) {
		t.Fatalf("expected ErrVideoRefEmpty, got %v", err)
	}
}

func TestSetVolumeRange(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if _, _, err := o.SetVolume("alice", 101); !errors.Is(err, domain.ErrVolumeRange) {
		t.Fatalf("expected ErrVolumeRange, got %v", err)
	}
	if _, _, err := o.SetVolume("alice", -1); !errors.Is(err, domain.ErrVolumeRange) {
		t.Fatalf("expected ErrVolumeRange, got %v", err)
	}

	_, state, err := o.SetVolume("alice", 30)
	if err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if state.Volume != 30 {
		t.Fatalf("expected volume 30, got %d", state.Volume)
	}
}

func TestMuteAndReplay(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	_, state, err := o.SetMuted("alice", true)
	if err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}
	if !state.Muted {
		t.Fatal("expected muted state")
	}

	_, first, err := o.SignalReplay("alice")
	if err != nil {
		t.Fatalf("SignalReplay failed: %v", err)
	}
	_, second, err := o.SignalReplay("alice")
	if err != nil {
		t.Fatalf("SignalReplay failed: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct nonces, got %q and %q", first, second)
	}
}

func TestQueueCommandsFlowThroughRoom(t *testing.T) {
	o := newOrchestrator()
	bind(o, "alice")
	bind(o, "bob")
	if _, err := o.Join("alice", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := o.Join("bob", "attic"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if _, _, err := o.AddEntry("alice", domain.EntryDraft{VideoRef: "v1", Title: "A"}, false); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	_, snap, err := o.AddEntry("bob", domain.EntryDraft{VideoRef: "v2", Title: "B"}, true)
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if len(snap) != 2 || snap[0].Title != "A" || snap[1].Title != "B" {
		t.Fatalf("unexpected sequence: %#v", snap)
	}

	_, snap, err = o.Advance("alice")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(snap) != 1 || snap[0].Title != "B" {
		t.Fatalf("unexpected sequence after advance: %#v", snap)
	}
}
