package app

import (
	"github.com/rs/zerolog/log"

	"jamroom/internal/domain"
	"jamroom/internal/queue"
)

// Orchestrator is the command layer: it resolves the caller's room,
// validates input, applies the mutation through the queue store or the
// room manager and hands the committed state back to the transport for
// fan-out. It never talks to connections itself.
type Orchestrator struct {
	Registry *Registry
	Rooms    *RoomManager
	Queue    *queue.Store
}

// JoinResult is the full snapshot a new subscriber receives before any
// live update.
type JoinResult struct {
	RoomID domain.RoomID
	Queue  []domain.Entry
	State  domain.RoomState
}

// Join subscribes the session to the room, creating it lazily on first
// join. A session already in another room leaves it implicitly.
func (o *Orchestrator) Join(sid SessionID, roomID domain.RoomID) (JoinResult, error) {
	if err := domain.ValidRoomID(roomID); err != nil {
		return JoinResult{}, err
	}

	state := o.Rooms.GetOrCreate(roomID)
	o.Queue.EnsureRoom(roomID)
	if !o.Registry.SetRoom(sid, roomID) {
		return JoinResult{}, domain.ErrRoomNotFound
	}

	snap, err := o.Queue.Snapshot(roomID)
	if err != nil {
		return JoinResult{}, err
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(roomID)).Msg("join")
	return JoinResult{RoomID: roomID, Queue: snap, State: state}, nil
}

// AddEntry validates the draft and commits it, optionally into the
// next-to-play slot.
func (o *Orchestrator) AddEntry(sid SessionID, draft domain.EntryDraft, playNext bool) (domain.RoomID, []domain.Entry, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", nil, domain.ErrRoomNotFound
	}
	if err := draft.Validate(); err != nil {
		return roomID, nil, err
	}
	_, snap, err := o.Queue.Append(roomID, draft, playNext)
	return roomID, snap, err
}

// PinEntry moves an entry to the next-to-play slot. Pinning the playing
// or already-next entry converges to the current state.
func (o *Orchestrator) PinEntry(sid SessionID, entryID string) (domain.RoomID, []domain.Entry, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", nil, domain.ErrRoomNotFound
	}
	snap, err := o.Queue.PinToSecond(roomID, entryID)
	return roomID, snap, err
}

// ProposeReorder applies a client's full reordering unless the head
// went stale underneath it; the returned snapshot is authoritative
// either way.
func (o *Orchestrator) ProposeReorder(sid SessionID, proposedIDs []string) (domain.RoomID, []domain.Entry, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", nil, domain.ErrRoomNotFound
	}
	snap, err := o.Queue.ReorderTail(roomID, proposedIDs)
	return roomID, snap, err
}

func (o *Orchestrator) RemoveEntry(sid SessionID, entryID string) (domain.RoomID, []domain.Entry, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", nil, domain.ErrRoomNotFound
	}
	snap, err := o.Queue.Remove(roomID, entryID)
	return roomID, snap, err
}

// Advance pops the now-playing entry; natural end of playback and
// explicit skip both land here.
func (o *Orchestrator) Advance(sid SessionID) (domain.RoomID, []domain.Entry, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", nil, domain.ErrRoomNotFound
	}
	snap, err := o.Queue.AdvanceHead(roomID)
	return roomID, snap, err
}

func (o *Orchestrator) SetVolume(sid SessionID, volume int) (domain.RoomID, domain.RoomState, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", domain.RoomState{}, domain.ErrRoomNotFound
	}
	state, err := o.Rooms.SetVolume(roomID, volume)
	return roomID, state, err
}

func (o *Orchestrator) SetMuted(sid SessionID, muted bool) (domain.RoomID, domain.RoomState, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", domain.RoomState{}, domain.ErrRoomNotFound
	}
	state, err := o.Rooms.SetMuted(roomID, muted)
	return roomID, state, err
}

func (o *Orchestrator) SignalReplay(sid SessionID) (domain.RoomID, string, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", "", domain.ErrRoomNotFound
	}
	nonce, err := o.Rooms.SignalReplay(roomID)
	return roomID, nonce, err
}

// Leave drops the session's subscription without closing the
// connection.
func (o *Orchestrator) Leave(sid SessionID) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.Registry.SetRoom(sid, "")
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(roomID)).Msg("leave")
}
