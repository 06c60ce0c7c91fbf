// Package queue holds the per-room ordered playback queue and the five
// atomic operations that may alter it. Rooms never share a lock, so
// commands against different rooms proceed in parallel.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"jamroom/internal/domain"
)

// Saver persists a room's committed sequence. A failing saver never
// fails the command; the store logs and keeps the in-memory state
// authoritative for the session.
type Saver interface {
	SaveRoom(roomID domain.RoomID, entries []domain.Entry) error
}

type roomQueue struct {
	mu      sync.Mutex
	entries []*domain.Entry
}

// Store maps room ids to their queues. The outer lock only guards the
// map; every mutation runs under the owning room's lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomQueue
	saver Saver
}

func NewStore(saver Saver) *Store {
	return &Store{
		rooms: make(map[domain.RoomID]*roomQueue),
		saver: saver,
	}
}

// EnsureRoom lazily creates the room's queue. Idempotent; the join path
// calls it so later commands can treat a missing room as an error.
func (s *Store) EnsureRoom(roomID domain.RoomID) {
	s.mu.RLock()
	_, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return
	}
	s.rooms[roomID] = &roomQueue{}
	log.Info().Str("module", "queue.store").Str("room", string(roomID)).Msg("room created")
}

// Restore installs a persisted sequence at startup, replacing whatever
// the room holds.
func (s *Store) Restore(roomID domain.RoomID, entries []domain.Entry) {
	s.EnsureRoom(roomID)
	rq := s.room(roomID)
	rq.mu.Lock()
	defer rq.mu.Unlock()
	rq.entries = make([]*domain.Entry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		rq.entries = append(rq.entries, &e)
	}
	sortEntries(rq.entries)
}

func (s *Store) room(roomID domain.RoomID) *roomQueue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// Snapshot returns a copy of the committed sequence.
func (s *Store) Snapshot(roomID domain.RoomID) ([]domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return snapshot(rq.entries), nil
}

// Append commits a new entry. With playNext set and a non-empty queue
// the entry lands immediately after the head; otherwise it goes to the
// tail.
func (s *Store) Append(roomID domain.RoomID, draft domain.EntryDraft, playNext bool) (domain.Entry, []domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return domain.Entry{}, nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()

	entry := &domain.Entry{
		ID:              uuid.NewString(),
		VideoRef:        draft.VideoRef,
		Title:           draft.Title,
		Author:          draft.Author,
		ThumbnailRef:    draft.ThumbnailRef,
		DurationDisplay: draft.DurationDisplay,
		AddedAt:         time.Now().UTC(),
	}

	midpoint := playNext && len(rq.entries) > 1
	if playNext && len(rq.entries) > 0 {
		entry.PositionKey = secondSlotKey(rq.entries)
	} else {
		entry.PositionKey = nextTailKey(rq.entries)
	}
	rq.entries = append(rq.entries, entry)
	sortEntries(rq.entries)
	if midpoint || needsRenormalize(rq.entries) {
		renormalize(rq.entries)
	}

	snap := snapshot(rq.entries)
	s.persist(roomID, snap)
	return *entry, snap, nil
}

// PinToSecond moves the entry to the next-to-play slot. Entries already
// playing or already next are left alone; that is convergence, not an
// error.
func (s *Store) PinToSecond(roomID domain.RoomID, entryID string) ([]domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()

	idx := indexOf(rq.entries, entryID)
	if idx < 0 {
		return snapshot(rq.entries), domain.ErrEntryNotFound
	}
	if idx < 2 {
		return snapshot(rq.entries), nil
	}

	rq.entries[idx].PositionKey = secondSlotKey(rq.entries)
	renormalize(rq.entries)

	snap := snapshot(rq.entries)
	s.persist(roomID, snap)
	return snap, nil
}

// ReorderTail accepts a client's full reordering only when the proposal
// still agrees on the head; a proposal built on a queue whose head has
// since advanced is rejected and the caller gets the authoritative
// sequence to redeliver. Last committed wins, not last submitted.
func (s *Store) ReorderTail(roomID domain.RoomID, proposedIDs []string) ([]domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if len(rq.entries) == 0 && len(proposedIDs) == 0 {
		return snapshot(rq.entries), nil
	}
	if len(rq.entries) == 0 || len(proposedIDs) == 0 || rq.entries[0].ID != proposedIDs[0] {
		log.Debug().Str("module", "queue.store").Str("room", string(roomID)).Msg("stale reorder proposal rejected")
		return snapshot(rq.entries), domain.ErrStaleProposal
	}

	byID := make(map[string]*domain.Entry, len(rq.entries))
	for _, e := range rq.entries {
		byID[e.ID] = e
	}

	// Proposed ids first; entries the proposal missed (added or raced
	// meanwhile) keep their relative order after them. Unknown ids are
	// ignored.
	reordered := make([]*domain.Entry, 0, len(rq.entries))
	for _, id := range proposedIDs {
		if e, ok := byID[id]; ok {
			reordered = append(reordered, e)
			delete(byID, id)
		}
	}
	for _, e := range rq.entries {
		if _, left := byID[e.ID]; left {
			reordered = append(reordered, e)
		}
	}
	for i, e := range reordered {
		e.PositionKey = float64(i)
	}
	rq.entries = reordered

	snap := snapshot(rq.entries)
	s.persist(roomID, snap)
	return snap, nil
}

// Remove is idempotent: a stale id is a no-op, never a failure other
// participants can observe.
func (s *Store) Remove(roomID domain.RoomID, entryID string) ([]domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()

	idx := indexOf(rq.entries, entryID)
	if idx < 0 {
		return snapshot(rq.entries), nil
	}
	rq.entries = append(rq.entries[:idx], rq.entries[idx+1:]...)

	snap := snapshot(rq.entries)
	s.persist(roomID, snap)
	return snap, nil
}

// AdvanceHead pops the now-playing entry. Safe under duplicate
// delivery: each call removes at most the then-current head, and an
// empty queue is a no-op.
func (s *Store) AdvanceHead(roomID domain.RoomID) ([]domain.Entry, error) {
	rq := s.room(roomID)
	if rq == nil {
		return nil, domain.ErrRoomNotFound
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if len(rq.entries) == 0 {
		return snapshot(rq.entries), nil
	}
	rq.entries = rq.entries[1:]

	snap := snapshot(rq.entries)
	s.persist(roomID, snap)
	return snap, nil
}

func (s *Store) persist(roomID domain.RoomID, snap []domain.Entry) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveRoom(roomID, snap); err != nil {
		log.Error().Err(err).Str("module", "queue.store").Str("room", string(roomID)).Msg("persist failed, in-memory state stays authoritative")
	}
}

func indexOf(entries []*domain.Entry, entryID string) int {
	for i, e := range entries {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

func snapshot(entries []*domain.Entry) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}
