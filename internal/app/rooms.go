package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"jamroom/internal/domain"
)

// StateSaver persists the ephemeral room fields that survive a restart.
// Failures are logged, never surfaced to the room.
type StateSaver interface {
	SaveRoomState(roomID domain.RoomID, state domain.RoomState) error
}

type roomState struct {
	mu          sync.Mutex
	volume      int
	muted       bool
	replayNonce string
}

// RoomManager owns the ephemeral per-room state: volume, mute and the
// replay signal. Queue contents live in the queue store; the manager
// never touches them.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	saver StateSaver
}

func NewRoomManager(saver StateSaver) *RoomManager {
	return &RoomManager{
		rooms: make(map[domain.RoomID]*roomState),
		saver: saver,
	}
}

// GetOrCreate lazily creates room state on first join. Idempotent.
func (m *RoomManager) GetOrCreate(roomID domain.RoomID) domain.RoomState {
	m.mu.RLock()
	rs, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if ok {
		return snapshotState(rs)
	}
	m.mu.Lock()
	if rs, ok = m.rooms[roomID]; !ok {
		rs = &roomState{volume: domain.DefaultVolume}
		m.rooms[roomID] = rs
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("created room state")
	}
	m.mu.Unlock()
	return snapshotState(rs)
}

// Restore installs persisted state at startup.
func (m *RoomManager) Restore(roomID domain.RoomID, state domain.RoomState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[roomID] = &roomState{volume: state.Volume, muted: state.Muted}
}

func (m *RoomManager) Get(roomID domain.RoomID) (domain.RoomState, bool) {
	m.mu.RLock()
	rs, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return domain.RoomState{}, false
	}
	return snapshotState(rs), true
}

// SetVolume updates the room volume and returns the updated state for a
// small-payload broadcast.
func (m *RoomManager) SetVolume(roomID domain.RoomID, volume int) (domain.RoomState, error) {
	if err := domain.ValidVolume(volume); err != nil {
		return domain.RoomState{}, err
	}
	rs, ok := m.lookup(roomID)
	if !ok {
		return domain.RoomState{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	rs.volume = volume
	state := domain.RoomState{Volume: rs.volume, Muted: rs.muted}
	rs.mu.Unlock()
	m.persist(roomID, state)
	return state, nil
}

func (m *RoomManager) SetMuted(roomID domain.RoomID, muted bool) (domain.RoomState, error) {
	rs, ok := m.lookup(roomID)
	if !ok {
		return domain.RoomState{}, domain.ErrRoomNotFound
	}
	rs.mu.Lock()
	rs.muted = muted
	state := domain.RoomState{Volume: rs.volume, Muted: rs.muted}
	rs.mu.Unlock()
	m.persist(roomID, state)
	return state, nil
}

// SignalReplay mints a fresh nonce so every subscriber sees each replay
// request as a distinct event. The nonce is not persisted.
func (m *RoomManager) SignalReplay(roomID domain.RoomID) (string, error) {
	rs, ok := m.lookup(roomID)
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	nonce := uuid.NewString()
	rs.mu.Lock()
	rs.replayNonce = nonce
	rs.mu.Unlock()
	return nonce, nil
}

func (m *RoomManager) lookup(roomID domain.RoomID) (*roomState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.rooms[roomID]
	return rs, ok
}

func (m *RoomManager) persist(roomID domain.RoomID, state domain.RoomState) {
	if m.saver == nil {
		return
	}
	if err := m.saver.SaveRoomState(roomID, state); err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Str("room", string(roomID)).Msg("persist room state failed")
	}
}

func snapshotState(rs *roomState) domain.RoomState {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return domain.RoomState{
		Volume:      rs.volume,
		Muted:       rs.muted,
		ReplayNonce: rs.replayNonce,
	}
}
