package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"jamroom/internal/domain"
)

type SessionID string

// Sender is the transport end of a subscription. Owned by the adapter;
// the registry only fans out to it and never closes it.
type Sender interface {
	TrySend(data []byte) error
}

type sessionEntry struct {
	RoomID domain.RoomID
	Conn   Sender
	Cancel context.CancelFunc
}

// Registry binds participant connections to at most one room each.
// Joining a new room implicitly leaves the previous one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sid SessionID, conn Sender, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// SetRoom subscribes the session to a room, dropping any previous
// subscription.
func (r *Registry) SetRoom(sid SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomID = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("joined room")
	return true
}

func (r *Registry) RoomOf(sid SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomID == "" {
		return "", false
	}
	return entry.RoomID, true
}

type MemberSnap struct {
	SID  SessionID
	Conn Sender
}

// MembersOfRoom returns a fan-out snapshot so broadcasts run without
// holding the registry lock.
func (r *Registry) MembersOfRoom(roomID domain.RoomID) []MemberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.RoomID == roomID {
			out = append(out, MemberSnap{SID: sid, Conn: e.Conn})
		}
	}
	return out
}

// Cancel tears down the session's connection context, if any.
func (r *Registry) Cancel(sid SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
