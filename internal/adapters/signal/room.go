package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"jamroom/internal/app"
	"jamroom/internal/domain"
)

type queueChanged struct {
	Type  string         `json:"type"`
	Room  domain.RoomID  `json:"room"`
	Queue []domain.Entry `json:"queue"`
}

func (ctl *RoomWSController) handleJoin(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	// Lock before subscribing so the snapshot cannot be outrun by a
	// concurrent commit's broadcast.
	mu := ctl.roomLock(domain.RoomID(p.Room))
	mu.Lock()
	defer mu.Unlock()

	res, err := ctl.Orch.Join(sid, domain.RoomID(p.Room))
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", p.Room).Msg("join rejected")
		ctl.sendError(conn, err.Error())
		return
	}

	// The snapshot goes out before any live update can: the sender's
	// own pump serializes it ahead of later broadcasts.
	resp := struct {
		Type   string         `json:"type"`
		Room   domain.RoomID  `json:"room"`
		Queue  []domain.Entry `json:"queue"`
		Volume int            `json:"volume"`
		Muted  bool           `json:"muted"`
	}{
		Type:   "room_state",
		Room:   res.RoomID,
		Queue:  res.Queue,
		Volume: res.State.Volume,
		Muted:  res.State.Muted,
	}
	_ = ctl.sendJSON(conn, resp)
}

// handleLeave drops the room subscription, the connection stays up.
func (ctl *RoomWSController) handleLeave(
	sid app.SessionID,
	conn *wsConn,
) {
	ctl.Orch.Leave(sid)
	_ = ctl.sendJSON(conn, map[string]any{
		"type": "left",
	})
}

func (ctl *RoomWSController) handleSetVolume(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type volumePayload struct {
		Type   string `json:"type"`
		Volume int    `json:"volume"`
	}
	var p volumePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad volume payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	roomID, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok {
		ctl.sendError(conn, domain.ErrRoomNotFound.Error())
		return
	}
	mu := ctl.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	roomID, state, err := ctl.Orch.SetVolume(sid, p.Volume)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}

	ctl.BroadcastRoom(roomID, struct {
		Type   string        `json:"type"`
		Room   domain.RoomID `json:"room"`
		Volume int           `json:"volume"`
	}{
		Type:   "volume",
		Room:   roomID,
		Volume: state.Volume,
	})
}

func (ctl *RoomWSController) handleSetMuted(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type mutedPayload struct {
		Type  string `json:"type"`
		Muted bool   `json:"muted"`
	}
	var p mutedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad muted payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	roomID, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok {
		ctl.sendError(conn, domain.ErrRoomNotFound.Error())
		return
	}
	mu := ctl.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	roomID, state, err := ctl.Orch.SetMuted(sid, p.Muted)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}

	ctl.BroadcastRoom(roomID, struct {
		Type  string        `json:"type"`
		Room  domain.RoomID `json:"room"`
		Muted bool          `json:"muted"`
	}{
		Type:  "muted",
		Room:  roomID,
		Muted: state.Muted,
	})
}

func (ctl *RoomWSController) handleReplay(
	sid app.SessionID,
	conn *wsConn,
) {
	roomID, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok {
		ctl.sendError(conn, domain.ErrRoomNotFound.Error())
		return
	}
	mu := ctl.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	roomID, nonce, err := ctl.Orch.SignalReplay(sid)
	if err != nil {
		ctl.sendError(conn, err.Error())
		return
	}

	ctl.BroadcastRoom(roomID, struct {
		Type  string        `json:"type"`
		Room  domain.RoomID `json:"room"`
		Nonce string        `json:"nonce"`
	}{
		Type:  "replay",
		Room:  roomID,
		Nonce: nonce,
	})
}

// runQueueCommand applies one queue mutation and fans out its result
// under the room's command lock.
func (ctl *RoomWSController) runQueueCommand(
	sid app.SessionID,
	conn *wsConn,
	apply func() (domain.RoomID, []domain.Entry, error),
) {
	roomID, ok := ctl.Orch.Registry.RoomOf(sid)
	if !ok {
		ctl.sendError(conn, domain.ErrRoomNotFound.Error())
		return
	}
	mu := ctl.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, snap, err := apply()
	ctl.reportOrBroadcast(conn, room, snap, err)
}

// reportOrBroadcast routes a command result: commit → whole room,
// participant-only failures (stale id, not joined) → sender alone.
func (ctl *RoomWSController) reportOrBroadcast(
	conn *wsConn,
	roomID domain.RoomID,
	snap []domain.Entry,
	err error,
) {
	switch {
	case err == nil:
		ctl.BroadcastRoom(roomID, queueChanged{Type: "queue", Room: roomID, Queue: snap})
	case errors.Is(err, domain.ErrStaleProposal):
		// Rejected proposal: re-send the authoritative sequence to the
		// proposer only; nobody else saw anything change.
		_ = ctl.sendJSON(conn, queueChanged{Type: "queue", Room: roomID, Queue: snap})
	case errors.Is(err, domain.ErrEntryNotFound):
		_ = ctl.sendJSON(conn, queueChanged{Type: "queue", Room: roomID, Queue: snap})
	default:
		ctl.sendError(conn, err.Error())
	}
}
