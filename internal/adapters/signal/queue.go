package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"jamroom/internal/app"
	"jamroom/internal/domain"
)

func (ctl *RoomWSController) handleAdd(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type addPayload struct {
		Type     string `json:"type"`
		VideoRef string `json:"video_ref"`
		Title    string `json:"title"`
		Author   string `json:"author"`
		Thumb    string `json:"thumbnail_ref"`
		Duration string `json:"duration"`
		PlayNext bool   `json:"play_next"`
	}
	var p addPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad add payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	draft := domain.EntryDraft{
		VideoRef:        p.VideoRef,
		Title:           p.Title,
		Author:          p.Author,
		ThumbnailRef:    p.Thumb,
		DurationDisplay: p.Duration,
	}
	ctl.runQueueCommand(sid, conn, func() (domain.RoomID, []domain.Entry, error) {
		return ctl.Orch.AddEntry(sid, draft, p.PlayNext)
	})
}

func (ctl *RoomWSController) handlePin(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type pinPayload struct {
		Type    string `json:"type"`
		EntryID string `json:"entry_id"`
	}
	var p pinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad pin payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	ctl.runQueueCommand(sid, conn, func() (domain.RoomID, []domain.Entry, error) {
		return ctl.Orch.PinEntry(sid, p.EntryID)
	})
}

func (ctl *RoomWSController) handleReorder(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type reorderPayload struct {
		Type  string   `json:"type"`
		Order []string `json:"order"`
	}
	var p reorderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad reorder payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	ctl.runQueueCommand(sid, conn, func() (domain.RoomID, []domain.Entry, error) {
		return ctl.Orch.ProposeReorder(sid, p.Order)
	})
}

func (ctl *RoomWSController) handleRemove(
	sid app.SessionID,
	conn *wsConn,
	data []byte,
) {
	type removePayload struct {
		Type    string `json:"type"`
		EntryID string `json:"entry_id"`
	}
	var p removePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad remove payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	ctl.runQueueCommand(sid, conn, func() (domain.RoomID, []domain.Entry, error) {
		return ctl.Orch.RemoveEntry(sid, p.EntryID)
	})
}

func (ctl *RoomWSController) handleAdvance(
	sid app.SessionID,
	conn *wsConn,
) {
	ctl.runQueueCommand(sid, conn, func() (domain.RoomID, []domain.Entry, error) {
		return ctl.Orch.Advance(sid)
	})
}
