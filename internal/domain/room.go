package domain

import "errors"

const (
	MaxRoomIDLen  = 64
	DefaultVolume = 100
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
	ErrVolumeRange   = errors.New("volume out of range")
)

type RoomID string

// RoomState is the ephemeral, non-queue part of a room. The replay
// nonce is a one-shot signal and is never persisted.
type RoomState struct {
	Volume      int    `json:"volume"`
	Muted       bool   `json:"muted"`
	ReplayNonce string `json:"replay_nonce,omitempty"`
}

func ValidRoomID(id RoomID) error {
	if len(id) == 0 {
		return ErrRoomIDEmpty
	}
	if len(id) > MaxRoomIDLen {
		return ErrRoomIDTooLong
	}
	return nil
}

func ValidVolume(v int) error {
	if v < 0 || v > 100 {
		return ErrVolumeRange
	}
	return nil
}
