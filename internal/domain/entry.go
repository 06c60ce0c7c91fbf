// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxTitleLen = 300

var (
	ErrVideoRefEmpty = errors.New("video ref empty")
	ErrTitleTooLong  = errors.New("title too long")
)

// Entry is one queued, playable item. The store assigns ID and
// PositionKey; everything else comes from the participant who added it.
type Entry struct {
	ID              string    `json:"id"`
	VideoRef        string    `json:"video_ref"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ThumbnailRef    string    `json:"thumbnail_ref"`
	DurationDisplay string    `json:"duration"`
	PositionKey     float64   `json:"-"`
	AddedAt         time.Time `json:"added_at"`
}

// Before orders entries by position key; ties break on add time, then id,
// so the order is total even between renormalizations.
func (e *Entry) Before(other *Entry) bool {
	if e.PositionKey != other.PositionKey {
		return e.PositionKey < other.PositionKey
	}
	if !e.AddedAt.Equal(other.AddedAt) {
		return e.AddedAt.Before(other.AddedAt)
	}
	return e.ID < other.ID
}

// EntryDraft is the participant-supplied part of an entry.
type EntryDraft struct {
	VideoRef        string `json:"video_ref"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ThumbnailRef    string `json:"thumbnail_ref"`
	DurationDisplay string `json:"duration"`
}

// Validate keeps bad payloads out of the store; adapters call it before
// any mutation.
func (d EntryDraft) Validate() error {
	if d.VideoRef == "" {
		return ErrVideoRefEmpty
	}
	if len(d.Title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}
