// Package upstream holds the thin clients for the external
// collaborators: video search, lyrics lookup and AI title extraction.
// Their failures are reported to the requesting participant only and
// are never fatal to a room.
package upstream

import "errors"

var (
	ErrUnavailable = errors.New("upstream unavailable")
	ErrRateLimited = errors.New("upstream rate limited")
	ErrEmptyResult = errors.New("upstream returned empty result")
)
