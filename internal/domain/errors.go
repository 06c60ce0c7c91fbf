package domain

import "errors"

// Store-level failure taxonomy. EntryNotFound and StaleProposal are
// reported to the issuing participant only; other subscribers never
// observe them.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrEntryNotFound = errors.New("entry not found")
	ErrStaleProposal = errors.New("stale reorder proposal")
)
