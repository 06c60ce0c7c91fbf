package queue

import (
	"sort"

	"jamroom/internal/domain"
)

// Position keys are floats so an insert near the front never rewrites
// the rest of the room. Midpoint inserts halve the gap between the head
// and the current second entry; once any midpoint insert happened, or
// two keys drift closer than keyEpsilon, the whole room is renumbered
// to consecutive integers in one batch.
const keyEpsilon = 1e-9

func sortEntries(entries []*domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Before(entries[j])
	})
}

// nextTailKey returns the key for an ordinary append.
func nextTailKey(entries []*domain.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	max := entries[0].PositionKey
	for _, e := range entries[1:] {
		if e.PositionKey > max {
			max = e.PositionKey
		}
	}
	return max + 1
}

// secondSlotKey returns a key that places a new entry immediately after
// the head. Callers must not pass an empty sequence.
func secondSlotKey(entries []*domain.Entry) float64 {
	head := entries[0]
	if len(entries) == 1 {
		return head.PositionKey + 1
	}
	second := entries[1]
	return head.PositionKey + (second.PositionKey-head.PositionKey)/2
}

// renormalize rewrites keys to 0..n-1 preserving relative order. The
// head always ends up at key 0.
func renormalize(entries []*domain.Entry) {
	sortEntries(entries)
	for i, e := range entries {
		e.PositionKey = float64(i)
	}
}

// needsRenormalize reports whether two adjacent keys are no longer
// distinguishable under float64.
func needsRenormalize(entries []*domain.Entry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].PositionKey-entries[i-1].PositionKey < keyEpsilon {
			return true
		}
	}
	return false
}
