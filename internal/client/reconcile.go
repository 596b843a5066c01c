package client

import (
	"time"

	"github.com/lshigami/Quolls/internal/dto"
)

// EffectiveState is the merged truth a resumed exam runs with.
type EffectiveState struct {
	AttemptID    uint
	StartedAt    time.Time
	Answers      map[string]uint
	CurrentIndex int
}

// Reconcile merges the canonical server state with an optional local
// snapshot. The server always wins for the attempt id and StartedAt; a
// cached start time must never be able to extend a test past the server's
// record. A snapshot only contributes at all if it is fresh AND references
// the same attempt id the server returned: anything stale or pointing at a
// reset/replaced attempt is discarded wholesale. When the snapshot is usable,
// its answers overlay the server's (it reflects the latest local interaction,
// which a failed flush may not have delivered) and its question index is kept
// for continuity.
func Reconcile(server dto.InitAttemptResponse, cached *CachedState, freshness time.Duration, now time.Time) EffectiveState {
	state := EffectiveState{
		AttemptID: server.AttemptID,
		StartedAt: server.StartedAt,
		Answers:   make(map[string]uint, len(server.Answers)),
	}
	for qid, oid := range server.Answers {
		state.Answers[qid] = oid
	}

	if !cached.Fresh(freshness, now) || cached.AttemptID != server.AttemptID {
		return state
	}
	for qid, oid := range cached.Answers {
		state.Answers[qid] = oid
	}
	state.CurrentIndex = cached.CurrentIndex
	return state
}
