package learning

import "strings"

type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusGenerating GenerationStatus = "generating"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

func ParseGenerationStatus(s string) (GenerationStatus, bool) {
	st := GenerationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", false
	}
	return st, true
}

func (s GenerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no work is in flight for s.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// transitions lists the legal predecessors of each status. completed and failed may
// both re-enter generating for a new attempt; nothing returns to pending.
var transitions = map[GenerationStatus][]GenerationStatus{
	StatusGenerating: {StatusPending, StatusFailed, StatusCompleted},
	StatusCompleted:  {StatusGenerating},
	StatusFailed:     {StatusGenerating},
}

// AllowedPredecessors returns the statuses from which `to` may be entered.
func AllowedPredecessors(to GenerationStatus) []GenerationStatus {
	out := make([]GenerationStatus, len(transitions[to]))
	copy(out, transitions[to])
	return out
}

// CanTransition reports whether from -> to is legal. Staying in place is always allowed.
func CanTransition(from, to GenerationStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, p := range transitions[to] {
		if p == from {
			return true
		}
	}
	return false
}

// AggregateStatus folds per-lesson statuses of one artifact kind into a single value:
// any failure wins, then any in-flight generation, then completed only when every
// lesson completed. An empty input is pending.
func AggregateStatus(statuses []GenerationStatus) GenerationStatus {
	if len(statuses) == 0 {
		return StatusPending
	}
	var generating, completed int
	for _, s := range statuses {
		switch s {
		case StatusFailed:
			return StatusFailed
		case StatusGenerating:
			generating++
		case StatusCompleted:
			completed++
		}
	}
	switch {
	case generating > 0:
		return StatusGenerating
	case completed == len(statuses):
		return StatusCompleted
	default:
		return StatusPending
	}
}
