package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/lingua-backend/internal/data/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

type EventKind string

const (
	EventOperation  EventKind = "operation"
	EventConflict   EventKind = "conflict"
	EventRetry      EventKind = "retry"
	EventTransition EventKind = "transition"
)

// Event is one hook call. Outcome is set for operations; From and To for transitions.
type Event struct {
	Kind     EventKind
	Op       string
	Outcome  string
	Duration time.Duration
	From, To learning.GenerationStatus
}

// HooksRecorder keeps every content store hook call in order.
type HooksRecorder struct {
	mu     sync.Mutex
	events []Event
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *HooksRecorder) ObserveOperation(op, outcome string, dur time.Duration) {
	h.add(Event{Kind: EventOperation, Op: op, Outcome: outcome, Duration: dur})
}

func (h *HooksRecorder) IncConflict(op string) { h.add(Event{Kind: EventConflict, Op: op}) }

func (h *HooksRecorder) IncRetry(op string) { h.add(Event{Kind: EventRetry, Op: op}) }

func (h *HooksRecorder) StatusChanged(op string, from, to learning.GenerationStatus) {
	h.add(Event{Kind: EventTransition, Op: op, From: from, To: to})
}

// Events returns a copy of everything recorded so far.
func (h *HooksRecorder) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Outcomes returns the recorded outcomes of one operation, in order.
func (h *HooksRecorder) Outcomes(op string) []string {
	var out []string
	for _, e := range h.Events() {
		if e.Kind == EventOperation && e.Op == op {
			out = append(out, e.Outcome)
		}
	}
	return out
}

// Conflicts returns the operations that reported a conflict, in order.
func (h *HooksRecorder) Conflicts() []string { return h.opsOf(EventConflict) }

// Retries returns the operations that reported a retryable failure, in order.
func (h *HooksRecorder) Retries() []string { return h.opsOf(EventRetry) }

// Transitions renders committed status changes as "from->to".
func (h *HooksRecorder) Transitions() []string {
	var out []string
	for _, e := range h.Events() {
		if e.Kind == EventTransition {
			out = append(out, string(e.From)+"->"+string(e.To))
		}
	}
	return out
}

func (h *HooksRecorder) opsOf(kind EventKind) []string {
	var out []string
	for _, e := range h.Events() {
		if e.Kind == kind {
			out = append(out, e.Op)
		}
	}
	return out
}
