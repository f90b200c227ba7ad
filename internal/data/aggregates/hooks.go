package aggregates

import (
	"strings"
	"time"

	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

// Hooks receives content store outcomes. Operation names are the store's op strings,
// e.g. "Learning.ContentStore.UpdateStatus".
type Hooks interface {
	// ObserveOperation reports every read or write with its outcome: "success" or the
	// aggregate error code it failed with.
	ObserveOperation(op, outcome string, dur time.Duration)
	// IncConflict counts illegal transitions, lost compare-and-sets and duplicate bodies.
	IncConflict(op string)
	// IncRetry counts failures a caller may retry: a locked or unreachable database.
	IncRetry(op string)
	// StatusChanged reports a curriculum status transition once it has committed.
	StatusChanged(op string, from, to learning.GenerationStatus)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration)                             {}
func (noopHooks) IncConflict(string)                                                         {}
func (noopHooks) IncRetry(string)                                                            {}
func (noopHooks) StatusChanged(string, learning.GenerationStatus, learning.GenerationStatus) {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks reports store outcomes and committed transitions to metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{metrics: metrics}
}

func (h metricsHooks) ObserveOperation(op, outcome string, dur time.Duration) {
	h.metrics.ObserveStoreOperation(strings.TrimSpace(op), strings.TrimSpace(outcome), dur)
}

func (h metricsHooks) IncConflict(op string) { h.metrics.IncStoreConflict(strings.TrimSpace(op)) }

func (h metricsHooks) IncRetry(op string) { h.metrics.IncStoreRetry(strings.TrimSpace(op)) }

func (h metricsHooks) StatusChanged(_ string, from, to learning.GenerationStatus) {
	h.metrics.IncCurriculumTransition(string(from), string(to))
}

// report classifies a finished store call for hooks. Internal failures are also logged,
// since nothing upstream can act on them.
func report(hooks Hooks, log *logger.Logger, op string, err error, dur time.Duration) {
	outcome := outcomeOf(err)
	switch domainagg.CodeOf(err) {
	case domainagg.CodeConflict:
		hooks.IncConflict(op)
	case domainagg.CodeRetryable, domainagg.CodeStorageUnavailable:
		hooks.IncRetry(op)
	case domainagg.CodeInternal:
		log.Error("content store operation failed", "op", op, "error", err)
	}
	hooks.ObserveOperation(op, outcome, dur)
}

// outcomeOf is "success" for nil and the aggregate code otherwise. Uncoded errors are
// classified through MapError first.
func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError("content_store.outcome", err))
	}
	if code == "" {
		return "failure"
	}
	return string(code)
}
