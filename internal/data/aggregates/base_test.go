package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
)

type directRunner struct{ calls int }

func (r *directRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

type recordedOp struct {
	name, status string
}

type recordingHooks struct {
	ops       []recordedOp
	conflicts []string
	retries   []string
}

func (h *recordingHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.ops = append(h.ops, recordedOp{name, status})
}
func (h *recordingHooks) IncConflict(name string) { h.conflicts = append(h.conflicts, name) }
func (h *recordingHooks) IncRetry(name string)    { h.retries = append(h.retries, name) }

func (h *recordingHooks) StatusChanged(string, learning.GenerationStatus, learning.GenerationStatus) {}

func TestExecuteWriteClassifiesOutcome(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      domainagg.ErrorCode
		status    string
		conflicts int
		retries   int
	}{
		{name: "success", status: "success"},
		{name: "bad input", err: ValidationError("lesson_topic is required"), code: domainagg.CodeValidation, status: "validation"},
		{name: "missing lesson", err: NotFoundError("lesson not found"), code: domainagg.CodeNotFound, status: "not_found"},
		{name: "lessons already attached", err: InvariantError("curriculum already has lessons"), code: domainagg.CodeInvariantViolation, status: "invariant_violation"},
		{name: "illegal transition", err: ConflictError("pending -> completed"), code: domainagg.CodeConflict, status: "conflict", conflicts: 1},
		{name: "locked", err: RetryableError("database is locked"), code: domainagg.CodeRetryable, status: "retryable", retries: 1},
		{name: "db down", err: ErrStorageUnavailable, code: domainagg.CodeStorageUnavailable, status: "storage_unavailable", retries: 1},
		{name: "canceled", err: context.Canceled, code: domainagg.CodeRetryable, status: "retryable", retries: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &recordingHooks{}
			runner := &directRunner{}
			err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "content_store.test", func(dbctx.Context) error {
				return tc.err
			})
			if tc.err == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.err != nil && !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want code %s, got %v", tc.code, err)
			}
			if runner.calls != 1 {
				t.Fatalf("expected one transaction, got %d", runner.calls)
			}
			if len(hooks.ops) != 1 || hooks.ops[0] != (recordedOp{"content_store.test", tc.status}) {
				t.Fatalf("unexpected ops %+v", hooks.ops)
			}
			if len(hooks.conflicts) != tc.conflicts || len(hooks.retries) != tc.retries {
				t.Fatalf("conflicts=%v retries=%v", hooks.conflicts, hooks.retries)
			}
		})
	}
}

func TestExecuteReadSkipsTransaction(t *testing.T) {
	hooks := &recordingHooks{}
	runner := &directRunner{}
	err := executeRead(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "content_store.get", func(dbc dbctx.Context) error {
		if dbc.Tx != nil {
			t.Fatal("reads must not open a transaction")
		}
		return NotFoundError("curriculum missing")
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not be used for reads, got %d calls", runner.calls)
	}
	if len(hooks.ops) != 1 || hooks.ops[0].status != "not_found" {
		t.Fatalf("unexpected ops %+v", hooks.ops)
	}
}

func TestExecuteWriteKeepsCodedErrors(t *testing.T) {
	coded := domainagg.NewError(domainagg.CodeGeneration, "build", "model failed", errors.New("502"))
	err := executeWrite(context.Background(), BaseDeps{Runner: &directRunner{}}, "content_store.test", func(dbctx.Context) error {
		return coded
	})
	if err != coded {
		t.Fatalf("coded errors should pass through unchanged, got %v", err)
	}
	if got := outcomeOf(err); got != "generation" {
		t.Fatalf("status: got %s", got)
	}
	if got := outcomeOf(errors.New("unexpected")); got != "internal" {
		t.Fatalf("uncoded errors are classified through MapError, got %s", got)
	}
}
