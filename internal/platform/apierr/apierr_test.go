package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/lingua-backend/internal/cache"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/jobs/worker"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"queue full", fmt.Errorf("enqueue: %w", worker.ErrQueueFull), http.StatusServiceUnavailable, "queue_full"},
		{"duplicate job", fmt.Errorf("enqueue: %w", worker.ErrDuplicateJob), http.StatusConflict, "conflict"},
		{"generation", &cache.GenerationError{Category: learning.CategoryCurriculum, Err: errors.New("boom")}, http.StatusBadGateway, "generation"},
		{"invalid request", fmt.Errorf("%w: empty", cache.ErrInvalidRequest), http.StatusBadRequest, "validation"},
		{"storage", fmt.Errorf("get: %w", cache.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{"not found", domainagg.NewError(domainagg.CodeNotFound, "get", "curriculum not found", nil), http.StatusNotFound, "not_found"},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "retry", "already generating", nil), http.StatusConflict, "conflict"},
		{"validation", domainagg.NewError(domainagg.CodeValidation, "create", "bad", nil), http.StatusBadRequest, "validation"},
		{"timeout", fmt.Errorf("wait: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err)
			if got == nil {
				t.Fatal("expected classified error")
			}
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("got %d/%s, want %d/%s", got.Status, got.Code, tc.status, tc.code)
			}
			if !errors.Is(got, tc.err) {
				t.Fatal("classified error should wrap the cause")
			}
		})
	}
}

func TestFromKeepsExplicitError(t *testing.T) {
	explicit := New(http.StatusTeapot, "teapot", nil)
	if got := From(fmt.Errorf("wrapped: %w", explicit)); got != explicit {
		t.Fatalf("expected explicit error to pass through, got %v", got)
	}
	if From(nil) != nil {
		t.Fatal("nil in, nil out")
	}
}
