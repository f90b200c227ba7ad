package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/lingua-backend/internal/cache"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/jobs/worker"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From classifies err into the status and code returned to API clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, worker.ErrQueueFull) {
		return New(http.StatusServiceUnavailable, "queue_full", err)
	}
	if errors.Is(err, worker.ErrDuplicateJob) {
		return New(http.StatusConflict, string(domainagg.CodeConflict), err)
	}
	var genErr *cache.GenerationError
	if errors.As(err, &genErr) {
		return New(http.StatusBadGateway, string(domainagg.CodeGeneration), err)
	}
	if errors.Is(err, cache.ErrStorageUnavailable) {
		return New(http.StatusServiceUnavailable, string(domainagg.CodeStorageUnavailable), err)
	}
	if errors.Is(err, cache.ErrInvalidRequest) {
		return New(http.StatusBadRequest, string(domainagg.CodeValidation), err)
	}
	switch code := domainagg.CodeOf(err); code {
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, string(code), err)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case domainagg.CodeConflict, domainagg.CodePreconditionFailed:
		return New(http.StatusConflict, string(code), err)
	case domainagg.CodeStorageUnavailable, domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, string(code), err)
	case domainagg.CodeGeneration:
		return New(http.StatusBadGateway, string(code), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(http.StatusGatewayTimeout, "timeout", err)
	}
	return New(http.StatusInternalServerError, string(domainagg.CodeInternal), err)
}
