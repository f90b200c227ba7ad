package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

var (
	ErrInvalidRequest     = errors.New("cache: invalid request")
	ErrInvalidPayload     = errors.New("cache: invalid payload")
	ErrStorageUnavailable = errors.New("cache: storage unavailable")
)

// Entry is one cached generation. Only LastAccessedAt and AccessCount ever change.
type Entry struct {
	Fingerprint    string
	Category       learning.CacheCategory
	Payload        json.RawMessage
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Payload = append(json.RawMessage(nil), e.Payload...)
	return &out
}

// Store persists entries. Implementations never overwrite an existing fingerprint.
type Store interface {
	// Get returns nil, nil when fingerprint is absent.
	Get(ctx context.Context, fingerprint string) (*Entry, error)
	// Touch records one access.
	Touch(ctx context.Context, fingerprint string, at time.Time) error
	// PutIfAbsent stores e unless the fingerprint exists, and returns whichever entry
	// is now stored along with whether e was the one written.
	PutIfAbsent(ctx context.Context, e Entry) (*Entry, bool, error)
}

// GenerationError reports a failed or rejected generation. Nothing is cached for it.
type GenerationError struct {
	Category    learning.CacheCategory
	Fingerprint string
	Err         error
}

func (e *GenerationError) Error() string {
	return "cache: generate " + string(e.Category) + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return &storageErr{op: op, err: err}
}

type storageErr struct {
	op  string
	err error
}

func (e *storageErr) Error() string { return "cache: " + e.op + ": " + e.err.Error() }

func (e *storageErr) Unwrap() []error { return []error{ErrStorageUnavailable, e.err} }
