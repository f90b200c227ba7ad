package aggregates

import (
	"context"
	"errors"
	"time"

	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

const (
	defaultTxAttempts = 3
	defaultTxBackoff  = 25 * time.Millisecond
)

// TxRunner is the transaction boundary for content store writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// gormTxRunner runs each write in a gorm transaction. A write that loses to another
// writer (sqlite "database is locked", postgres serialization failure or deadlock) is
// rolled back and run again from the start, up to attempts times.
type gormTxRunner struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db, attempts: defaultTxAttempts, backoff: defaultTxBackoff}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "content_store.tx", "transaction runner has no database", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || attempt >= r.attempts || !lostWriteRace(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
}

// lostWriteRace reports whether err is a transient lock or serialization failure.
// Context errors map to retryable for callers but are final here.
func lostWriteRace(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return domainagg.IsCode(MapError("content_store.tx", err), domainagg.CodeRetryable)
}
