package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}

// executeWrite runs fn in one transaction, maps its error to a coded aggregate error
// and reports the outcome to hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	mapped := MapError(op, deps.Runner.InTx(ctx, fn))
	report(deps.Hooks, deps.Log, op, mapped, time.Since(start))
	return mapped
}

// executeRead runs fn outside a transaction with the same error mapping as writes.
func executeRead(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	mapped := MapError(op, fn(dbctx.Context{Ctx: ctx}))
	report(deps.Hooks, deps.Log, op, mapped, time.Since(start))
	return mapped
}
