package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

// Hooks receives cache outcomes. *observability.Metrics satisfies it.
type Hooks interface {
	IncCacheLookup(category, result string)
	ObserveCacheGeneration(category, status string, dur time.Duration)
}

type noopHooks struct{}

func (noopHooks) IncCacheLookup(string, string)                        {}
func (noopHooks) ObserveCacheGeneration(string, string, time.Duration) {}

type Options struct {
	Store  Store
	Log    *logger.Logger
	Hooks  Hooks
	Tracer trace.Tracer
	Now    func() time.Time
}

// Cache maps request fingerprints to generated payloads and runs at most one
// generation per fingerprint at a time.
type Cache struct {
	store  Store
	locks  *keyLocks
	log    *logger.Logger
	hooks  Hooks
	tracer trace.Tracer
	now    func() time.Time
}

func New(opts Options) *Cache {
	c := &Cache{
		store:  opts.Store,
		locks:  newKeyLocks(),
		log:    opts.Log,
		hooks:  opts.Hooks,
		tracer: opts.Tracer,
		now:    opts.Now,
	}
	if c.store == nil {
		c.store = NewMemoryStore(0)
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	c.log = c.log.With("component", "ContentCache")
	if c.hooks == nil {
		c.hooks = noopHooks{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("lingua/cache")
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// GetOrGenerate returns the cached payload for req, calling gen only when no entry
// exists. Concurrent callers with the same fingerprint share one generator call.
func (c *Cache) GetOrGenerate(ctx context.Context, req Request, gen Generator) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: nil generator", ErrInvalidRequest)
	}
	fp, err := Fingerprint(req)
	if err != nil {
		return nil, err
	}
	category := string(req.Category)

	ctx, span := c.tracer.Start(ctx, "cache.GetOrGenerate", trace.WithAttributes(
		attribute.String("cache.category", category),
		attribute.String("cache.fingerprint", fp),
	))
	defer span.End()

	payload, err := c.lookup(ctx, fp)
	if err != nil {
		return nil, c.fail(span, category, err)
	}
	if payload != nil {
		c.hooks.IncCacheLookup(category, "hit")
		span.SetAttributes(attribute.String("cache.result", "hit"))
		return payload, nil
	}
	c.hooks.IncCacheLookup(category, "miss")

	unlock, err := c.locks.lock(ctx, fp)
	if err != nil {
		return nil, c.fail(span, category, fmt.Errorf("cache: wait for %s: %w", fp, err))
	}
	defer unlock()

	payload, err = c.lookup(ctx, fp)
	if err != nil {
		return nil, c.fail(span, category, err)
	}
	if payload != nil {
		c.hooks.IncCacheLookup(category, "joined")
		span.SetAttributes(attribute.String("cache.result", "joined"))
		return payload, nil
	}

	start := time.Now()
	raw, err := gen(ctx, req)
	if err != nil {
		c.hooks.ObserveCacheGeneration(category, "error", time.Since(start))
		return nil, c.fail(span, category, &GenerationError{Category: req.Category, Fingerprint: fp, Err: err})
	}
	payload, err = ValidatePayload(raw)
	if err != nil {
		c.hooks.ObserveCacheGeneration(category, "invalid", time.Since(start))
		return nil, c.fail(span, category, &GenerationError{Category: req.Category, Fingerprint: fp, Err: err})
	}
	c.hooks.ObserveCacheGeneration(category, "success", time.Since(start))

	now := c.now()
	stored, created, err := c.store.PutIfAbsent(ctx, Entry{
		Fingerprint:    fp,
		Category:       req.Category,
		Payload:        payload,
		CreatedAt:      now,
		LastAccessedAt: now,
	})
	if err != nil {
		return nil, c.fail(span, category, storageError("put", err))
	}
	if !created {
		c.log.Warn("cache entry written by another process", "category", category, "fingerprint", fp)
	}
	c.hooks.IncCacheLookup(category, "stored")
	span.SetAttributes(attribute.String("cache.result", "stored"))
	return stored.Payload, nil
}

// lookup returns the payload for fp and records the access, or nil when absent.
func (c *Cache) lookup(ctx context.Context, fp string) (json.RawMessage, error) {
	e, err := c.store.Get(ctx, fp)
	if err != nil {
		return nil, storageError("get", err)
	}
	if e == nil {
		return nil, nil
	}
	if err := c.store.Touch(ctx, fp, c.now()); err != nil {
		c.log.Warn("cache touch failed", "fingerprint", fp, "error", err)
	}
	return e.Payload, nil
}

func (c *Cache) fail(span trace.Span, category string, err error) error {
	c.hooks.IncCacheLookup(category, "error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		c.log.Warn("cache lookup failed", "category", category, "error", err)
	}
	return err
}
