package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/observability"
)

func curriculumRequest(text string) Request {
	return Request{
		Category:     learning.CategoryCurriculum,
		Input:        PlainText{Text: text},
		Instructions: "Build a curriculum.",
		Context:      map[string]string{"native": "english", "target": "spanish", "proficiency": "beginner"},
	}
}

type countingGenerator struct {
	calls  atomic.Int32
	output string
	err    error
}

func (g *countingGenerator) generate(ctx context.Context, _ Request) (string, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func TestGetOrGenerateIsIdempotent(t *testing.T) {
	metrics := observability.New()
	store := NewMemoryStore(0)
	c := New(Options{Store: store, Hooks: metrics})
	gen := &countingGenerator{output: `{"lessons":[]}`}
	ctx := context.Background()

	first, err := c.GetOrGenerate(ctx, curriculumRequest("Spanish for a trip"), gen.generate)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := c.GetOrGenerate(ctx, curriculumRequest("  spanish FOR a trip"), gen.generate)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("payload mismatch: %s vs %s", first, second)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("expected one generator call, got %d", n)
	}

	fp, _ := Fingerprint(curriculumRequest("Spanish for a trip"))
	e, err := store.Get(ctx, fp)
	if err != nil || e == nil {
		t.Fatalf("expected stored entry, err=%v", err)
	}
	if e.AccessCount != 1 {
		t.Fatalf("expected access_count=1, got %d", e.AccessCount)
	}
	if metrics.CacheLookups("curriculum", "hit") != 1 || metrics.CacheLookups("curriculum", "stored") != 1 {
		t.Fatal("expected one hit and one stored lookup")
	}
}

func TestGetOrGenerateAtMostOneGeneration(t *testing.T) {
	c := New(Options{})
	var calls atomic.Int32
	release := make(chan struct{})
	gen := func(ctx context.Context, _ Request) (string, error) {
		calls.Add(1)
		<-release
		return `{"ok":true}`, nil
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.GetOrGenerate(context.Background(), curriculumRequest("same request"), gen)
			if err == nil && string(out) != `{"ok":true}` {
				err = errors.New("unexpected payload " + string(out))
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("caller failed: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one generation, got %d", got)
	}
	if c.locks.size() != 0 {
		t.Fatalf("expected lock table to drain, has %d entries", c.locks.size())
	}
}

func TestDistinctFingerprintsDoNotBlockEachOther(t *testing.T) {
	c := New(Options{})
	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	go func() {
		_, _ = c.GetOrGenerate(context.Background(), curriculumRequest("slow"), func(context.Context, Request) (string, error) {
			close(started)
			<-block
			return `{}`, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.GetOrGenerate(ctx, curriculumRequest("fast"), func(context.Context, Request) (string, error) {
		return `{"fast":true}`, nil
	}); err != nil {
		t.Fatalf("independent fingerprint blocked: %v", err)
	}
}

func TestGetOrGenerateFailureIsNotCached(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(Options{Store: store})
	ctx := context.Background()

	boom := errors.New("upstream 500")
	failing := &countingGenerator{err: boom}
	_, err := c.GetOrGenerate(ctx, curriculumRequest("trip"), failing.generate)
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !errors.Is(err, boom) {
		t.Fatalf("expected GenerationError wrapping cause, got %v", err)
	}

	invalid := &countingGenerator{output: "sorry, I cannot help"}
	_, err = c.GetOrGenerate(ctx, curriculumRequest("trip"), invalid.generate)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected invalid payload error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected nothing cached, store has %d entries", store.Len())
	}

	ok := &countingGenerator{output: `{"lessons":[1]}`}
	if _, err := c.GetOrGenerate(ctx, curriculumRequest("trip"), ok.generate); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if ok.calls.Load() != 1 {
		t.Fatal("expected the generator to run after earlier failures")
	}
}

func TestGeneratorCancellationLeavesNoEntry(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(Options{Store: store})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrGenerate(ctx, curriculumRequest("trip"), func(ctx context.Context, _ Request) (string, error) {
		return "", ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("cancelled generation must not be cached")
	}
}

func TestWaitingRespectsContext(t *testing.T) {
	c := New(Options{})
	hold := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrGenerate(context.Background(), curriculumRequest("contended"), func(context.Context, Request) (string, error) {
			close(started)
			<-hold
			return `{}`, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetOrGenerate(ctx, curriculumRequest("contended"), func(context.Context, Request) (string, error) {
		t.Error("waiter must not generate")
		return `{}`, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(hold)
	<-done
	if c.locks.size() != 0 {
		t.Fatalf("expected lock table to drain, has %d entries", c.locks.size())
	}
}

type failingStore struct{ MemoryStore }

func (*failingStore) Get(context.Context, string) (*Entry, error) {
	return nil, errors.New("connection refused")
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	c := New(Options{Store: &failingStore{}})
	gen := &countingGenerator{output: `{}`}
	_, err := c.GetOrGenerate(context.Background(), curriculumRequest("trip"), gen.generate)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if gen.calls.Load() != 0 {
		t.Fatal("generator must not run when storage is unavailable")
	}
}

func TestInvalidRequestRejected(t *testing.T) {
	c := New(Options{})
	gen := &countingGenerator{output: `{}`}
	_, err := c.GetOrGenerate(context.Background(), Request{Category: learning.CategoryMetadata}, gen.generate)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGetOrGenerateCachesStringPayloads(t *testing.T) {
	store := NewMemoryStore(0)
	c := New(Options{Store: store})
	ctx := context.Background()
	gen := &countingGenerator{output: `"Hola, ¿qué tal?"`}

	for i := 0; i < 2; i++ {
		got, err := c.GetOrGenerate(ctx, curriculumRequest("greeting"), gen.generate)
		if err != nil {
			t.Fatalf("GetOrGenerate: %v", err)
		}
		if string(got) != `"Hola, ¿qué tal?"` {
			t.Fatalf("unexpected payload %s", got)
		}
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected one generator call, got %d", gen.calls.Load())
	}
	if store.Len() != 1 {
		t.Fatalf("expected one entry, got %d", store.Len())
	}
}
