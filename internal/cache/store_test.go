package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lingua-backend/internal/data/repos/testutil"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

func testEntry(fp, payload string) Entry {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Entry{
		Fingerprint:    fp,
		Category:       learning.CategoryFlashcards,
		Payload:        json.RawMessage(payload),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

// exerciseStore checks the Store contract shared by every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("Get(missing) = %v, %v", got, err)
	}

	stored, created, err := s.PutIfAbsent(ctx, testEntry("fp-1", `{"v":1}`))
	if err != nil || !created {
		t.Fatalf("first PutIfAbsent: created=%v err=%v", created, err)
	}
	if string(stored.Payload) != `{"v":1}` {
		t.Fatalf("unexpected stored payload %s", stored.Payload)
	}

	stored, created, err = s.PutIfAbsent(ctx, testEntry("fp-1", `{"v":2}`))
	if err != nil {
		t.Fatalf("second PutIfAbsent: %v", err)
	}
	if created {
		t.Fatal("second PutIfAbsent must not overwrite")
	}
	if string(stored.Payload) != `{"v":1}` {
		t.Fatalf("expected the original payload back, got %s", stored.Payload)
	}

	at := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)
	if err := s.Touch(ctx, "fp-1", at); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := s.Touch(ctx, "fp-1", at); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err = s.Get(ctx, "fp-1")
	if err != nil || got == nil {
		t.Fatalf("Get(fp-1) = %v, %v", got, err)
	}
	if got.AccessCount != 2 {
		t.Fatalf("expected access_count=2, got %d", got.AccessCount)
	}
	if !got.LastAccessedAt.Equal(at) {
		t.Fatalf("expected last_accessed_at=%v, got %v", at, got.LastAccessedAt)
	}
	if got.Category != learning.CategoryFlashcards {
		t.Fatalf("unexpected category %q", got.Category)
	}
	var v map[string]int
	if err := json.Unmarshal(got.Payload, &v); err != nil || v["v"] != 1 {
		t.Fatalf("unexpected payload %s (%v)", got.Payload, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStoreCapacityEvicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	for _, fp := range []string{"a", "b", "c"} {
		if _, _, err := s.PutIfAbsent(ctx, testEntry(fp, `{}`)); err != nil {
			t.Fatalf("PutIfAbsent(%s): %v", fp, err)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
	if e, _ := s.Get(ctx, "a"); e != nil {
		t.Fatal("expected the oldest entry to be evicted")
	}
}

func TestDBStore(t *testing.T) {
	db := testutil.DB(t)
	exerciseStore(t, NewDBStore(db, testutil.Logger(t)))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, "test")
	exerciseStore(t, s)
	if !mr.Exists("test:cache:fp-1") {
		t.Fatal("expected prefixed payload key")
	}
	if ttl := mr.TTL("test:cache:fp-1"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}

func TestCacheOverDBStoreSurvivesNewCache(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	gen := &countingGenerator{output: `{"word":"hola"}`}
	req := Request{Category: learning.CategoryFlashcards, Input: PlainText{Text: "greetings"}}

	if _, err := New(Options{Store: NewDBStore(db, log)}).GetOrGenerate(context.Background(), req, gen.generate); err != nil {
		t.Fatalf("first cache: %v", err)
	}
	out, err := New(Options{Store: NewDBStore(db, log)}).GetOrGenerate(context.Background(), req, gen.generate)
	if err != nil {
		t.Fatalf("second cache: %v", err)
	}
	if string(out) != `{"word":"hola"}` || gen.calls.Load() != 1 {
		t.Fatalf("expected persisted hit, got %s after %d calls", out, gen.calls.Load())
	}
}

func TestRedisStoreWritesEntryAtomically(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewRedisStore(rdb, "test")
	ctx := context.Background()

	// Bookkeeping without a payload is not an entry and does not block the write.
	mr.HSet("test:cache:fp-orphan", "access_count", "3")
	if got, err := s.Get(ctx, "fp-orphan"); err != nil || got != nil {
		t.Fatalf("Get(fp-orphan) = %v, %v", got, err)
	}
	if _, created, err := s.PutIfAbsent(ctx, testEntry("fp-orphan", `{"v":1}`)); err != nil || !created {
		t.Fatalf("PutIfAbsent over orphan: created=%v err=%v", created, err)
	}
	for _, field := range []string{"payload", "category", "created_at", "last_accessed_at"} {
		if mr.HGet("test:cache:fp-orphan", field) == "" {
			t.Fatalf("expected %s written with the payload", field)
		}
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	payloads := make([]string, 8)
	for i := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, created, err := s.PutIfAbsent(ctx, testEntry("fp-race", fmt.Sprintf(`{"writer":%d}`, i)))
			if err != nil {
				t.Errorf("PutIfAbsent: %v", err)
				return
			}
			if created {
				wins.Add(1)
			}
			payloads[i] = string(e.Payload)
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one writer to create the entry, got %d", wins.Load())
	}
	for i, p := range payloads {
		if p != payloads[0] {
			t.Fatalf("writer %d saw %s, writer 0 saw %s", i, p, payloads[0])
		}
	}
}
