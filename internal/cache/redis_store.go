package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

// RedisStore keeps each entry in one hash: the payload field plus its access
// bookkeeping. The hash is created whole under WATCH/MULTI, so a payload never exists
// without its metadata. Keys carry no TTL.
type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisStore(rdb goredis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "lingua"
	}
	return &RedisStore{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":") + ":"}
}

func (s *RedisStore) key(fp string) string { return s.prefix + "cache:" + fp }

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(fingerprint)).Result()
	if err != nil {
		return nil, err
	}
	return entryFromHash(fingerprint, fields), nil
}

func (s *RedisStore) Touch(ctx context.Context, fingerprint string, at time.Time) error {
	key := s.key(fingerprint)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "last_accessed_at", at.UnixNano())
	pipe.HIncrBy(ctx, key, "access_count", 1)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, e Entry) (*Entry, bool, error) {
	key := s.key(e.Fingerprint)
	created := false
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.HExists(ctx, key, "payload").Result()
		if err != nil || exists {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"payload", []byte(e.Payload),
				"category", string(e.Category),
				"created_at", e.CreatedAt.UnixNano(),
				"last_accessed_at", e.LastAccessedAt.UnixNano(),
				"access_count", e.AccessCount,
			)
			return nil
		})
		created = err == nil
		return err
	}, key)
	// A failed WATCH means another writer touched the key first; its entry wins.
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return nil, false, err
	}
	if created {
		return e.clone(), true, nil
	}
	existing, err := s.Get(ctx, e.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return e.clone(), false, nil
}

// entryFromHash returns nil when the hash holds no payload.
func entryFromHash(fingerprint string, fields map[string]string) *Entry {
	payload, ok := fields["payload"]
	if !ok {
		return nil
	}
	e := &Entry{
		Fingerprint:    fingerprint,
		Category:       learning.CacheCategory(fields["category"]),
		Payload:        json.RawMessage(payload),
		CreatedAt:      parseUnixNano(fields["created_at"]),
		LastAccessedAt: parseUnixNano(fields["last_accessed_at"]),
	}
	e.AccessCount, _ = strconv.ParseInt(fields["access_count"], 10, 64)
	return e
}

func parseUnixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
