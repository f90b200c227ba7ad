package cache

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lingua-backend/internal/data/repos"
	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

// DBStore persists entries in the cache_entry table. It never evicts.
type DBStore struct {
	repo repos.CacheEntryRepo
}

func NewDBStore(db *gorm.DB, log *logger.Logger) *DBStore {
	return &DBStore{repo: repos.NewCacheEntryRepo(db, log)}
}

func (s *DBStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	row, err := s.repo.GetByFingerprint(dbctx.Context{Ctx: ctx}, fingerprint)
	if err != nil || row == nil {
		return nil, err
	}
	return entryFromRow(row), nil
}

func (s *DBStore) Touch(ctx context.Context, fingerprint string, at time.Time) error {
	return s.repo.Touch(dbctx.Context{Ctx: ctx}, fingerprint, at)
}

func (s *DBStore) PutIfAbsent(ctx context.Context, e Entry) (*Entry, bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	row := &types.CacheEntry{
		Fingerprint:    e.Fingerprint,
		Category:       e.Category,
		Payload:        datatypes.JSON(e.Payload),
		CreatedAt:      e.CreatedAt,
		LastAccessedAt: e.LastAccessedAt,
		AccessCount:    e.AccessCount,
	}
	created, err := s.repo.InsertIfAbsent(dbc, row)
	if err != nil {
		return nil, false, err
	}
	if created {
		return e.clone(), true, nil
	}
	existing, err := s.repo.GetByFingerprint(dbc, e.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Lost a race with nothing visible; fall back to the caller's entry.
		return e.clone(), false, nil
	}
	return entryFromRow(existing), false, nil
}

func entryFromRow(row *types.CacheEntry) *Entry {
	return &Entry{
		Fingerprint:    row.Fingerprint,
		Category:       row.Category,
		Payload:        json.RawMessage(row.Payload),
		CreatedAt:      row.CreatedAt,
		LastAccessedAt: row.LastAccessedAt,
		AccessCount:    row.AccessCount,
	}
}
