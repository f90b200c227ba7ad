package learning

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type CacheEntryRepo interface {
	GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.CacheEntry, error)
	// InsertIfAbsent never overwrites; it reports whether this call created the row.
	InsertIfAbsent(dbc dbctx.Context, row *types.CacheEntry) (bool, error)
	Touch(dbc dbctx.Context, fingerprint string, at time.Time) error
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{db: db, log: baseLog.With("repo", "CacheEntryRepo")}
}

func (r *cacheEntryRepo) GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.CacheEntry, error) {
	var out []*types.CacheEntry
	if fingerprint == "" {
		return nil, nil
	}
	if err := dbc.DB(r.db).Where("fingerprint = ?", fingerprint).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *cacheEntryRepo) InsertIfAbsent(dbc dbctx.Context, row *types.CacheEntry) (bool, error) {
	if row == nil || row.Fingerprint == "" {
		return false, nil
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.LastAccessedAt.IsZero() {
		row.LastAccessedAt = row.CreatedAt
	}
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *cacheEntryRepo) Touch(dbc dbctx.Context, fingerprint string, at time.Time) error {
	if fingerprint == "" {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.CacheEntry{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]interface{}{
			"last_accessed_at": at.UTC(),
			"access_count":     gorm.Expr("access_count + 1"),
		}).Error
}
