package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type LessonArtifactStatusRepo interface {
	// Upsert writes the status row for (lesson, kind). Entering generating bumps attempts.
	Upsert(dbc dbctx.Context, row *types.LessonArtifactStatus) error
	ListByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonArtifactStatus, error)
	FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type lessonArtifactStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonArtifactStatusRepo(db *gorm.DB, baseLog *logger.Logger) LessonArtifactStatusRepo {
	return &lessonArtifactStatusRepo{db: db, log: baseLog.With("repo", "LessonArtifactStatusRepo")}
}

func (r *lessonArtifactStatusRepo) Upsert(dbc dbctx.Context, row *types.LessonArtifactStatus) error {
	if row == nil || row.LessonID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.Status == types.StatusGenerating && row.Attempts == 0 {
		row.Attempts = 1
	}
	assignments := map[string]interface{}{
		"status":     row.Status,
		"error":      row.Error,
		"updated_at": now,
	}
	if row.Status == types.StatusGenerating {
		assignments["attempts"] = gorm.Expr("lesson_artifact_status.attempts + 1")
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(row).Error
}

func (r *lessonArtifactStatusRepo) ListByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonArtifactStatus, error) {
	var out []*types.LessonArtifactStatus
	if len(lessonIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("lesson_id IN ?", lessonIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonArtifactStatusRepo) FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("lesson_id IN ?", lessonIDs).
		Delete(&types.LessonArtifactStatus{}).Error
}
