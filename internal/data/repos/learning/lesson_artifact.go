package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type LessonArtifactRepo interface {
	Create(dbc dbctx.Context, rows []*types.LessonArtifact) ([]*types.LessonArtifact, error)
	// ListByLessonIDs returns rows ordered by lesson, kind and position.
	ListByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonArtifact, error)
	ListByLessonAndKind(dbc dbctx.Context, lessonID uuid.UUID, kind types.ArtifactKind) ([]*types.LessonArtifact, error)
	DeleteByLessonAndKind(dbc dbctx.Context, lessonID uuid.UUID, kind types.ArtifactKind) error
	FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type lessonArtifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonArtifactRepo(db *gorm.DB, baseLog *logger.Logger) LessonArtifactRepo {
	return &lessonArtifactRepo{db: db, log: baseLog.With("repo", "LessonArtifactRepo")}
}

func (r *lessonArtifactRepo) Create(dbc dbctx.Context, rows []*types.LessonArtifact) ([]*types.LessonArtifact, error) {
	if len(rows) == 0 {
		return []*types.LessonArtifact{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *lessonArtifactRepo) ListByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.LessonArtifact, error) {
	var out []*types.LessonArtifact
	if len(lessonIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("lesson_id IN ?", lessonIDs).
		Order("lesson_id, kind, position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonArtifactRepo) ListByLessonAndKind(dbc dbctx.Context, lessonID uuid.UUID, kind types.ArtifactKind) ([]*types.LessonArtifact, error) {
	var out []*types.LessonArtifact
	if err := dbc.DB(r.db).
		Where("lesson_id = ? AND kind = ?", lessonID, kind).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonArtifactRepo) DeleteByLessonAndKind(dbc dbctx.Context, lessonID uuid.UUID, kind types.ArtifactKind) error {
	return dbc.DB(r.db).
		Where("lesson_id = ? AND kind = ?", lessonID, kind).
		Delete(&types.LessonArtifact{}).Error
}

func (r *lessonArtifactRepo) FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("lesson_id IN ?", lessonIDs).
		Delete(&types.LessonArtifact{}).Error
}
