package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error)
	// GetByCurriculumID returns lessons ordered by order_index.
	GetByCurriculumID(dbc dbctx.Context, curriculumID uuid.UUID) ([]*types.Lesson, error)
	CountByCurriculumID(dbc dbctx.Context, curriculumID uuid.UUID) (int64, error)
	FullDeleteByCurriculumIDs(dbc dbctx.Context, curriculumIDs []uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.DB(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if len(lessonIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{lessonID})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *lessonRepo) GetByCurriculumID(dbc dbctx.Context, curriculumID uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if curriculumID == uuid.Nil {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("curriculum_id = ?", curriculumID).
		Order("order_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) CountByCurriculumID(dbc dbctx.Context, curriculumID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("curriculum_id = ?", curriculumID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *lessonRepo) FullDeleteByCurriculumIDs(dbc dbctx.Context, curriculumIDs []uuid.UUID) error {
	if len(curriculumIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("curriculum_id IN ?", curriculumIDs).
		Delete(&types.Lesson{}).Error
}
