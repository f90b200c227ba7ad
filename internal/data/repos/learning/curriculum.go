package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type CurriculumRepo interface {
	Create(dbc dbctx.Context, rows []*types.Curriculum) ([]*types.Curriculum, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Curriculum, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Curriculum, error)

	// ListByOwner returns newest first. A nil owner lists anonymous curricula.
	ListByOwner(dbc dbctx.Context, ownerID *string) ([]*types.Curriculum, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
}

type curriculumRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurriculumRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumRepo {
	return &curriculumRepo{db: db, log: baseLog.With("repo", "CurriculumRepo")}
}

func (r *curriculumRepo) Create(dbc dbctx.Context, rows []*types.Curriculum) ([]*types.Curriculum, error) {
	if len(rows) == 0 {
		return []*types.Curriculum{}, nil
	}
	for _, row := range rows {
		if row != nil && row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *curriculumRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Curriculum, error) {
	var out []*types.Curriculum
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curriculumRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Curriculum, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *curriculumRepo) ListByOwner(dbc dbctx.Context, ownerID *string) ([]*types.Curriculum, error) {
	var out []*types.Curriculum
	q := dbc.DB(r.db)
	if ownerID == nil {
		q = q.Where("owner_id IS NULL")
	} else {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curriculumRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Curriculum{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *curriculumRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Curriculum{})
	return res.RowsAffected, res.Error
}
