package repos

import (
	"github.com/yungbote/lingua-backend/internal/data/repos/learning"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CurriculumRepo = learning.CurriculumRepo
type LessonRepo = learning.LessonRepo
type LessonArtifactRepo = learning.LessonArtifactRepo
type LessonArtifactStatusRepo = learning.LessonArtifactStatusRepo
type CacheEntryRepo = learning.CacheEntryRepo

func NewCurriculumRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumRepo {
	return learning.NewCurriculumRepo(db, baseLog)
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}

func NewLessonArtifactRepo(db *gorm.DB, baseLog *logger.Logger) LessonArtifactRepo {
	return learning.NewLessonArtifactRepo(db, baseLog)
}

func NewLessonArtifactStatusRepo(db *gorm.DB, baseLog *logger.Logger) LessonArtifactStatusRepo {
	return learning.NewLessonArtifactStatusRepo(db, baseLog)
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return learning.NewCacheEntryRepo(db, baseLog)
}
