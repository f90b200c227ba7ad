package domain

import (
	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

const (
	StatusPending    = learning.StatusPending
	StatusGenerating = learning.StatusGenerating
	StatusCompleted  = learning.StatusCompleted
	StatusFailed     = learning.StatusFailed

	ArtifactFlashcards = learning.ArtifactFlashcards
	ArtifactExercises  = learning.ArtifactExercises
	ArtifactSimulation = learning.ArtifactSimulation

	CategoryMetadata   = learning.CategoryMetadata
	CategoryCurriculum = learning.CategoryCurriculum
	CategoryFlashcards = learning.CategoryFlashcards
	CategoryExercises  = learning.CategoryExercises
	CategorySimulation = learning.CategorySimulation
)

type (
	Proficiency      = learning.Proficiency
	GenerationStatus = learning.GenerationStatus
	ArtifactKind     = learning.ArtifactKind
	CacheCategory    = learning.CacheCategory

	Curriculum           = learning.Curriculum
	Lesson               = learning.Lesson
	LessonArtifact       = learning.LessonArtifact
	LessonArtifactStatus = learning.LessonArtifactStatus
	CacheEntry           = learning.CacheEntry
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&Curriculum{},
		&Lesson{},
		&LessonArtifact{},
		&LessonArtifactStatus{},
		&CacheEntry{},
	}
}
