package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
)

var ContentStoreAggregateContract = Contract{
	Name:   "Learning.ContentStoreAggregate",
	Tables: []string{"curriculum", "lesson", "lesson_artifact", "lesson_artifact_status"},
	Notes:  "Owns curriculum/lesson/artifact consistency and the curriculum generation status machine.",
}

// ContentStoreAggregate persists curricula, their ordered lessons and per-lesson artifacts.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePreconditionFailed, CodeStorageUnavailable,
// CodeRetryable, CodeInternal.
type ContentStoreAggregate interface {
	Aggregate

	// CreateCurriculumShell inserts a pending curriculum with no lessons.
	CreateCurriculumShell(ctx context.Context, in CreateCurriculumShellInput) (uuid.UUID, error)

	// AttachCurriculumBody sets the topic and inserts all lessons in one batch, ordered by slice position.
	AttachCurriculumBody(ctx context.Context, in AttachCurriculumBodyInput) error

	// AttachLessonArtifacts replaces every artifact of one kind for a lesson and marks that kind completed.
	AttachLessonArtifacts(ctx context.Context, in AttachLessonArtifactsInput) error

	// MarkLessonArtifactStatus records an explicit per-kind status, e.g. generating or failed.
	MarkLessonArtifactStatus(ctx context.Context, in MarkLessonArtifactStatusInput) error

	// UpdateStatus moves the curriculum through the generation status machine.
	UpdateStatus(ctx context.Context, in UpdateStatusInput) error

	// ClaimBuild moves the curriculum into generating for one build attempt. It fails with
	// CodeConflict while another build holds the curriculum.
	ClaimBuild(ctx context.Context, curriculumID uuid.UUID) error

	// DeleteCurriculum removes the curriculum and everything it owns.
	DeleteCurriculum(ctx context.Context, curriculumID uuid.UUID) error

	GetCurriculumTree(ctx context.Context, curriculumID uuid.UUID) (*learning.CurriculumTree, error)
	ListCurricula(ctx context.Context, ownerID *string) ([]learning.CurriculumSummary, error)
	GetLessonArtifacts(ctx context.Context, lessonID uuid.UUID, kind learning.ArtifactKind) (*learning.LessonArtifacts, error)
	GetStatus(ctx context.Context, curriculumID uuid.UUID) (*learning.GenerationStatusView, error)
}

type CreateCurriculumShellInput struct {
	OwnerID     *string
	Metadata    learning.LearnerMetadata
	RequestText string
}

type AttachCurriculumBodyInput struct {
	CurriculumID uuid.UUID
	LessonTopic  string
	Title        string
	Description  string
	Lessons      []learning.LessonDraft
	// Complete also moves the curriculum to completed in the same transaction.
	Complete bool
}

// AttachLessonArtifactsInput carries the items of exactly one kind; only the field
// matching Kind may be populated.
type AttachLessonArtifactsInput struct {
	LessonID   uuid.UUID
	Kind       learning.ArtifactKind
	Flashcards []learning.Flashcard
	Exercises  []learning.Exercise
	Simulation *learning.Simulation
}

type MarkLessonArtifactStatusInput struct {
	LessonID uuid.UUID
	Kind     learning.ArtifactKind
	Status   learning.GenerationStatus
	Error    string
}

type UpdateStatusInput struct {
	CurriculumID uuid.UUID
	Status       learning.GenerationStatus
	Error        string
}
