package curriculumbuild

import (
	"context"

	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/modules/learning/generate"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

const JobType = "curriculum_build"

// ContentGenerator produces curriculum bodies and lesson artifacts. *generate.Service
// satisfies it.
type ContentGenerator interface {
	GenerateCurriculum(ctx context.Context, meta learning.LearnerMetadata, requestText string) (*generate.CurriculumBody, error)
	GenerateFlashcards(ctx context.Context, meta learning.LearnerMetadata, lesson generate.LessonBrief) ([]learning.Flashcard, error)
	GenerateExercises(ctx context.Context, meta learning.LearnerMetadata, lesson generate.LessonBrief) ([]learning.Exercise, error)
	GenerateSimulation(ctx context.Context, meta learning.LearnerMetadata, lesson generate.LessonBrief) (*learning.Simulation, error)
}

type Pipeline struct {
	log         *logger.Logger
	store       domainagg.ContentStoreAggregate
	gen         ContentGenerator
	concurrency int
}

func New(baseLog *logger.Logger, store domainagg.ContentStoreAggregate, gen ContentGenerator, artifactConcurrency int) *Pipeline {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if artifactConcurrency < 1 {
		artifactConcurrency = 1
	}
	return &Pipeline{
		log:         baseLog.With("job", JobType),
		store:       store,
		gen:         gen,
		concurrency: artifactConcurrency,
	}
}

func (p *Pipeline) Type() string { return JobType }
