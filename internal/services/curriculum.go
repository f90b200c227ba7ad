package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/lingua-backend/internal/cache"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/jobs/curriculumbuild"
	"github.com/yungbote/lingua-backend/internal/jobs/worker"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

// MetadataExtractor infers learner metadata. *generate.Service satisfies it.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, in cache.Input, explicit learning.LearnerMetadata) (learning.LearnerMetadata, error)
}

// JobQueue schedules background work. *worker.Worker satisfies it.
type JobQueue interface {
	Enqueue(job worker.Job) error
}

type StartCurriculumInput struct {
	OwnerID      *string
	RequestText  string
	Conversation []cache.Turn
	Metadata     learning.LearnerMetadata
}

type CurriculumService interface {
	// Start extracts learner metadata, creates a pending curriculum and schedules its build.
	Start(ctx context.Context, in StartCurriculumInput) (*learning.GenerationStatusView, error)
	Get(ctx context.Context, id uuid.UUID) (*learning.CurriculumTree, error)
	List(ctx context.Context, ownerID *string) ([]learning.CurriculumSummary, error)
	Status(ctx context.Context, id uuid.UUID) (*learning.GenerationStatusView, error)
	// Retry schedules another build of a failed or completed curriculum. The build job
	// claims the curriculum, so the returned view still shows the previous status.
	Retry(ctx context.Context, id uuid.UUID) (*learning.GenerationStatusView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LessonArtifacts(ctx context.Context, lessonID uuid.UUID, kind learning.ArtifactKind) (*learning.LessonArtifacts, error)
}

type curriculumService struct {
	log      *logger.Logger
	store    domainagg.ContentStoreAggregate
	metadata MetadataExtractor
	jobs     JobQueue
}

func NewCurriculumService(baseLog *logger.Logger, store domainagg.ContentStoreAggregate, metadata MetadataExtractor, jobs JobQueue) CurriculumService {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &curriculumService{
		log:      baseLog.With("service", "CurriculumService"),
		store:    store,
		metadata: metadata,
		jobs:     jobs,
	}
}

func (s *curriculumService) Start(ctx context.Context, in StartCurriculumInput) (*learning.GenerationStatusView, error) {
	const op = "CurriculumService.Start"
	input, requestText, err := learnerInput(in)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	meta, err := s.metadata.ExtractMetadata(ctx, input, in.Metadata)
	if err != nil {
		return nil, err
	}
	id, err := s.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{
		OwnerID:     in.OwnerID,
		Metadata:    meta,
		RequestText: requestText,
	})
	if err != nil {
		return nil, err
	}
	if err := s.enqueue(id); err != nil {
		// Nobody will build this shell, so the caller gets the error and no id.
		if delErr := s.store.DeleteCurriculum(context.WithoutCancel(ctx), id); delErr != nil {
			s.log.Warn("Failed to remove unscheduled curriculum", "curriculum_id", id, "error", delErr)
		}
		return nil, err
	}
	s.log.Info("Curriculum scheduled", "curriculum_id", id, "target_language", meta.TargetLanguage, "proficiency", meta.Proficiency)
	return s.store.GetStatus(ctx, id)
}

func (s *curriculumService) Get(ctx context.Context, id uuid.UUID) (*learning.CurriculumTree, error) {
	return s.store.GetCurriculumTree(ctx, id)
}

func (s *curriculumService) List(ctx context.Context, ownerID *string) ([]learning.CurriculumSummary, error) {
	return s.store.ListCurricula(ctx, ownerID)
}

func (s *curriculumService) Status(ctx context.Context, id uuid.UUID) (*learning.GenerationStatusView, error) {
	return s.store.GetStatus(ctx, id)
}

func (s *curriculumService) Retry(ctx context.Context, id uuid.UUID) (*learning.GenerationStatusView, error) {
	const op = "CurriculumService.Retry"
	st, err := s.store.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.GenerationStatus.Terminal() {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, "curriculum build already "+string(st.GenerationStatus), nil)
	}
	if err := s.enqueue(id); err != nil {
		return nil, err
	}
	s.log.Info("Curriculum retry scheduled", "curriculum_id", id, "previous_status", st.GenerationStatus)
	return s.store.GetStatus(ctx, id)
}

func (s *curriculumService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteCurriculum(ctx, id)
}

func (s *curriculumService) LessonArtifacts(ctx context.Context, lessonID uuid.UUID, kind learning.ArtifactKind) (*learning.LessonArtifacts, error) {
	return s.store.GetLessonArtifacts(ctx, lessonID, kind)
}

func (s *curriculumService) enqueue(id uuid.UUID) error {
	return s.jobs.Enqueue(worker.Job{ID: uuid.New(), Type: curriculumbuild.JobType, CurriculumID: id})
}

// learnerInput picks the cache input for metadata extraction and the text the curriculum
// is generated from. A conversation contributes its user turns.
func learnerInput(in StartCurriculumInput) (cache.Input, string, error) {
	if len(in.Conversation) > 0 {
		var parts []string
		turns := make([]cache.Turn, 0, len(in.Conversation))
		for _, t := range in.Conversation {
			role := strings.ToLower(strings.TrimSpace(t.Role))
			content := strings.TrimSpace(t.Content)
			if content == "" {
				continue
			}
			turns = append(turns, cache.Turn{Role: role, Content: content})
			if role == cache.RoleUser {
				parts = append(parts, content)
			}
		}
		if len(parts) == 0 {
			return nil, "", errNoUserTurns
		}
		return cache.Conversation{Turns: turns}, strings.Join(parts, "\n"), nil
	}
	text := strings.TrimSpace(in.RequestText)
	if text == "" {
		return nil, "", errEmptyRequest
	}
	return cache.PlainText{Text: text}, text, nil
}
