package curriculumbuild

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/jobs/worker"
	"github.com/yungbote/lingua-backend/internal/modules/learning/generate"
)

// statusWriteTimeout bounds the final status write after the job context is gone.
const statusWriteTimeout = 10 * time.Second

// Run claims the curriculum and builds it: the body when no lessons exist yet, then every
// artifact kind that is not already completed for every lesson. The curriculum ends
// completed, or failed carrying the first error. A curriculum claimed by another build is
// left alone.
func (p *Pipeline) Run(ctx context.Context, job worker.Job) error {
	id := job.CurriculumID
	log := p.log.With("curriculum_id", id, "job_id", job.ID)

	err := p.store.ClaimBuild(ctx, id)
	switch {
	case domainagg.IsCode(err, domainagg.CodeNotFound):
		log.Info("Curriculum gone before build started")
		return nil
	case domainagg.IsCode(err, domainagg.CodeConflict):
		log.Info("Curriculum build already in progress")
		return nil
	case err != nil:
		return err
	}

	// The tree is read only after the claim so it reflects any build that finished first.
	tree, err := p.store.GetCurriculumTree(ctx, id)
	if err != nil {
		p.finish(ctx, id, learning.StatusFailed, err.Error())
		return err
	}
	if err := p.build(ctx, tree); err != nil {
		p.finish(ctx, id, learning.StatusFailed, err.Error())
		return err
	}
	p.finish(ctx, id, learning.StatusCompleted, "")
	log.Info("Curriculum build completed")
	return nil
}

func (p *Pipeline) build(ctx context.Context, tree *learning.CurriculumTree) error {
	c := tree.Curriculum
	meta := c.Metadata()

	if len(tree.Lessons) == 0 {
		body, err := p.gen.GenerateCurriculum(ctx, meta, c.RequestText)
		if err != nil {
			return fmt.Errorf("generate curriculum: %w", err)
		}
		if err := p.store.AttachCurriculumBody(ctx, domainagg.AttachCurriculumBodyInput{
			CurriculumID: c.ID,
			LessonTopic:  body.LessonTopic,
			Title:        body.Title,
			Description:  body.Description,
			Lessons:      body.Lessons,
		}); err != nil {
			return fmt.Errorf("attach curriculum body: %w", err)
		}
		reloaded, err := p.store.GetCurriculumTree(ctx, c.ID)
		if err != nil {
			return err
		}
		tree = reloaded
	}

	// Lessons are independent; the first error is reported once every started unit has
	// finished, so no lesson is left marked generating.
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	topic := tree.Curriculum.LessonTopic
	for _, lesson := range tree.Lessons {
		brief := generate.BriefOf(topic, lesson)
		for _, kind := range learning.ArtifactKinds {
			if lesson.Status[kind] == learning.StatusCompleted {
				continue
			}
			g.Go(func() error {
				return p.buildArtifact(ctx, meta, lesson.ID, kind, brief)
			})
		}
	}
	return g.Wait()
}

func (p *Pipeline) buildArtifact(ctx context.Context, meta learning.LearnerMetadata, lessonID uuid.UUID, kind learning.ArtifactKind, brief generate.LessonBrief) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.store.MarkLessonArtifactStatus(ctx, domainagg.MarkLessonArtifactStatusInput{
		LessonID: lessonID, Kind: kind, Status: learning.StatusGenerating,
	}); err != nil {
		return err
	}
	in := domainagg.AttachLessonArtifactsInput{LessonID: lessonID, Kind: kind}
	var err error
	switch kind {
	case learning.ArtifactFlashcards:
		in.Flashcards, err = p.gen.GenerateFlashcards(ctx, meta, brief)
	case learning.ArtifactExercises:
		in.Exercises, err = p.gen.GenerateExercises(ctx, meta, brief)
	case learning.ArtifactSimulation:
		in.Simulation, err = p.gen.GenerateSimulation(ctx, meta, brief)
	default:
		err = fmt.Errorf("unsupported artifact kind %q", kind)
	}
	if err == nil {
		err = p.store.AttachLessonArtifacts(ctx, in)
	}
	if err != nil {
		err = fmt.Errorf("lesson %s %s: %w", lessonID, kind, err)
		p.markKindFailed(ctx, lessonID, kind, err)
		return err
	}
	return nil
}

func (p *Pipeline) markKindFailed(ctx context.Context, lessonID uuid.UUID, kind learning.ArtifactKind, cause error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if err := p.store.MarkLessonArtifactStatus(wctx, domainagg.MarkLessonArtifactStatusInput{
		LessonID: lessonID, Kind: kind, Status: learning.StatusFailed, Error: cause.Error(),
	}); err != nil {
		p.log.Warn("Failed to record artifact failure", "lesson_id", lessonID, "kind", kind, "error", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, id uuid.UUID, status learning.GenerationStatus, msg string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if err := p.store.UpdateStatus(wctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: status, Error: msg}); err != nil {
		p.log.Warn("Failed to record curriculum status", "curriculum_id", id, "status", status, "error", err)
	}
}
