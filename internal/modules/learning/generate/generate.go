package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/lingua-backend/internal/cache"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/modules/learning/prompts"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type Config struct {
	LessonCount    int
	FlashcardCount int
	ExerciseCount  int
	Segments       learning.SegmentPolicy
}

func (c Config) withDefaults() Config {
	if c.LessonCount <= 0 {
		c.LessonCount = 5
	}
	if c.FlashcardCount <= 0 {
		c.FlashcardCount = 8
	}
	if c.ExerciseCount <= 0 {
		c.ExerciseCount = 5
	}
	if c.Segments.Min <= 0 || c.Segments.Max < c.Segments.Min {
		c.Segments = learning.DefaultSegmentPolicy()
	}
	return c
}

// CurriculumBody is the decoded output of curriculum generation.
type CurriculumBody struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	LessonTopic string                 `json:"lesson_topic"`
	Lessons     []learning.LessonDraft `json:"sub_topics"`
}

func (b CurriculumBody) Validate() error {
	if strings.TrimSpace(b.LessonTopic) == "" {
		return fmt.Errorf("lesson_topic is required")
	}
	if len(b.Lessons) == 0 {
		return fmt.Errorf("at least one lesson is required")
	}
	for i, l := range b.Lessons {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("lesson %d: %w", i, err)
		}
	}
	return nil
}

// LessonBrief is the part of a lesson that artifact prompts are written from.
type LessonBrief struct {
	LessonTopic string
	SubTopic    string
	Keywords    []string
	Description string
}

func BriefOf(lessonTopic string, n learning.LessonNode) LessonBrief {
	return LessonBrief{
		LessonTopic: lessonTopic,
		SubTopic:    n.SubTopic,
		Keywords:    n.Keywords,
		Description: n.Description,
	}
}

type flashcardsDoc struct {
	Flashcards []learning.Flashcard `json:"flashcards"`
}

type exercisesDoc struct {
	Exercises []learning.Exercise `json:"exercises"`
}

// Service turns learner requests into typed content. Every model call goes through the
// content cache, and output that fails validation is never stored.
type Service struct {
	log     *logger.Logger
	cache   *cache.Cache
	gen     cache.Generator
	prompts *prompts.Registry
	schemas *schemaSet
	cfg     Config
}

func New(baseLog *logger.Logger, c *cache.Cache, gen cache.Generator, reg *prompts.Registry, cfg Config) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("generate: cache is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generate: generator is required")
	}
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if reg == nil {
		reg = prompts.Builtin()
	}
	return &Service{
		log:     baseLog.With("service", "ContentGenerator"),
		cache:   c,
		gen:     gen,
		prompts: reg,
		schemas: newSchemaSet(reg),
		cfg:     cfg.withDefaults(),
	}, nil
}

func (s *Service) SegmentPolicy() learning.SegmentPolicy { return s.cfg.Segments }

// ExtractMetadata infers learner metadata from in. Non-empty fields of explicit win over
// the inferred values; when explicit is complete no model call is made.
func (s *Service) ExtractMetadata(ctx context.Context, in cache.Input, explicit learning.LearnerMetadata) (learning.LearnerMetadata, error) {
	explicit.Normalize()
	if explicit.NativeLanguage != "" && explicit.TargetLanguage != "" && explicit.Proficiency != "" {
		if _, ok := learning.ParseProficiency(string(explicit.Proficiency)); !ok {
			return learning.LearnerMetadata{}, fmt.Errorf("%w: unknown proficiency %q", cache.ErrInvalidRequest, explicit.Proficiency)
		}
		return explicit, nil
	}

	p, err := s.prompts.Build(prompts.PromptMetadata, prompts.Input{})
	if err != nil {
		return learning.LearnerMetadata{}, fmt.Errorf("%w: %v", cache.ErrInvalidRequest, err)
	}
	req := cache.Request{
		Category:     learning.CategoryMetadata,
		Input:        in,
		Instructions: p.System,
		Context:      promptContext(p, nil),
	}
	meta, err := generateTyped(ctx, s, p.Name, req, func(m *learning.LearnerMetadata) error {
		m.Normalize()
		if _, ok := learning.ParseProficiency(string(m.Proficiency)); !ok {
			return fmt.Errorf("unknown proficiency %q", m.Proficiency)
		}
		return nil
	})
	if err != nil {
		return learning.LearnerMetadata{}, err
	}
	if explicit.NativeLanguage != "" {
		meta.NativeLanguage = explicit.NativeLanguage
	}
	if explicit.TargetLanguage != "" {
		meta.TargetLanguage = explicit.TargetLanguage
	}
	if explicit.Proficiency != "" {
		if _, ok := learning.ParseProficiency(string(explicit.Proficiency)); !ok {
			return learning.LearnerMetadata{}, fmt.Errorf("%w: unknown proficiency %q", cache.ErrInvalidRequest, explicit.Proficiency)
		}
		meta.Proficiency = explicit.Proficiency
	}
	return meta, nil
}

func (s *Service) GenerateCurriculum(ctx context.Context, meta learning.LearnerMetadata, requestText string) (*CurriculumBody, error) {
	in := learnerInput(meta)
	in.RequestText = requestText
	in.LessonCount = s.cfg.LessonCount
	p, err := s.prompts.Build(prompts.PromptCurriculum, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrInvalidRequest, err)
	}
	req := cache.Request{
		Category:     learning.CategoryCurriculum,
		Input:        cache.PlainText{Text: requestText},
		Instructions: p.System,
		Context:      promptContext(p, meta.Context()),
	}
	body, err := generateTyped(ctx, s, p.Name, req, func(b *CurriculumBody) error { return b.Validate() })
	if err != nil {
		return nil, err
	}
	return &body, nil
}

func (s *Service) GenerateFlashcards(ctx context.Context, meta learning.LearnerMetadata, lesson LessonBrief) ([]learning.Flashcard, error) {
	in := lessonInput(meta, lesson)
	in.FlashcardCount = s.cfg.FlashcardCount
	req, p, err := s.lessonRequest(prompts.PromptFlashcards, learning.ArtifactFlashcards, meta, in)
	if err != nil {
		return nil, err
	}
	doc, err := generateTyped(ctx, s, p.Name, req, func(d *flashcardsDoc) error {
		if len(d.Flashcards) == 0 {
			return fmt.Errorf("no flashcards returned")
		}
		for i, f := range d.Flashcards {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("flashcard %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.Flashcards, nil
}

func (s *Service) GenerateExercises(ctx context.Context, meta learning.LearnerMetadata, lesson LessonBrief) ([]learning.Exercise, error) {
	in := lessonInput(meta, lesson)
	in.ExerciseCount = s.cfg.ExerciseCount
	in.ChoiceCount = learning.ExerciseChoiceCount
	req, p, err := s.lessonRequest(prompts.PromptExercises, learning.ArtifactExercises, meta, in)
	if err != nil {
		return nil, err
	}
	doc, err := generateTyped(ctx, s, p.Name, req, func(d *exercisesDoc) error {
		if len(d.Exercises) == 0 {
			return fmt.Errorf("no exercises returned")
		}
		for i, e := range d.Exercises {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("exercise %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.Exercises, nil
}

func (s *Service) GenerateSimulation(ctx context.Context, meta learning.LearnerMetadata, lesson LessonBrief) (*learning.Simulation, error) {
	in := lessonInput(meta, lesson)
	in.MinSegments = s.cfg.Segments.Min
	in.MaxSegments = s.cfg.Segments.Max
	req, p, err := s.lessonRequest(prompts.PromptSimulation, learning.ArtifactSimulation, meta, in)
	if err != nil {
		return nil, err
	}
	policy := s.cfg.Segments
	sim, err := generateTyped(ctx, s, p.Name, req, func(sim *learning.Simulation) error { return sim.Validate(policy) })
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

func (s *Service) lessonRequest(name prompts.PromptName, kind learning.ArtifactKind, meta learning.LearnerMetadata, in prompts.Input) (cache.Request, prompts.Prompt, error) {
	p, err := s.prompts.Build(name, in)
	if err != nil {
		return cache.Request{}, prompts.Prompt{}, fmt.Errorf("%w: %v", cache.ErrInvalidRequest, err)
	}
	return cache.Request{
		Category:     learning.CategoryForArtifact(kind),
		Input:        cache.PlainText{Text: p.User},
		Instructions: p.System,
		Context:      promptContext(p, meta.Context()),
	}, p, nil
}

// generateTyped runs req through the cache. The wrapped generator rejects output that
// fails the schema or check, so only valid payloads are ever stored.
func generateTyped[T any](ctx context.Context, s *Service, name prompts.PromptName, req cache.Request, check func(*T) error) (T, error) {
	var zero T
	gen := func(ctx context.Context, r cache.Request) (string, error) {
		raw, err := s.gen(ctx, r)
		if err != nil {
			return "", err
		}
		payload, err := cache.ValidatePayload(raw)
		if err != nil {
			return "", err
		}
		if err := s.schemas.validate(name, payload); err != nil {
			s.log.Warn("generated output rejected", "prompt", name, "error", err)
			return "", err
		}
		if _, err := decode(payload, check); err != nil {
			s.log.Warn("generated output rejected", "prompt", name, "error", err)
			return "", err
		}
		return string(payload), nil
	}
	payload, err := s.cache.GetOrGenerate(ctx, req, gen)
	if err != nil {
		return zero, err
	}
	out, err := decode(payload, check)
	if err != nil {
		return zero, &cache.GenerationError{Category: req.Category, Err: fmt.Errorf("cached payload: %w", err)}
	}
	return out, nil
}

func decode[T any](payload json.RawMessage, check func(*T) error) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}
	if check != nil {
		if err := check(&out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func learnerInput(meta learning.LearnerMetadata) prompts.Input {
	return prompts.Input{
		NativeLanguage: meta.NativeLanguage,
		TargetLanguage: meta.TargetLanguage,
		Proficiency:    string(meta.Proficiency),
	}
}

func lessonInput(meta learning.LearnerMetadata, l LessonBrief) prompts.Input {
	in := learnerInput(meta)
	in.LessonTopic = l.LessonTopic
	in.SubTopic = l.SubTopic
	in.KeywordsCSV = strings.Join(l.Keywords, ", ")
	in.LessonDescription = l.Description
	return in
}

// promptContext adds the prompt identity so a new prompt version never reuses old entries.
func promptContext(p prompts.Prompt, base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out["prompt"] = string(p.Name) + "@" + strconv.Itoa(p.Version)
	return out
}
