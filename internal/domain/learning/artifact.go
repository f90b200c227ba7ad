package learning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ArtifactKind string

const (
	ArtifactFlashcards ArtifactKind = "flashcards"
	ArtifactExercises  ArtifactKind = "exercises"
	ArtifactSimulation ArtifactKind = "simulation"
)

// ArtifactKinds is the fixed order in which kinds are generated and reported.
var ArtifactKinds = []ArtifactKind{ArtifactFlashcards, ArtifactExercises, ArtifactSimulation}

func ParseArtifactKind(s string) (ArtifactKind, bool) {
	k := ArtifactKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", false
	}
	return k, true
}

func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactFlashcards, ArtifactExercises, ArtifactSimulation:
		return true
	default:
		return false
	}
}

const ExerciseChoiceCount = 4

// blankMarker is a run of at least three underscores.
var blankMarker = regexp.MustCompile(`_{3,}`)

type Flashcard struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

type Exercise struct {
	Sentence    string   `json:"sentence"`
	Answer      string   `json:"answer"`
	Choices     []string `json:"choices"`
	Explanation string   `json:"explanation"`
}

type SimulationSegment struct {
	Speaker                 string `json:"speaker"`
	TargetLanguageText      string `json:"target_language_text"`
	BaseLanguageTranslation string `json:"base_language_translation"`
	Phonetics               string `json:"phonetics,omitempty"`
}

type Simulation struct {
	Title    string              `json:"title"`
	Setting  string              `json:"setting"`
	Segments []SimulationSegment `json:"segments"`
}

// SegmentPolicy bounds the number of segments a simulation may carry.
type SegmentPolicy struct {
	Min int
	Max int
}

func DefaultSegmentPolicy() SegmentPolicy { return SegmentPolicy{Min: 5, Max: 10} }

func (p SegmentPolicy) normalized() SegmentPolicy {
	def := DefaultSegmentPolicy()
	if p.Min <= 0 {
		p.Min = def.Min
	}
	if p.Max <= 0 {
		p.Max = def.Max
	}
	if p.Max < p.Min {
		p.Max = p.Min
	}
	return p
}

func (f Flashcard) Validate() error {
	switch {
	case strings.TrimSpace(f.Word) == "":
		return fmt.Errorf("flashcard word is required")
	case strings.TrimSpace(f.Definition) == "":
		return fmt.Errorf("flashcard definition is required")
	case strings.TrimSpace(f.Example) == "":
		return fmt.Errorf("flashcard example is required")
	}
	return nil
}

func (e Exercise) Validate() error {
	if strings.TrimSpace(e.Sentence) == "" {
		return fmt.Errorf("exercise sentence is required")
	}
	if n := len(blankMarker.FindAllStringIndex(e.Sentence, -1)); n != 1 {
		return fmt.Errorf("exercise sentence must contain exactly one blank, found %d", n)
	}
	if strings.TrimSpace(e.Answer) == "" {
		return fmt.Errorf("exercise answer is required")
	}
	if len(e.Choices) != ExerciseChoiceCount {
		return fmt.Errorf("exercise must have exactly %d choices, got %d", ExerciseChoiceCount, len(e.Choices))
	}
	matches := 0
	for _, c := range e.Choices {
		if c == e.Answer {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("exercise answer must appear exactly once in choices, found %d", matches)
	}
	return nil
}

func (s Simulation) Validate(policy SegmentPolicy) error {
	policy = policy.normalized()
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("simulation title is required")
	}
	if strings.TrimSpace(s.Setting) == "" {
		return fmt.Errorf("simulation setting is required")
	}
	if n := len(s.Segments); n < policy.Min || n > policy.Max {
		return fmt.Errorf("simulation must have %d-%d segments, got %d", policy.Min, policy.Max, n)
	}
	for i, seg := range s.Segments {
		if strings.TrimSpace(seg.Speaker) == "" ||
			strings.TrimSpace(seg.TargetLanguageText) == "" ||
			strings.TrimSpace(seg.BaseLanguageTranslation) == "" {
			return fmt.Errorf("simulation segment %d is missing a required field", i)
		}
	}
	return nil
}

// ValidateArtifact checks a single typed artifact value against the rules of its kind.
func ValidateArtifact(kind ArtifactKind, v any, policy SegmentPolicy) error {
	switch a := v.(type) {
	case Flashcard:
		if kind != ArtifactFlashcards {
			return fmt.Errorf("flashcard given for kind %q", kind)
		}
		return a.Validate()
	case Exercise:
		if kind != ArtifactExercises {
			return fmt.Errorf("exercise given for kind %q", kind)
		}
		return a.Validate()
	case Simulation:
		if kind != ArtifactSimulation {
			return fmt.Errorf("simulation given for kind %q", kind)
		}
		return a.Validate(policy)
	default:
		return fmt.Errorf("unsupported artifact type %T", v)
	}
}

// LessonArtifact is one generated item of a kind, positioned within its lesson.
type LessonArtifact struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_artifact_pos,priority:1" json:"lesson_id"`
	Lesson   *Lesson   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`

	Kind     ArtifactKind   `gorm:"column:kind;not null;uniqueIndex:idx_lesson_artifact_pos,priority:2" json:"kind"`
	Position int            `gorm:"column:position;not null;uniqueIndex:idx_lesson_artifact_pos,priority:3" json:"position"`
	Payload  datatypes.JSON `gorm:"column:payload;not null" json:"payload"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (LessonArtifact) TableName() string { return "lesson_artifact" }

// LessonArtifactStatus is the explicit generation status of one kind for one lesson.
type LessonArtifactStatus struct {
	LessonID uuid.UUID    `gorm:"type:uuid;primaryKey" json:"lesson_id"`
	Lesson   *Lesson      `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	Kind     ArtifactKind `gorm:"column:kind;primaryKey" json:"kind"`

	Status   GenerationStatus `gorm:"column:status;not null" json:"status"`
	Error    string           `gorm:"column:error;type:text" json:"error,omitempty"`
	Attempts int              `gorm:"column:attempts;not null;default:0" json:"attempts"`

	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonArtifactStatus) TableName() string { return "lesson_artifact_status" }

// LessonArtifacts holds a lesson's decoded artifacts grouped by kind.
type LessonArtifacts struct {
	Flashcards []Flashcard `json:"flashcards"`
	Exercises  []Exercise  `json:"exercises"`
	Simulation *Simulation `json:"simulation"`
}

// DecodeArtifacts groups stored rows (assumed ordered by position) into typed values.
func DecodeArtifacts(rows []*LessonArtifact) (LessonArtifacts, error) {
	out := LessonArtifacts{Flashcards: []Flashcard{}, Exercises: []Exercise{}}
	for _, r := range rows {
		if r == nil {
			continue
		}
		switch r.Kind {
		case ArtifactFlashcards:
			var f Flashcard
			if err := json.Unmarshal(r.Payload, &f); err != nil {
				return out, fmt.Errorf("decode flashcard %s: %w", r.ID, err)
			}
			out.Flashcards = append(out.Flashcards, f)
		case ArtifactExercises:
			var e Exercise
			if err := json.Unmarshal(r.Payload, &e); err != nil {
				return out, fmt.Errorf("decode exercise %s: %w", r.ID, err)
			}
			out.Exercises = append(out.Exercises, e)
		case ArtifactSimulation:
			var s Simulation
			if err := json.Unmarshal(r.Payload, &s); err != nil {
				return out, fmt.Errorf("decode simulation %s: %w", r.ID, err)
			}
			out.Simulation = &s
		}
	}
	return out, nil
}
