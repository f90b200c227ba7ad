package learning

import (
	"time"

	"github.com/google/uuid"
)

// LessonNode is one lesson in a curriculum tree, with its artifacts and per-kind status.
type LessonNode struct {
	ID          uuid.UUID                         `json:"id"`
	OrderIndex  int                               `json:"order_index"`
	SubTopic    string                            `json:"sub_topic"`
	Keywords    []string                          `json:"keywords"`
	Description string                            `json:"description"`
	Artifacts   LessonArtifacts                   `json:"artifacts"`
	Status      map[ArtifactKind]GenerationStatus `json:"status"`
}

// CurriculumTree is the full nested read model of one curriculum.
type CurriculumTree struct {
	Curriculum     *Curriculum                       `json:"curriculum"`
	Lessons        []LessonNode                      `json:"lessons"`
	ArtifactStatus map[ArtifactKind]GenerationStatus `json:"artifact_status"`
}

type CurriculumSummary struct {
	ID               uuid.UUID        `json:"id"`
	OwnerID          *string          `json:"owner_id,omitempty"`
	Title            string           `json:"title"`
	LessonTopic      string           `json:"lesson_topic"`
	NativeLanguage   string           `json:"native_language"`
	TargetLanguage   string           `json:"target_language"`
	Proficiency      Proficiency      `json:"proficiency"`
	GenerationStatus GenerationStatus `json:"generation_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

func SummaryOf(c *Curriculum) CurriculumSummary {
	return CurriculumSummary{
		ID:               c.ID,
		OwnerID:          c.OwnerID,
		Title:            c.Title,
		LessonTopic:      c.LessonTopic,
		NativeLanguage:   c.NativeLanguage,
		TargetLanguage:   c.TargetLanguage,
		Proficiency:      c.Proficiency,
		GenerationStatus: c.GenerationStatus,
		CreatedAt:        c.CreatedAt,
	}
}

type GenerationStatusView struct {
	CurriculumID     uuid.UUID                         `json:"curriculum_id"`
	GenerationStatus GenerationStatus                  `json:"generation_status"`
	GenerationError  string                            `json:"generation_error,omitempty"`
	Attempts         int                               `json:"attempts"`
	LessonCount      int                               `json:"lesson_count"`
	ArtifactStatus   map[ArtifactKind]GenerationStatus `json:"artifact_status"`
}

// LessonKindStatus resolves the status of one kind for one lesson. An explicit row wins;
// otherwise presence of artifacts means completed and absence means pending.
func LessonKindStatus(explicit *LessonArtifactStatus, hasArtifacts bool) GenerationStatus {
	if explicit != nil && explicit.Status.Valid() {
		return explicit.Status
	}
	if hasArtifacts {
		return StatusCompleted
	}
	return StatusPending
}

// AggregateKindStatus folds the per-lesson status of every kind across lessons.
func AggregateKindStatus(lessons []LessonNode) map[ArtifactKind]GenerationStatus {
	out := make(map[ArtifactKind]GenerationStatus, len(ArtifactKinds))
	for _, k := range ArtifactKinds {
		per := make([]GenerationStatus, 0, len(lessons))
		for _, l := range lessons {
			per = append(per, l.Status[k])
		}
		out[k] = AggregateStatus(per)
	}
	return out
}
