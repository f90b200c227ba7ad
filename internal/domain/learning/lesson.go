package learning

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MinLessonKeywords = 1
	MaxLessonKeywords = 3
)

type Lesson struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CurriculumID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_curriculum_order,priority:1" json:"curriculum_id"`
	Curriculum   *Curriculum `gorm:"constraint:OnDelete:CASCADE;foreignKey:CurriculumID;references:ID" json:"-"`

	OrderIndex  int                         `gorm:"column:order_index;not null;uniqueIndex:idx_lesson_curriculum_order,priority:2" json:"order_index"`
	SubTopic    string                      `gorm:"column:sub_topic;not null" json:"sub_topic"`
	Keywords    datatypes.JSONSlice[string] `gorm:"column:keywords" json:"keywords"`
	Description string                      `gorm:"column:description;type:text" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

// LessonDraft is a lesson as produced by curriculum generation, before it has an identity.
type LessonDraft struct {
	SubTopic    string   `json:"sub_topic"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
}

func (d LessonDraft) Validate() error {
	if strings.TrimSpace(d.SubTopic) == "" {
		return fmt.Errorf("sub_topic is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if n := len(d.Keywords); n < MinLessonKeywords || n > MaxLessonKeywords {
		return fmt.Errorf("keywords must have %d-%d entries, got %d", MinLessonKeywords, MaxLessonKeywords, n)
	}
	for i, k := range d.Keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("keyword %d is empty", i)
		}
	}
	return nil
}

// ToLesson materializes the draft at position idx of curriculumID.
func (d LessonDraft) ToLesson(curriculumID uuid.UUID, idx int) *Lesson {
	kws := make([]string, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		kws = append(kws, strings.TrimSpace(k))
	}
	return &Lesson{
		ID:           uuid.New(),
		CurriculumID: curriculumID,
		OrderIndex:   idx,
		SubTopic:     strings.TrimSpace(d.SubTopic),
		Keywords:     datatypes.JSONSlice[string](kws),
		Description:  strings.TrimSpace(d.Description),
	}
}
