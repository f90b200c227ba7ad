package learning

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
)

// ParseProficiency normalizes s and reports whether it names a known level.
func ParseProficiency(s string) (Proficiency, bool) {
	p := Proficiency(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced:
		return p, true
	default:
		return "", false
	}
}

// LearnerMetadata is what gets inferred from the learner's free-text request.
type LearnerMetadata struct {
	NativeLanguage string      `json:"native_language"`
	TargetLanguage string      `json:"target_language"`
	Proficiency    Proficiency `json:"proficiency"`
}

// Normalize lowercases the languages and proficiency in place.
func (m *LearnerMetadata) Normalize() {
	m.NativeLanguage = strings.ToLower(strings.TrimSpace(m.NativeLanguage))
	m.TargetLanguage = strings.ToLower(strings.TrimSpace(m.TargetLanguage))
	m.Proficiency = Proficiency(strings.ToLower(strings.TrimSpace(string(m.Proficiency))))
}

// Context is the fingerprint context for generations keyed on this learner.
func (m LearnerMetadata) Context() map[string]string {
	return map[string]string{
		"native":      m.NativeLanguage,
		"target":      m.TargetLanguage,
		"proficiency": string(m.Proficiency),
	}
}

type Curriculum struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID *string   `gorm:"column:owner_id;index" json:"owner_id,omitempty"`

	NativeLanguage string      `gorm:"column:native_language;not null" json:"native_language"`
	TargetLanguage string      `gorm:"column:target_language;not null" json:"target_language"`
	Proficiency    Proficiency `gorm:"column:proficiency;not null" json:"proficiency"`

	Title       string `gorm:"column:title" json:"title"`
	Description string `gorm:"column:description" json:"description"`
	LessonTopic string `gorm:"column:lesson_topic" json:"lesson_topic"`
	RequestText string `gorm:"column:request_text;type:text" json:"request_text"`

	GenerationStatus GenerationStatus `gorm:"column:generation_status;not null;index" json:"generation_status"`
	GenerationError  string           `gorm:"column:generation_error;type:text" json:"generation_error,omitempty"`
	Attempts         int              `gorm:"column:attempts;not null;default:0" json:"attempts"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Curriculum) TableName() string { return "curriculum" }

func (c *Curriculum) Metadata() LearnerMetadata {
	return LearnerMetadata{
		NativeLanguage: c.NativeLanguage,
		TargetLanguage: c.TargetLanguage,
		Proficiency:    c.Proficiency,
	}
}
