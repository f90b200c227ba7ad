package learning

import (
	"time"

	"gorm.io/datatypes"
)

type CacheCategory string

const (
	CategoryMetadata   CacheCategory = "metadata"
	CategoryCurriculum CacheCategory = "curriculum"
	CategoryFlashcards CacheCategory = "flashcards"
	CategoryExercises  CacheCategory = "exercises"
	CategorySimulation CacheCategory = "simulation"
)

func (c CacheCategory) Valid() bool {
	switch c {
	case CategoryMetadata, CategoryCurriculum, CategoryFlashcards, CategoryExercises, CategorySimulation:
		return true
	default:
		return false
	}
}

// CategoryForArtifact maps an artifact kind onto its cache partition.
func CategoryForArtifact(k ArtifactKind) CacheCategory {
	return CacheCategory(k)
}

// CacheEntry is a generated payload keyed by request fingerprint. Rows are written once;
// only the access bookkeeping columns change afterwards.
type CacheEntry struct {
	Fingerprint    string         `gorm:"column:fingerprint;primaryKey" json:"fingerprint"`
	Category       CacheCategory  `gorm:"column:category;not null;index" json:"category"`
	Payload        datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	LastAccessedAt time.Time      `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`
	AccessCount    int64          `gorm:"column:access_count;not null;default:0" json:"access_count"`
}

func (CacheEntry) TableName() string { return "cache_entry" }
