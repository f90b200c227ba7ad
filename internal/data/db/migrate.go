package db

import (
	"fmt"

	types "github.com/yungbote/lingua-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureContentIndexes adds the listing index that AutoMigrate cannot express.
func EnsureContentIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_curriculum_owner_created
		ON curriculum (owner_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_curriculum_owner_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lesson_artifact_lesson_kind
		ON lesson_artifact (lesson_id, kind, position);
	`).Error; err != nil {
		return fmt.Errorf("create idx_lesson_artifact_lesson_kind: %w", err)
	}
	return nil
}

// Migrate runs schema migration followed by the extra indexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureContentIndexes(db)
}
