package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/lingua-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedCurriculum(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID *string) *types.Curriculum {
	tb.Helper()
	c := &types.Curriculum{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		NativeLanguage:   "english",
		TargetLanguage:   "spanish",
		Proficiency:      "beginner",
		RequestText:      "I want to learn Spanish for a trip",
		GenerationStatus: types.StatusPending,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed curriculum: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, curriculumID uuid.UUID, index int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:           uuid.New(),
		CurriculumID: curriculumID,
		OrderIndex:   index,
		SubTopic:     fmt.Sprintf("Lesson %d", index),
		Keywords:     datatypes.JSONSlice[string]{"hola"},
		Description:  "A short lesson.",
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, kind types.ArtifactKind, position int, payload any) *types.LessonArtifact {
	tb.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("marshal artifact payload: %v", err)
	}
	a := &types.LessonArtifact{
		ID:       uuid.New(),
		LessonID: lessonID,
		Kind:     kind,
		Position: position,
		Payload:  datatypes.JSON(b),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return a
}

func PtrString(v string) *string { return &v }
