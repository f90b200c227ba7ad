package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/lingua-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

func TestCurriculumRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCurriculumRepo(db, testutil.Logger(t))

	owner := testutil.PtrString("learner-1")
	base := time.Now().UTC().Add(-time.Hour)
	older := &types.Curriculum{OwnerID: owner, NativeLanguage: "english", TargetLanguage: "spanish", Proficiency: "beginner", GenerationStatus: types.StatusPending, CreatedAt: base}
	newer := &types.Curriculum{OwnerID: owner, NativeLanguage: "english", TargetLanguage: "french", Proficiency: "advanced", GenerationStatus: types.StatusPending, CreatedAt: base.Add(time.Minute)}
	anon := &types.Curriculum{NativeLanguage: "german", TargetLanguage: "italian", Proficiency: "intermediate", GenerationStatus: types.StatusPending}
	if _, err := repo.Create(dbc, []*types.Curriculum{older, newer, anon}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if older.ID == uuid.Nil {
		t.Fatal("expected Create to assign ids")
	}

	rows, err := repo.ListByOwner(dbc, owner)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %s", rows[0].TargetLanguage)
	}
	if rows, err := repo.ListByOwner(dbc, nil); err != nil || len(rows) != 1 || rows[0].ID != anon.ID {
		t.Fatalf("ListByOwner(nil): err=%v rows=%v", err, rows)
	}

	if err := repo.UpdateFields(dbc, older.ID, map[string]interface{}{"title": "Trip"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got, err := repo.GetByID(dbc, older.ID); err != nil || got == nil || got.Title != "Trip" {
		t.Fatalf("GetByID after update: got=%v err=%v", got, err)
	}
	if err := repo.UpdateFields(dbc, uuid.New(), map[string]interface{}{"title": "x"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found on missing row, got %v", err)
	}

	if n, err := repo.FullDeleteByIDs(dbc, []uuid.UUID{older.ID}); err != nil || n != 1 {
		t.Fatalf("FullDeleteByIDs: n=%d err=%v", n, err)
	}
	if got, err := repo.GetByID(dbc, older.ID); err != nil || got != nil {
		t.Fatalf("expected deleted row to be gone: got=%v err=%v", got, err)
	}
}
