package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/lingua-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lingua-backend/internal/domain"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

func TestLessonRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	c := testutil.SeedCurriculum(t, ctx, tx, nil)
	var lessons []*types.Lesson
	for _, idx := range []int{2, 0, 1} {
		lessons = append(lessons, &types.Lesson{
			ID:           uuid.New(),
			CurriculumID: c.ID,
			OrderIndex:   idx,
			SubTopic:     "topic",
			Keywords:     datatypes.JSONSlice[string]{"k"},
			Description:  "d",
		})
	}
	if _, err := repo.Create(dbc, lessons); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows, err := repo.GetByCurriculumID(dbc, c.ID)
	if err != nil || len(rows) != 3 {
		t.Fatalf("GetByCurriculumID: err=%v len=%d", err, len(rows))
	}
	for i, l := range rows {
		if l.OrderIndex != i {
			t.Fatalf("expected order_index %d at position %d, got %d", i, i, l.OrderIndex)
		}
	}
	if n, err := repo.CountByCurriculumID(dbc, c.ID); err != nil || n != 3 {
		t.Fatalf("CountByCurriculumID: n=%d err=%v", n, err)
	}
	if got, err := repo.GetByID(dbc, lessons[0].ID); err != nil || got == nil || got.ID != lessons[0].ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID(missing): got=%v err=%v", got, err)
	}

	dup := &types.Lesson{ID: uuid.New(), CurriculumID: c.ID, OrderIndex: 1, SubTopic: "dup", Description: "d"}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx, Tx: tx.SavePoint("dup")}, []*types.Lesson{dup}); err == nil {
		t.Fatal("expected duplicate order_index to be rejected")
	}
	tx.RollbackTo("dup")

	if err := repo.FullDeleteByCurriculumIDs(dbc, []uuid.UUID{c.ID}); err != nil {
		t.Fatalf("FullDeleteByCurriculumIDs: %v", err)
	}
	if n, _ := repo.CountByCurriculumID(dbc, c.ID); n != 0 {
		t.Fatalf("expected no lessons after delete, got %d", n)
	}
}
