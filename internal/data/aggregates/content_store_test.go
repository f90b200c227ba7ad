package aggregates_test

import (
	"context"
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lingua-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/lingua-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/lingua-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lingua-backend/internal/domain"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"gorm.io/gorm"
)

type storeFixture struct {
	store domainagg.ContentStoreAggregate
	db    *gorm.DB
	hooks *aggtestutil.HooksRecorder
}

func newStoreFixture(t *testing.T) storeFixture {
	t.Helper()
	db := testutil.DB(t)
	hooks := &aggtestutil.HooksRecorder{}
	store := aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{
		Base: aggregates.BaseDeps{DB: db, Log: testutil.Logger(t), Hooks: hooks},
	})
	return storeFixture{store: store, db: db, hooks: hooks}
}

func spanishMetadata() learning.LearnerMetadata {
	return learning.LearnerMetadata{NativeLanguage: "English", TargetLanguage: "Spanish", Proficiency: "beginner"}
}

func lessonDrafts(n int) []learning.LessonDraft {
	out := make([]learning.LessonDraft, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, learning.LessonDraft{
			SubTopic:    fmt.Sprintf("Topic %d", i),
			Keywords:    []string{"hola", "adiós"},
			Description: "Greetings and farewells.",
		})
	}
	return out
}

func validExercise() learning.Exercise {
	return learning.Exercise{
		Sentence:    "Yo ___ agua.",
		Answer:      "bebo",
		Choices:     []string{"bebo", "como", "leo", "vivo"},
		Explanation: "beber means to drink",
	}
}

func validSimulation(segments int) *learning.Simulation {
	sim := &learning.Simulation{Title: "At the airport", Setting: "Check-in desk"}
	for i := 0; i < segments; i++ {
		sim.Segments = append(sim.Segments, learning.SimulationSegment{
			Speaker:                 "agent",
			TargetLanguageText:      "¿Su pasaporte, por favor?",
			BaseLanguageTranslation: "Your passport, please?",
		})
	}
	return sim
}

func createWithBody(t *testing.T, f storeFixture, lessons int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{
		OwnerID:     testutil.PtrString("user-1"),
		Metadata:    spanishMetadata(),
		RequestText: "I want to learn Spanish for a trip",
	})
	require.NoError(t, err)
	require.NoError(t, f.store.AttachCurriculumBody(ctx, domainagg.AttachCurriculumBodyInput{
		CurriculumID: id,
		LessonTopic:  "Travel Spanish",
		Title:        "Spanish for Travellers",
		Lessons:      lessonDrafts(lessons),
		Complete:     true,
	}))
	return id
}

func TestCreateCurriculumShellStartsPending(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	id, err := f.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata()})
	require.NoError(t, err)

	st, err := f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, st.GenerationStatus)
	assert.Equal(t, 0, st.LessonCount)
	for _, k := range learning.ArtifactKinds {
		assert.Equal(t, types.StatusPending, st.ArtifactStatus[k])
	}

	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "spanish", tree.Curriculum.TargetLanguage)
	assert.Empty(t, tree.Lessons)
}

func TestCreateCurriculumShellRejectsBadMetadata(t *testing.T) {
	f := newStoreFixture(t)
	_, err := f.store.CreateCurriculumShell(context.Background(), domainagg.CreateCurriculumShellInput{
		Metadata: learning.LearnerMetadata{NativeLanguage: "english", TargetLanguage: "spanish", Proficiency: "wizard"},
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
}

func TestAttachCurriculumBodyOrdersLessons(t *testing.T) {
	f := newStoreFixture(t)
	id := createWithBody(t, f, 5)

	tree, err := f.store.GetCurriculumTree(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, tree.Lessons, 5)
	for i, l := range tree.Lessons {
		assert.Equal(t, i, l.OrderIndex)
		assert.Equal(t, fmt.Sprintf("Topic %d", i), l.SubTopic)
	}
	assert.Equal(t, types.StatusCompleted, tree.Curriculum.GenerationStatus)
	assert.Equal(t, "Travel Spanish", tree.Curriculum.LessonTopic)
	assert.Equal(t, 1, tree.Curriculum.Attempts)
}

func TestAttachCurriculumBodyTwiceConflicts(t *testing.T) {
	f := newStoreFixture(t)
	id := createWithBody(t, f, 2)

	err := f.store.AttachCurriculumBody(context.Background(), domainagg.AttachCurriculumBodyInput{
		CurriculumID: id,
		LessonTopic:  "Again",
		Lessons:      lessonDrafts(1),
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))

	tree, err := f.store.GetCurriculumTree(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, tree.Lessons, 2)
}

func TestAttachCurriculumBodyMissingCurriculum(t *testing.T) {
	f := newStoreFixture(t)
	err := f.store.AttachCurriculumBody(context.Background(), domainagg.AttachCurriculumBodyInput{
		CurriculumID: uuid.New(),
		LessonTopic:  "Travel",
		Lessons:      lessonDrafts(1),
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestAttachLessonArtifactsRejectsBadExerciseAndPersistsNothing(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 1)
	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	lessonID := tree.Lessons[0].ID

	bad := validExercise()
	bad.Choices = []string{"bebo", "como", "leo"}
	err = f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID:  lessonID,
		Kind:      types.ArtifactExercises,
		Exercises: []learning.Exercise{validExercise(), bad},
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	twoBlanks := validExercise()
	twoBlanks.Sentence = "Yo ___ agua y ___ pan."
	err = f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID:  lessonID,
		Kind:      types.ArtifactExercises,
		Exercises: []learning.Exercise{twoBlanks},
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	arts, err := f.store.GetLessonArtifacts(ctx, lessonID, types.ArtifactExercises)
	require.NoError(t, err)
	assert.Empty(t, arts.Exercises)

	var n int64
	require.NoError(t, f.db.Model(&types.LessonArtifact{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAttachLessonArtifactsReplacesKindAndMarksCompleted(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 2)
	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	lessonID := tree.Lessons[0].ID

	cards := []learning.Flashcard{
		{Word: "hola", Definition: "hello", Example: "¡Hola, amigo!"},
		{Word: "adiós", Definition: "goodbye", Example: "Adiós, hasta mañana."},
	}
	require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID: lessonID, Kind: types.ArtifactFlashcards, Flashcards: cards,
	}))
	require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID: lessonID, Kind: types.ArtifactFlashcards, Flashcards: cards[1:],
	}))

	arts, err := f.store.GetLessonArtifacts(ctx, lessonID, types.ArtifactFlashcards)
	require.NoError(t, err)
	require.Len(t, arts.Flashcards, 1)
	assert.Equal(t, "adiós", arts.Flashcards[0].Word)

	tree, err = f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, tree.Lessons[0].Status[types.ArtifactFlashcards])
	assert.Equal(t, types.StatusPending, tree.Lessons[1].Status[types.ArtifactFlashcards])
	assert.Equal(t, types.StatusPending, tree.ArtifactStatus[types.ArtifactFlashcards])
}

func TestAttachLessonArtifactsRejectsMixedKinds(t *testing.T) {
	f := newStoreFixture(t)
	err := f.store.AttachLessonArtifacts(context.Background(), domainagg.AttachLessonArtifactsInput{
		LessonID:   uuid.New(),
		Kind:       types.ArtifactFlashcards,
		Flashcards: []learning.Flashcard{{Word: "hola", Definition: "hello", Example: "Hola."}},
		Simulation: validSimulation(5),
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
}

func TestAttachLessonArtifactsMissingLesson(t *testing.T) {
	f := newStoreFixture(t)
	err := f.store.AttachLessonArtifacts(context.Background(), domainagg.AttachLessonArtifactsInput{
		LessonID:   uuid.New(),
		Kind:       types.ArtifactSimulation,
		Simulation: validSimulation(5),
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestSimulationSegmentBounds(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 1)
	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	lessonID := tree.Lessons[0].ID

	for _, n := range []int{4, 11} {
		err := f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
			LessonID: lessonID, Kind: types.ArtifactSimulation, Simulation: validSimulation(n),
		})
		require.Error(t, err, "segments=%d", n)
		assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	}
	require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID: lessonID, Kind: types.ArtifactSimulation, Simulation: validSimulation(10),
	}))
	arts, err := f.store.GetLessonArtifacts(ctx, lessonID, "")
	require.NoError(t, err)
	require.NotNil(t, arts.Simulation)
	assert.Len(t, arts.Simulation.Segments, 10)
}

func TestMarkLessonArtifactStatusFailedWins(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 2)
	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.store.MarkLessonArtifactStatus(ctx, domainagg.MarkLessonArtifactStatusInput{
		LessonID: tree.Lessons[0].ID, Kind: types.ArtifactExercises, Status: types.StatusGenerating,
	}))
	require.NoError(t, f.store.MarkLessonArtifactStatus(ctx, domainagg.MarkLessonArtifactStatusInput{
		LessonID: tree.Lessons[1].ID, Kind: types.ArtifactExercises, Status: types.StatusFailed, Error: "model timeout",
	}))

	st, err := f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, st.ArtifactStatus[types.ArtifactExercises])
	assert.Equal(t, types.StatusPending, st.ArtifactStatus[types.ArtifactSimulation])

	err = f.store.MarkLessonArtifactStatus(ctx, domainagg.MarkLessonArtifactStatusInput{
		LessonID: tree.Lessons[0].ID, Kind: types.ArtifactExercises, Status: types.StatusCompleted,
	})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 1)

	// completed -> pending is not part of the machine.
	err := f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: types.StatusPending})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))

	// same status is a no-op
	require.NoError(t, f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: types.StatusCompleted}))

	require.NoError(t, f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: types.StatusGenerating}))
	require.NoError(t, f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: types.StatusFailed, Error: "upstream 500"}))

	st, err := f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, st.GenerationStatus)
	assert.Equal(t, "upstream 500", st.GenerationError)
	assert.Equal(t, 2, st.Attempts)

	require.NoError(t, f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: types.StatusGenerating}))
	st, err = f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusGenerating, st.GenerationStatus)
	assert.Empty(t, st.GenerationError)
	assert.Equal(t, 3, st.Attempts)

	assert.Contains(t, f.hooks.Conflicts(), "Learning.ContentStore.UpdateStatus")
}

func TestClaimBuildIsExclusive(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id, err := f.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata(), RequestText: "trip"})
	require.NoError(t, err)

	require.NoError(t, f.store.ClaimBuild(ctx, id))
	err = f.store.ClaimBuild(ctx, id)
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))
	assert.Contains(t, f.hooks.Conflicts(), "Learning.ContentStore.ClaimBuild")

	st, err := f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusGenerating, st.GenerationStatus)
	assert.Equal(t, 1, st.Attempts)

	// Terminal states may be claimed again for a new attempt.
	for _, end := range []types.GenerationStatus{types.StatusFailed, types.StatusCompleted} {
		require.NoError(t, f.store.UpdateStatus(ctx, domainagg.UpdateStatusInput{CurriculumID: id, Status: end, Error: "x"}))
		require.NoError(t, f.store.ClaimBuild(ctx, id), end)
	}
	st, err = f.store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Attempts)
	assert.Equal(t, []string{
		"pending->generating",
		"generating->failed", "failed->generating",
		"generating->completed", "completed->generating",
	}, f.hooks.Transitions())

	err = f.store.ClaimBuild(ctx, uuid.New())
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestUpdateStatusMissingCurriculum(t *testing.T) {
	f := newStoreFixture(t)
	err := f.store.UpdateStatus(context.Background(), domainagg.UpdateStatusInput{CurriculumID: uuid.New(), Status: types.StatusGenerating})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestDeleteCurriculumRemovesTree(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 3)
	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	lessonID := tree.Lessons[0].ID
	require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
		LessonID: lessonID, Kind: types.ArtifactExercises, Exercises: []learning.Exercise{validExercise()},
	}))

	require.NoError(t, f.store.DeleteCurriculum(ctx, id))

	_, err = f.store.GetCurriculumTree(ctx, id)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
	_, err = f.store.GetLessonArtifacts(ctx, lessonID, types.ArtifactExercises)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))

	for _, model := range []any{&types.Lesson{}, &types.LessonArtifact{}, &types.LessonArtifactStatus{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left behind", model)
	}

	err = f.store.DeleteCurriculum(ctx, id)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestListCurriculaScopesByOwner(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	createWithBody(t, f, 1)
	_, err := f.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{
		OwnerID:  testutil.PtrString("user-2"),
		Metadata: spanishMetadata(),
	})
	require.NoError(t, err)
	_, err = f.store.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata()})
	require.NoError(t, err)

	mine, err := f.store.ListCurricula(ctx, testutil.PtrString("user-1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Spanish for Travellers", mine[0].Title)

	anon, err := f.store.ListCurricula(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, anon, 1)

	none, err := f.store.ListCurricula(ctx, testutil.PtrString("nobody"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSpanishTripScenario(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	id := createWithBody(t, f, 3)

	tree, err := f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	for _, l := range tree.Lessons {
		require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
			LessonID: l.ID, Kind: types.ArtifactFlashcards,
			Flashcards: []learning.Flashcard{{Word: "aeropuerto", Definition: "airport", Example: "Voy al aeropuerto."}},
		}))
		require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
			LessonID: l.ID, Kind: types.ArtifactExercises, Exercises: []learning.Exercise{validExercise()},
		}))
		require.NoError(t, f.store.AttachLessonArtifacts(ctx, domainagg.AttachLessonArtifactsInput{
			LessonID: l.ID, Kind: types.ArtifactSimulation, Simulation: validSimulation(6),
		}))
	}

	tree, err = f.store.GetCurriculumTree(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, tree.Curriculum.GenerationStatus)
	for _, k := range learning.ArtifactKinds {
		assert.Equal(t, types.StatusCompleted, tree.ArtifactStatus[k], "kind %s", k)
	}
	for _, l := range tree.Lessons {
		assert.Len(t, l.Artifacts.Flashcards, 1)
		assert.Len(t, l.Artifacts.Exercises, 1)
		require.NotNil(t, l.Artifacts.Simulation)
		assert.Len(t, l.Artifacts.Simulation.Segments, 6)
	}
	assert.Equal(t, []string{"success"}, f.hooks.Outcomes("Learning.ContentStore.CreateCurriculumShell"))
}

func TestStorageUnavailableOnBegin(t *testing.T) {
	db := testutil.DB(t)
	hooks := &aggtestutil.HooksRecorder{}
	runner := &aggtestutil.InjectedTxRunner{
		Inner:     aggregates.NewGormTxRunner(db),
		FailBegin: driver.ErrBadConn,
	}
	store := aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{
		Base: aggregates.BaseDeps{DB: db, Runner: runner, Hooks: hooks},
	})

	_, err := store.CreateCurriculumShell(context.Background(), domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata()})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeStorageUnavailable))
	assert.True(t, domainagg.Retryable(err))
	assert.Equal(t, []string{"Learning.ContentStore.CreateCurriculumShell"}, hooks.Retries())

	var n int64
	require.NoError(t, db.Model(&types.Curriculum{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCommitFailureRollsBack(t *testing.T) {
	db := testutil.DB(t)
	runner := &aggtestutil.InjectedTxRunner{
		Inner:      aggregates.NewGormTxRunner(db),
		FailCommit: aggregates.RetryableError("commit lost"),
	}
	store := aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{
		Base: aggregates.BaseDeps{DB: db, Runner: runner},
	})

	_, err := store.CreateCurriculumShell(context.Background(), domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata()})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeRetryable))
	assert.Equal(t, 1, runner.RollbackCalls)

	var n int64
	require.NoError(t, db.Model(&types.Curriculum{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRolledBackTransitionIsNotReported(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	plain := aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{Base: aggregates.BaseDeps{DB: db}})
	id, err := plain.CreateCurriculumShell(ctx, domainagg.CreateCurriculumShellInput{Metadata: spanishMetadata()})
	require.NoError(t, err)

	hooks := &aggtestutil.HooksRecorder{}
	failing := aggregates.NewContentStoreAggregate(aggregates.ContentStoreDeps{
		Base: aggregates.BaseDeps{DB: db, Hooks: hooks, Runner: &aggtestutil.InjectedTxRunner{
			Inner:      aggregates.NewGormTxRunner(db),
			FailCommit: driver.ErrBadConn,
		}},
	})
	require.Error(t, failing.ClaimBuild(ctx, id))
	assert.Empty(t, hooks.Transitions())

	st, err := plain.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, st.GenerationStatus)
}
