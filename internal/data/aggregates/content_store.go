package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/lingua-backend/internal/data/repos"
	types "github.com/yungbote/lingua-backend/internal/domain"
	domainagg "github.com/yungbote/lingua-backend/internal/domain/aggregates"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const curriculumTable = "curriculum"

type ContentStoreDeps struct {
	Base BaseDeps

	Curricula      repos.CurriculumRepo
	Lessons        repos.LessonRepo
	Artifacts      repos.LessonArtifactRepo
	ArtifactStatus repos.LessonArtifactStatusRepo

	SegmentPolicy learning.SegmentPolicy
}

type contentStoreAggregate struct {
	deps ContentStoreDeps
}

func NewContentStoreAggregate(deps ContentStoreDeps) domainagg.ContentStoreAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Curricula == nil {
		deps.Curricula = repos.NewCurriculumRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Lessons == nil {
		deps.Lessons = repos.NewLessonRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Artifacts == nil {
		deps.Artifacts = repos.NewLessonArtifactRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.ArtifactStatus == nil {
		deps.ArtifactStatus = repos.NewLessonArtifactStatusRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.SegmentPolicy == (learning.SegmentPolicy{}) {
		deps.SegmentPolicy = learning.DefaultSegmentPolicy()
	}
	return &contentStoreAggregate{deps: deps}
}

func (a *contentStoreAggregate) Contract() domainagg.Contract {
	return domainagg.ContentStoreAggregateContract
}

func (a *contentStoreAggregate) CreateCurriculumShell(ctx context.Context, in domainagg.CreateCurriculumShellInput) (uuid.UUID, error) {
	const op = "Learning.ContentStore.CreateCurriculumShell"
	meta := in.Metadata
	meta.Normalize()
	if meta.NativeLanguage == "" || meta.TargetLanguage == "" {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "native and target language are required", nil)
	}
	prof, ok := learning.ParseProficiency(string(meta.Proficiency))
	if !ok {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown proficiency %q", meta.Proficiency), nil)
	}

	row := &types.Curriculum{
		ID:               uuid.New(),
		OwnerID:          normalizeOwner(in.OwnerID),
		NativeLanguage:   meta.NativeLanguage,
		TargetLanguage:   meta.TargetLanguage,
		Proficiency:      prof,
		RequestText:      strings.TrimSpace(in.RequestText),
		GenerationStatus: types.StatusPending,
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		_, err := a.deps.Curricula.Create(dbc, []*types.Curriculum{row})
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (a *contentStoreAggregate) AttachCurriculumBody(ctx context.Context, in domainagg.AttachCurriculumBodyInput) error {
	const op = "Learning.ContentStore.AttachCurriculumBody"
	if in.CurriculumID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing curriculum_id", nil)
	}
	topic := strings.TrimSpace(in.LessonTopic)
	if topic == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "lesson_topic is required", nil)
	}
	if len(in.Lessons) == 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "at least one lesson is required", nil)
	}
	for i, draft := range in.Lessons {
		if err := draft.Validate(); err != nil {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("lesson %d: %v", i, err), err)
		}
	}

	return a.writeTransitions(ctx, op, func(dbc dbctx.Context, move moveFunc) error {
		cur, err := a.deps.Curricula.GetByID(dbc, in.CurriculumID)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(fmt.Sprintf("curriculum not found: %s", in.CurriculumID))
		}
		existing, err := a.deps.Lessons.CountByCurriculumID(dbc, cur.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ConflictError("curriculum body already attached")
		}

		lessons := make([]*types.Lesson, 0, len(in.Lessons))
		for i, draft := range in.Lessons {
			lessons = append(lessons, draft.ToLesson(cur.ID, i))
		}
		if _, err := a.deps.Lessons.Create(dbc, lessons); err != nil {
			return err
		}

		updates := map[string]interface{}{"lesson_topic": topic}
		if title := strings.TrimSpace(in.Title); title != "" {
			updates["title"] = title
		}
		if desc := strings.TrimSpace(in.Description); desc != "" {
			updates["description"] = desc
		}
		if err := a.deps.Curricula.UpdateFields(dbc, cur.ID, updates); err != nil {
			return err
		}

		if !in.Complete {
			return nil
		}
		if cur.GenerationStatus == types.StatusPending {
			if err := move(cur, types.StatusGenerating, ""); err != nil {
				return err
			}
		}
		return move(cur, types.StatusCompleted, "")
	})
}

func (a *contentStoreAggregate) AttachLessonArtifacts(ctx context.Context, in domainagg.AttachLessonArtifactsInput) error {
	const op = "Learning.ContentStore.AttachLessonArtifacts"
	if in.LessonID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing lesson_id", nil)
	}
	payloads, err := a.artifactPayloads(in)
	if err != nil {
		return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return NotFoundError(fmt.Sprintf("lesson not found: %s", in.LessonID))
		}
		if err := a.deps.Artifacts.DeleteByLessonAndKind(dbc, lesson.ID, in.Kind); err != nil {
			return err
		}
		rows := make([]*types.LessonArtifact, 0, len(payloads))
		for i, p := range payloads {
			rows = append(rows, &types.LessonArtifact{
				ID:       uuid.New(),
				LessonID: lesson.ID,
				Kind:     in.Kind,
				Position: i,
				Payload:  p,
			})
		}
		if _, err := a.deps.Artifacts.Create(dbc, rows); err != nil {
			return err
		}
		return a.deps.ArtifactStatus.Upsert(dbc, &types.LessonArtifactStatus{
			LessonID: lesson.ID,
			Kind:     in.Kind,
			Status:   types.StatusCompleted,
		})
	})
}

// artifactPayloads validates the items of in against its kind and encodes them in order.
func (a *contentStoreAggregate) artifactPayloads(in domainagg.AttachLessonArtifactsInput) ([]datatypes.JSON, error) {
	var items []any
	switch in.Kind {
	case types.ArtifactFlashcards:
		if len(in.Exercises) > 0 || in.Simulation != nil {
			return nil, fmt.Errorf("only flashcards may be attached as %s", in.Kind)
		}
		for _, f := range in.Flashcards {
			items = append(items, f)
		}
	case types.ArtifactExercises:
		if len(in.Flashcards) > 0 || in.Simulation != nil {
			return nil, fmt.Errorf("only exercises may be attached as %s", in.Kind)
		}
		for _, e := range in.Exercises {
			items = append(items, e)
		}
	case types.ArtifactSimulation:
		if len(in.Flashcards) > 0 || len(in.Exercises) > 0 {
			return nil, fmt.Errorf("only a simulation may be attached as %s", in.Kind)
		}
		if in.Simulation != nil {
			items = append(items, *in.Simulation)
		}
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", in.Kind)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no %s supplied", in.Kind)
	}

	out := make([]datatypes.JSON, 0, len(items))
	for i, item := range items {
		if err := learning.ValidateArtifact(in.Kind, item, a.deps.SegmentPolicy); err != nil {
			return nil, fmt.Errorf("%s %d: %w", in.Kind, i, err)
		}
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", in.Kind, i, err)
		}
		out = append(out, datatypes.JSON(b))
	}
	return out, nil
}

func (a *contentStoreAggregate) MarkLessonArtifactStatus(ctx context.Context, in domainagg.MarkLessonArtifactStatusInput) error {
	const op = "Learning.ContentStore.MarkLessonArtifactStatus"
	if in.LessonID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing lesson_id", nil)
	}
	if !in.Kind.Valid() {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown artifact kind %q", in.Kind), nil)
	}
	if in.Status != types.StatusGenerating && in.Status != types.StatusFailed {
		return domainagg.NewError(domainagg.CodeValidation, op, "only generating or failed may be marked explicitly", nil)
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return NotFoundError(fmt.Sprintf("lesson not found: %s", in.LessonID))
		}
		row := &types.LessonArtifactStatus{LessonID: lesson.ID, Kind: in.Kind, Status: in.Status}
		if in.Status == types.StatusFailed {
			row.Error = strings.TrimSpace(in.Error)
		}
		return a.deps.ArtifactStatus.Upsert(dbc, row)
	})
}

func (a *contentStoreAggregate) UpdateStatus(ctx context.Context, in domainagg.UpdateStatusInput) error {
	const op = "Learning.ContentStore.UpdateStatus"
	if in.CurriculumID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing curriculum_id", nil)
	}
	if !in.Status.Valid() {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown status %q", in.Status), nil)
	}
	return a.writeTransitions(ctx, op, func(dbc dbctx.Context, move moveFunc) error {
		cur, err := a.deps.Curricula.GetByID(dbc, in.CurriculumID)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(fmt.Sprintf("curriculum not found: %s", in.CurriculumID))
		}
		return move(cur, in.Status, in.Error)
	})
}

func (a *contentStoreAggregate) ClaimBuild(ctx context.Context, curriculumID uuid.UUID) error {
	const op = "Learning.ContentStore.ClaimBuild"
	if curriculumID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing curriculum_id", nil)
	}
	return a.writeTransitions(ctx, op, func(dbc dbctx.Context, move moveFunc) error {
		cur, err := a.deps.Curricula.GetByID(dbc, curriculumID)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(fmt.Sprintf("curriculum not found: %s", curriculumID))
		}
		claimable := statusStrings(learning.AllowedPredecessors(types.StatusGenerating))
		if err := RequireStatusAllowed(string(cur.GenerationStatus), claimable...); err != nil {
			return err
		}
		return move(cur, types.StatusGenerating, "")
	})
}

// moveFunc applies one status transition inside a write.
type moveFunc func(cur *types.Curriculum, to types.GenerationStatus, errMsg string) error

type statusChange struct {
	from, to types.GenerationStatus
}

// writeTransitions runs fn as one write and reports the status transitions it made to
// hooks once the write has committed.
func (a *contentStoreAggregate) writeTransitions(ctx context.Context, op string, fn func(dbc dbctx.Context, move moveFunc) error) error {
	var changes []statusChange
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		changes = changes[:0]
		return fn(dbc, func(cur *types.Curriculum, to types.GenerationStatus, errMsg string) error {
			from := cur.GenerationStatus
			if err := a.transition(dbc, cur, to, errMsg); err != nil {
				return err
			}
			if from != to {
				changes = append(changes, statusChange{from: from, to: to})
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, c := range changes {
		a.deps.Base.Hooks.StatusChanged(op, c.from, c.to)
	}
	return nil
}

// transition applies one step of the status machine. The compare-and-set accepts any
// legal predecessor of to, so a row moved elsewhere concurrently is a conflict.
func (a *contentStoreAggregate) transition(dbc dbctx.Context, cur *types.Curriculum, to types.GenerationStatus, errMsg string) error {
	from := cur.GenerationStatus
	if from == to {
		return nil
	}
	if !learning.CanTransition(from, to) {
		return ConflictError(fmt.Sprintf("illegal status transition %s -> %s", from, to))
	}
	updates := map[string]any{
		"generation_status": to,
		"updated_at":        time.Now().UTC(),
	}
	switch to {
	case types.StatusGenerating:
		updates["attempts"] = gorm.Expr("attempts + 1")
		updates["generation_error"] = ""
	case types.StatusFailed:
		updates["generation_error"] = strings.TrimSpace(errMsg)
	case types.StatusCompleted:
		updates["generation_error"] = ""
	}
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, curriculumTable, cur.ID, "generation_status", statusStrings(learning.AllowedPredecessors(to)), updates)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, "curriculum status changed concurrently"); err != nil {
		return err
	}
	cur.GenerationStatus = to
	if to == types.StatusGenerating {
		cur.Attempts++
	}
	return nil
}

func (a *contentStoreAggregate) DeleteCurriculum(ctx context.Context, curriculumID uuid.UUID) error {
	const op = "Learning.ContentStore.DeleteCurriculum"
	if curriculumID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing curriculum_id", nil)
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cur, err := a.deps.Curricula.GetByID(dbc, curriculumID)
		if err != nil {
			return err
		}
		if cur == nil {
			return NotFoundError(fmt.Sprintf("curriculum not found: %s", curriculumID))
		}
		lessons, err := a.deps.Lessons.GetByCurriculumID(dbc, cur.ID)
		if err != nil {
			return err
		}
		lessonIDs := make([]uuid.UUID, 0, len(lessons))
		for _, l := range lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
		if err := a.deps.Artifacts.FullDeleteByLessonIDs(dbc, lessonIDs); err != nil {
			return err
		}
		if err := a.deps.ArtifactStatus.FullDeleteByLessonIDs(dbc, lessonIDs); err != nil {
			return err
		}
		if err := a.deps.Lessons.FullDeleteByCurriculumIDs(dbc, []uuid.UUID{cur.ID}); err != nil {
			return err
		}
		n, err := a.deps.Curricula.FullDeleteByIDs(dbc, []uuid.UUID{cur.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ConflictError("curriculum deleted concurrently")
		}
		return nil
	})
}

func (a *contentStoreAggregate) GetCurriculumTree(ctx context.Context, curriculumID uuid.UUID) (*learning.CurriculumTree, error) {
	const op = "Learning.ContentStore.GetCurriculumTree"
	var out *learning.CurriculumTree
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.loadTree(dbc, curriculumID)
		out = tree
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *contentStoreAggregate) loadTree(dbc dbctx.Context, curriculumID uuid.UUID) (*learning.CurriculumTree, error) {
	cur, err := a.deps.Curricula.GetByID(dbc, curriculumID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, NotFoundError(fmt.Sprintf("curriculum not found: %s", curriculumID))
	}
	lessons, err := a.deps.Lessons.GetByCurriculumID(dbc, cur.ID)
	if err != nil {
		return nil, err
	}
	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	artifactRows, err := a.deps.Artifacts.ListByLessonIDs(dbc, lessonIDs)
	if err != nil {
		return nil, err
	}
	statusRows, err := a.deps.ArtifactStatus.ListByLessonIDs(dbc, lessonIDs)
	if err != nil {
		return nil, err
	}

	artifactsByLesson := map[uuid.UUID][]*types.LessonArtifact{}
	for _, r := range artifactRows {
		artifactsByLesson[r.LessonID] = append(artifactsByLesson[r.LessonID], r)
	}
	statusByLesson := map[uuid.UUID]map[types.ArtifactKind]*types.LessonArtifactStatus{}
	for _, s := range statusRows {
		if statusByLesson[s.LessonID] == nil {
			statusByLesson[s.LessonID] = map[types.ArtifactKind]*types.LessonArtifactStatus{}
		}
		statusByLesson[s.LessonID][s.Kind] = s
	}

	tree := &learning.CurriculumTree{Curriculum: cur, Lessons: make([]learning.LessonNode, 0, len(lessons))}
	for _, l := range lessons {
		rows := artifactsByLesson[l.ID]
		decoded, err := learning.DecodeArtifacts(rows)
		if err != nil {
			return nil, InvariantError(err.Error())
		}
		present := map[types.ArtifactKind]bool{}
		for _, r := range rows {
			present[r.Kind] = true
		}
		node := learning.LessonNode{
			ID:          l.ID,
			OrderIndex:  l.OrderIndex,
			SubTopic:    l.SubTopic,
			Keywords:    []string(l.Keywords),
			Description: l.Description,
			Artifacts:   decoded,
			Status:      make(map[types.ArtifactKind]types.GenerationStatus, len(learning.ArtifactKinds)),
		}
		for _, k := range learning.ArtifactKinds {
			node.Status[k] = learning.LessonKindStatus(statusByLesson[l.ID][k], present[k])
		}
		tree.Lessons = append(tree.Lessons, node)
	}
	tree.ArtifactStatus = learning.AggregateKindStatus(tree.Lessons)
	return tree, nil
}

func (a *contentStoreAggregate) ListCurricula(ctx context.Context, ownerID *string) ([]learning.CurriculumSummary, error) {
	const op = "Learning.ContentStore.ListCurricula"
	out := []learning.CurriculumSummary{}
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rows, err := a.deps.Curricula.ListByOwner(dbc, normalizeOwner(ownerID))
		if err != nil {
			return err
		}
		for _, r := range rows {
			out = append(out, learning.SummaryOf(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *contentStoreAggregate) GetLessonArtifacts(ctx context.Context, lessonID uuid.UUID, kind learning.ArtifactKind) (*learning.LessonArtifacts, error) {
	const op = "Learning.ContentStore.GetLessonArtifacts"
	if kind != "" && !kind.Valid() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown artifact kind %q", kind), nil)
	}
	var out learning.LessonArtifacts
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return NotFoundError(fmt.Sprintf("lesson not found: %s", lessonID))
		}
		var rows []*types.LessonArtifact
		if kind == "" {
			rows, err = a.deps.Artifacts.ListByLessonIDs(dbc, []uuid.UUID{lesson.ID})
		} else {
			rows, err = a.deps.Artifacts.ListByLessonAndKind(dbc, lesson.ID, kind)
		}
		if err != nil {
			return err
		}
		decoded, err := learning.DecodeArtifacts(rows)
		if err != nil {
			return InvariantError(err.Error())
		}
		out = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *contentStoreAggregate) GetStatus(ctx context.Context, curriculumID uuid.UUID) (*learning.GenerationStatusView, error) {
	const op = "Learning.ContentStore.GetStatus"
	var out *learning.GenerationStatusView
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.loadTree(dbc, curriculumID)
		if err != nil {
			return err
		}
		out = &learning.GenerationStatusView{
			CurriculumID:     tree.Curriculum.ID,
			GenerationStatus: tree.Curriculum.GenerationStatus,
			GenerationError:  tree.Curriculum.GenerationError,
			Attempts:         tree.Curriculum.Attempts,
			LessonCount:      len(tree.Lessons),
			ArtifactStatus:   tree.ArtifactStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeOwner(ownerID *string) *string {
	if ownerID == nil {
		return nil
	}
	v := strings.TrimSpace(*ownerID)
	if v == "" {
		return nil
	}
	return &v
}

func statusStrings(in []types.GenerationStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
