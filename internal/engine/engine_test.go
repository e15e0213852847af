package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/diagnosis"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
	"github.com/rohhhan8/major-project-4th-year/internal/query"
	"github.com/rohhhan8/major-project-4th-year/internal/search"
	"github.com/rohhhan8/major-project-4th-year/internal/store"
	"github.com/rohhhan8/major-project-4th-year/internal/summarize"
)

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type countingGen struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGen) Generate(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return "## Stack notes\n- push adds to the top", nil
}

func (g *countingGen) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var testChunks = []model.VideoChunk{
	{
		ID: "beg_0", VideoID: "beg", Text: strings.Repeat("Pushing adds to the top. ", 6), Embedding: []float32{1, 0.1},
		Title:    "Stacks for beginners",
		Metadata: model.ChunkMetadata{Difficulty: "Beginner", Style: "Conceptual", Granularity: "Specific"},
	},
	{
		ID: "beg_1", VideoID: "beg", ChunkIndex: 1, Text: strings.Repeat("Popping removes the top. ", 6), Embedding: []float32{1, 0.2},
		Title:    "Stacks for beginners",
		Metadata: model.ChunkMetadata{Difficulty: "Beginner", Style: "Conceptual", Granularity: "Specific"},
	},
	{
		ID: "adv_0", VideoID: "adv", Text: "amortized analysis of dynamic arrays backing a stack", Embedding: []float32{0, 1},
		Title:    "Stack internals",
		Metadata: model.ChunkMetadata{Difficulty: "Advanced", Style: "Interview_Prep", Granularity: "Specific"},
	},
}

func struggling() model.QuizAttempt {
	return model.QuizAttempt{
		TopicID:   "stack",
		TopicName: "Stack",
		Results: []model.QuestionResult{
			{Pillar: model.PillarConcept, IsCorrect: true, TimeTakenSeconds: 20, IdealTimeSeconds: 24},
			{Pillar: model.PillarComplexity, IsCorrect: false, TimeTakenSeconds: 30, IdealTimeSeconds: 36, Tags: []string{"push pop"}},
			{Pillar: model.PillarComplexity, IsCorrect: false, TimeTakenSeconds: 40, IdealTimeSeconds: 36},
		},
	}
}

func newTestEngine(t *testing.T, withStore bool) (*Engine, *store.Store, *countingGen) {
	t.Helper()
	composer, err := query.NewComposer(query.DefaultConfig())
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	index, err := search.NewIndex(testChunks, constEmbedder{}, search.Options{MinResults: 1}, nil)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	gen := &countingGen{}
	s, err := summarize.New(gen, summarize.Options{
		Split: summarize.SplitOptions{TargetSize: 100, Overlap: 10, SearchWindow: 30},
	}, nil)
	if err != nil {
		t.Fatalf("summarize.New: %v", err)
	}
	deps := Deps{
		Diagnostician: diagnosis.New(nil, nil),
		Composer:      composer,
		Searcher:      index,
		Summarizer:    summarize.NewPool(s, 2),
	}
	var st *store.Store
	if withStore {
		st, err = store.New(":memory:")
		if err != nil {
			t.Fatalf("store.New: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		if err := st.UpsertChunks(testChunks); err != nil {
			t.Fatalf("UpsertChunks: %v", err)
		}
		deps.Store = st
	}
	e, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, st, gen
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("expected error without collaborators")
	}
}

func TestSubmit(t *testing.T) {
	e, st, _ := newTestEngine(t, true)
	res, err := e.Submit(context.Background(), struggling())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d := res.Diagnosis
	if d.AttemptID == "" {
		t.Fatal("expected a generated attempt id")
	}
	if d.Profile != model.ProfileStruggling || d.WeakestPillar != model.PillarComplexity {
		t.Errorf("diagnosis = %s/%s, want Struggling/Complexity", d.Profile, d.WeakestPillar)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].VideoID != "beg" {
		t.Fatalf("recommendations = %+v, want only the beginner video", res.Recommendations)
	}

	a, err := st.GetAttempt(d.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if len(a.Results) != 3 || a.SubmittedAt.IsZero() {
		t.Errorf("stored attempt = %+v", a)
	}
	stored, err := st.GetDiagnosis(d.AttemptID)
	if err != nil || stored == nil {
		t.Fatalf("GetDiagnosis = %v, %v", stored, err)
	}
	if stored.Profile != model.ProfileStruggling {
		t.Errorf("stored profile = %s", stored.Profile)
	}
}

func TestSubmitInvalid(t *testing.T) {
	e, st, _ := newTestEngine(t, true)
	a := struggling()
	a.ID = "bad"
	a.Results[0].TimeTakenSeconds = -1
	if _, err := e.Submit(context.Background(), a); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := st.GetAttempt("bad"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("invalid attempt was stored: %v", err)
	}
}

func TestSubmitSameAttemptTwice(t *testing.T) {
	e, st, _ := newTestEngine(t, true)
	first := model.QuizAttempt{
		ID:      "att-1",
		TopicID: "stack",
		Results: []model.QuestionResult{
			{Pillar: model.PillarConcept, IsCorrect: true, TimeTakenSeconds: 20, IdealTimeSeconds: 24},
		},
	}
	if _, err := e.Submit(context.Background(), first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second := first
	second.Results = []model.QuestionResult{
		{Pillar: model.PillarDebugging, IsCorrect: false, TimeTakenSeconds: 1, IdealTimeSeconds: 20},
	}
	if _, err := e.Submit(context.Background(), second); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second Submit: err = %v, want ErrAlreadySubmitted", err)
	}

	a, err := st.GetAttempt("att-1")
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if len(a.Results) != 1 || a.Results[0].Pillar != model.PillarConcept || !a.Results[0].IsCorrect {
		t.Errorf("stored attempt changed: %+v", a.Results)
	}
	d, err := st.GetDiagnosis("att-1")
	if err != nil || d == nil {
		t.Fatalf("GetDiagnosis = %v, %v", d, err)
	}
	if d.Profile != model.ProfileHighAchiever || d.WeakestPillar != model.PillarConcept {
		t.Errorf("stored diagnosis = %s/%s, want High Achiever/Concept", d.Profile, d.WeakestPillar)
	}
}

func TestSubmitFillsIdealTimeFromDifficulty(t *testing.T) {
	e, st, _ := newTestEngine(t, true)
	a := model.QuizAttempt{
		ID:      "att-ideal",
		TopicID: "stack",
		Results: []model.QuestionResult{
			{Pillar: model.PillarDebugging, Difficulty: model.DifficultyMedium, IsCorrect: true, TimeTakenSeconds: 40},
		},
	}
	if _, err := e.Submit(context.Background(), a); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := st.GetAttempt("att-ideal")
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	r := got.Results[0]
	if r.IdealTimeSeconds != 45 || r.Difficulty != model.DifficultyMedium {
		t.Errorf("stored result = %+v, want medium difficulty with 45s ideal time", r)
	}
}

func TestDiagnoseStoresNothing(t *testing.T) {
	e, st, _ := newTestEngine(t, true)
	a := struggling()
	a.ID = "adhoc"
	d, err := e.Diagnose(context.Background(), a)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if d.AttemptID != "adhoc" {
		t.Errorf("AttemptID = %q", d.AttemptID)
	}
	stored, err := st.GetDiagnosis("adhoc")
	if err != nil {
		t.Fatalf("GetDiagnosis: %v", err)
	}
	if stored != nil {
		t.Errorf("diagnose stored a diagnosis: %+v", stored)
	}
	if _, err := st.GetAttempt("adhoc"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("diagnose stored an attempt: %v", err)
	}
}

func TestRecommend(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	d := model.Diagnosis{Profile: model.ProfileHighAchiever, WeakestPillar: model.PillarApplication, Topic: "Stack"}

	recs, err := e.Recommend(context.Background(), d, "")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 || recs[0].VideoID != "adv" || recs[0].Relaxed {
		t.Errorf("recommendations = %+v, want the advanced video", recs)
	}

	if _, err := e.Recommend(context.Background(), model.Diagnosis{Profile: "Bored"}, "Stack"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRecommendWithoutIndex(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	e.searcher = nil
	recs, err := e.Recommend(context.Background(), model.Diagnosis{Profile: model.ProfileRushed}, "Queue")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("recs = %#v, want empty non-nil slice", recs)
	}
}

func TestSummarize(t *testing.T) {
	e, _, gen := newTestEngine(t, false)
	res, err := e.Summarize(context.Background(), strings.Repeat("Pushing adds to the top. ", 10))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.SegmentsTotal != 3 || len(res.SegmentsFailed) != 0 {
		t.Errorf("segments = %d failed %v, want 3 and none", res.SegmentsTotal, res.SegmentsFailed)
	}
	if gen.count() != 3 {
		t.Errorf("generator calls = %d, want 3", gen.count())
	}
	if !strings.Contains(res.Markdown, "## Stack notes") {
		t.Errorf("markdown = %q", res.Markdown)
	}

	if _, err := e.Summarize(context.Background(), "   "); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSummarizeVideo(t *testing.T) {
	e, st, gen := newTestEngine(t, true)
	ctx := context.Background()

	first, err := e.SummarizeVideo(ctx, "beg", "Stack", false)
	if err != nil {
		t.Fatalf("SummarizeVideo: %v", err)
	}
	if first.VideoID != "beg" || first.SegmentsTotal == 0 {
		t.Fatalf("unexpected notes: %+v", first)
	}
	calls := gen.count()

	again, err := e.SummarizeVideo(ctx, "beg", "Stack", false)
	if err != nil {
		t.Fatalf("SummarizeVideo again: %v", err)
	}
	if again.ID != first.ID || gen.count() != calls {
		t.Errorf("expected stored notes to be reused")
	}

	time.Sleep(time.Millisecond)
	forced, err := e.SummarizeVideo(ctx, "beg", "Stack", true)
	if err != nil {
		t.Fatalf("SummarizeVideo forced: %v", err)
	}
	if forced.ID == first.ID || gen.count() == calls {
		t.Errorf("expected regeneration when forced")
	}
	latest, err := st.LatestNotes("beg")
	if err != nil || latest == nil {
		t.Fatalf("LatestNotes = %v, %v", latest, err)
	}
	if latest.ID != forced.ID {
		t.Errorf("latest notes = %s, want %s", latest.ID, forced.ID)
	}

	if _, err := e.SummarizeVideo(ctx, "missing", "", false); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("err = %v, want ErrNoTranscript", err)
	}
}

func TestSummarizeVideoWithoutStore(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	if _, err := e.SummarizeVideo(context.Background(), "beg", "", false); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("err = %v, want ErrNoTranscript", err)
	}
}
