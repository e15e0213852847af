package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rohhhan8/major-project-4th-year/internal/cluster"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

func result(p model.Pillar, correct bool, taken, ideal float64) model.QuestionResult {
	return model.QuestionResult{Pillar: p, IsCorrect: correct, TimeTakenSeconds: taken, IdealTimeSeconds: ideal}
}

func testModel() *cluster.Model {
	return &cluster.Model{
		Scaler: cluster.Scaler{Mean: [2]float64{50, 50}, StdDev: [2]float64{10, 10}},
		Centroids: []cluster.Centroid{
			{Point: [2]float64{-1.5, 2}, Profile: model.ProfileStruggling},
			{Point: [2]float64{0, -2.5}, Profile: model.ProfileRushed},
			{Point: [2]float64{3, 0}, Profile: model.ProfileHighAchiever},
		},
	}
}

func TestAnalyzePillarsConceptScenario(t *testing.T) {
	stats, err := AnalyzePillars([]model.QuestionResult{
		result(model.PillarConcept, true, 10, 20),
		result(model.PillarConcept, false, 3, 20),
	})
	if err != nil {
		t.Fatalf("AnalyzePillars: %v", err)
	}
	got := stats[model.PillarConcept]
	if got.Correct != 1 || got.Total != 2 || got.Accuracy != 0.5 || got.RushedCount != 1 {
		t.Errorf("Concept = %+v, want correct 1, total 2, accuracy 0.5, rushed 1", got)
	}
	if len(stats) != 1 {
		t.Errorf("got %d pillars, want only Concept", len(stats))
	}
}

func TestAnalyzePillarsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		results []model.QuestionResult
	}{
		{"empty", nil},
		{"negative time", []model.QuestionResult{result(model.PillarConcept, true, -1, 20)}},
		{"zero ideal", []model.QuestionResult{result(model.PillarConcept, true, 5, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AnalyzePillars(tt.results); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestFillIdealTimes(t *testing.T) {
	in := []model.QuestionResult{
		{Pillar: model.PillarDebugging, Difficulty: model.DifficultyHard, TimeTakenSeconds: 10},
		{Pillar: model.PillarConcept, Difficulty: model.DifficultyEasy, TimeTakenSeconds: 10, IdealTimeSeconds: 40},
		{Pillar: model.PillarConcept, TimeTakenSeconds: 10},
	}
	out := FillIdealTimes(in)
	if out[0].IdealTimeSeconds != 67.5 {
		t.Errorf("hard debugging ideal time = %v, want 67.5", out[0].IdealTimeSeconds)
	}
	if out[1].IdealTimeSeconds != 40 {
		t.Errorf("explicit ideal time overwritten: %v", out[1].IdealTimeSeconds)
	}
	if out[2].IdealTimeSeconds != 0 {
		t.Errorf("ideal time without difficulty = %v, want 0", out[2].IdealTimeSeconds)
	}
	if in[0].IdealTimeSeconds != 0 {
		t.Error("input slice was modified")
	}
	if err := ValidateResults(out); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput for the result without difficulty", err)
	}
	if err := ValidateResults(out[:2]); err != nil {
		t.Errorf("ValidateResults: %v", err)
	}
}

func TestWeakestPillar(t *testing.T) {
	tests := []struct {
		name  string
		stats map[model.Pillar]model.PillarStats
		want  model.Pillar
	}{
		{
			name: "lowest accuracy",
			stats: map[model.Pillar]model.PillarStats{
				model.PillarConcept:   {Correct: 2, Total: 2, Accuracy: 1},
				model.PillarDebugging: {Correct: 0, Total: 1, Accuracy: 0},
			},
			want: model.PillarDebugging,
		},
		{
			name: "tie broken by least time",
			stats: map[model.Pillar]model.PillarStats{
				model.PillarConcept:        {Total: 1, TotalTimeSeconds: 40},
				model.PillarImplementation: {Total: 1, TotalTimeSeconds: 12},
			},
			want: model.PillarImplementation,
		},
		{
			name: "tie broken lexically",
			stats: map[model.Pillar]model.PillarStats{
				model.PillarDebugging:  {Total: 1, TotalTimeSeconds: 10},
				model.PillarComplexity: {Total: 1, TotalTimeSeconds: 10},
			},
			want: model.PillarComplexity,
		},
		{
			name: "empty pillar skipped",
			stats: map[model.Pillar]model.PillarStats{
				model.PillarApplication: {Total: 0},
				model.PillarConcept:     {Correct: 1, Total: 2, Accuracy: 0.5},
			},
			want: model.PillarConcept,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WeakestPillar(tt.stats)
			if !ok || got != tt.want {
				t.Errorf("WeakestPillar = %q, %v; want %q", got, ok, tt.want)
			}
		})
	}

	if _, ok := WeakestPillar(nil); ok {
		t.Error("WeakestPillar(nil) should report false")
	}
}

func TestClassifyRules(t *testing.T) {
	c := NewClassifier(nil, nil)
	tests := []struct {
		name    string
		results []model.QuestionResult
		want    model.Profile
	}{
		{
			name: "high score wins even when fast",
			results: []model.QuestionResult{
				result(model.PillarConcept, true, 1, 20),
				result(model.PillarConcept, true, 1, 20),
				result(model.PillarConcept, true, 1, 20),
				result(model.PillarConcept, false, 1, 20),
			},
			want: model.ProfileHighAchiever,
		},
		{
			name: "many rushed answers",
			results: []model.QuestionResult{
				result(model.PillarConcept, true, 2, 20),
				result(model.PillarConcept, false, 2, 20),
				result(model.PillarConcept, false, 30, 20),
			},
			want: model.ProfileRushed,
		},
		{
			name: "overall too fast",
			results: []model.QuestionResult{
				result(model.PillarConcept, true, 10, 20),
				result(model.PillarConcept, false, 10, 20),
			},
			want: model.ProfileRushed,
		},
		{
			name: "slow and wrong",
			results: []model.QuestionResult{
				result(model.PillarConcept, false, 25, 20),
				result(model.PillarConcept, true, 30, 20),
				result(model.PillarConcept, false, 20, 20),
			},
			want: model.ProfileStruggling,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.results)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Profile != tt.want {
				t.Errorf("Profile = %q, want %q (percentage %.1f, rushed %.2f, time ratio %.2f)",
					got.Profile, tt.want, got.Features.PercentageScore, got.RushedRatio, got.TimeRatio)
			}
			if !got.Degraded || got.Cluster != nil {
				t.Error("classifier without model should be degraded with no cluster signal")
			}
		})
	}
}

func TestClassifyHighAchieverProperty(t *testing.T) {
	c := NewClassifier(testModel(), nil)
	for correct := 7; correct <= 10; correct++ {
		for _, taken := range []float64{0.5, 5, 60, 300} {
			var results []model.QuestionResult
			for i := range 10 {
				results = append(results, result(model.PillarApplication, i < correct, taken, 30))
			}
			got, err := c.Classify(results)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Profile != model.ProfileHighAchiever {
				t.Errorf("%d/10 correct at %vs: profile %q, want High Achiever", correct, taken, got.Profile)
			}
		}
	}
}

func TestClassifyRushedProperty(t *testing.T) {
	c := NewClassifier(nil, nil)
	for rushed := 5; rushed <= 10; rushed++ {
		var results []model.QuestionResult
		for i := range 10 {
			taken := 40.0
			if i < rushed {
				taken = 1
			}
			results = append(results, result(model.PillarDebugging, i%3 == 0, taken, 30))
		}
		got, err := c.Classify(results)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if got.Profile != model.ProfileRushed {
			t.Errorf("%d/10 rushed: profile %q, want Rushed", rushed, got.Profile)
		}
	}
}

func TestClassifyClusterSignal(t *testing.T) {
	c := NewClassifier(testModel(), nil)
	// 8/10 correct at 50s average normalizes onto the High Achiever centroid.
	var results []model.QuestionResult
	for i := range 10 {
		results = append(results, result(model.PillarConcept, i < 8, 50, 30))
	}
	got, err := c.Classify(results)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Degraded {
		t.Error("Degraded = true with a loaded model")
	}
	if got.Cluster == nil {
		t.Fatal("Cluster signal missing")
	}
	if got.Cluster.Profile != model.ProfileHighAchiever || !got.Cluster.Agrees {
		t.Errorf("Cluster = %+v, want agreeing High Achiever signal", got.Cluster)
	}
	if got.Cluster.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1 at the centroid", got.Cluster.Confidence)
	}
}

func TestLoadClassifierMissingModel(t *testing.T) {
	c := LoadClassifier(t.TempDir()+"/missing.json", nil)
	if c.HasModel() {
		t.Fatal("HasModel = true for a missing file")
	}
	got, err := c.Classify([]model.QuestionResult{result(model.PillarConcept, true, 10, 20)})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !got.Degraded {
		t.Error("Degraded = false without a model")
	}
}

func TestDiagnose(t *testing.T) {
	d := New(NewClassifier(nil, nil), nil)
	attempt := model.QuizAttempt{
		ID:        "a1",
		TopicID:   "stack",
		TopicName: "Stack",
		Results: []model.QuestionResult{
			{Pillar: model.PillarConcept, IsCorrect: true, TimeTakenSeconds: 20, IdealTimeSeconds: 24},
			{Pillar: model.PillarComplexity, IsCorrect: false, TimeTakenSeconds: 30, IdealTimeSeconds: 36, Tags: []string{"stack overflow", "push pop"}},
			{Pillar: model.PillarComplexity, IsCorrect: false, TimeTakenSeconds: 40, IdealTimeSeconds: 36, Tags: []string{"push pop", "lifo"}},
		},
	}
	diag, err := d.Diagnose(context.Background(), attempt)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diag.Profile != model.ProfileStruggling {
		t.Errorf("Profile = %q, want Struggling", diag.Profile)
	}
	if diag.WeakestPillar != model.PillarComplexity {
		t.Errorf("WeakestPillar = %q, want Complexity", diag.WeakestPillar)
	}
	if diag.Topic != "Stack" || diag.Total != 3 || diag.Correct != 1 {
		t.Errorf("diagnosis header = %q %d/%d", diag.Topic, diag.Correct, diag.Total)
	}
	wantTags := []string{"stack overflow", "push pop", "lifo"}
	if fmt.Sprint(diag.Tags) != fmt.Sprint(wantTags) {
		t.Errorf("Tags = %v, want %v", diag.Tags, wantTags)
	}
	if !strings.Contains(diag.Feedback, "Stack") || !strings.Contains(diag.Feedback, "Big-O") {
		t.Errorf("Feedback = %q, want topic and complexity tip", diag.Feedback)
	}
}

func TestDiagnoseInvalidAttempt(t *testing.T) {
	d := New(nil, nil)
	_, err := d.Diagnose(context.Background(), model.QuizAttempt{ID: "empty"})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestFeedbackUnknownPillar(t *testing.T) {
	got := Feedback(context.Background(), model.ProfileRushed, "Security", "Graphs", 2)
	if !strings.Contains(got, "Security") {
		t.Errorf("Feedback = %q, want generic tip naming the pillar", got)
	}
	if !strings.Contains(got, "2 questions") {
		t.Errorf("Feedback = %q, want rushed count", got)
	}
}
