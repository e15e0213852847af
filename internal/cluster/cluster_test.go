package cluster

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

func testModel() *Model {
	return &Model{
		Version:  "test",
		Features: []string{"avg_score", "avg_time_per_question"},
		Scaler:   Scaler{Mean: [2]float64{50, 50}, StdDev: [2]float64{10, 10}},
		Centroids: []Centroid{
			{Point: [2]float64{-1.5, 2}, Profile: model.ProfileStruggling},
			{Point: [2]float64{0, -2.5}, Profile: model.ProfileRushed},
			{Point: [2]float64{3, 0}, Profile: model.ProfileHighAchiever},
		},
	}
}

func TestNormalize(t *testing.T) {
	s := Scaler{Mean: [2]float64{50, 60}, StdDev: [2]float64{10, 0}}
	got, err := s.Normalize(70, 45)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got[0] != 2 {
		t.Errorf("score = %v, want 2", got[0])
	}
	if got[1] != 45 {
		t.Errorf("time with zero stddev = %v, want raw value 45", got[1])
	}
	back := s.Denormalize(got)
	if back != [2]float64{70, 45} {
		t.Errorf("Denormalize = %v, want [70 45]", back)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	s := Scaler{StdDev: [2]float64{1, 1}}
	tests := []struct {
		name           string
		score, avgTime float64
	}{
		{"negative score", -1, 10},
		{"score above 100", 100.5, 10},
		{"nan score", math.NaN(), 10},
		{"negative time", 50, -0.1},
		{"infinite time", 50, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Normalize(tt.score, tt.avgTime)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestFitScaler(t *testing.T) {
	s := FitScaler([][2]float64{{10, 5}, {30, 5}})
	if s.Mean != [2]float64{20, 5} {
		t.Errorf("Mean = %v, want [20 5]", s.Mean)
	}
	if s.StdDev != [2]float64{10, 0} {
		t.Errorf("StdDev = %v, want [10 0]", s.StdDev)
	}
}

func TestPredict(t *testing.T) {
	m := testModel()
	tests := []struct {
		name           string
		score, avgTime float64
		want           model.Profile
	}{
		{"slow and low", 35, 70, model.ProfileStruggling},
		{"fast", 50, 25, model.ProfileRushed},
		{"high score", 80, 50, model.ProfileHighAchiever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := m.Predict(tt.score, tt.avgTime)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if sig.Profile != tt.want {
				t.Errorf("Profile = %q, want %q", sig.Profile, tt.want)
			}
			if sig.Confidence < 0 || sig.Confidence > 1 {
				t.Errorf("Confidence = %v, want within [0,1]", sig.Confidence)
			}
		})
	}
}

func TestPredictConfidenceAtCentroid(t *testing.T) {
	m := testModel()
	// (80, 50) normalizes to exactly the High Achiever centroid (3, 0).
	sig, err := m.Predict(80, 50)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if sig.Distance != 0 || sig.Confidence != 1 {
		t.Errorf("distance=%v confidence=%v, want 0 and 1", sig.Distance, sig.Confidence)
	}
}

func TestValidate(t *testing.T) {
	m := testModel()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dup := testModel()
	dup.Centroids[1].Profile = model.ProfileStruggling
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicated profile")
	}

	short := testModel()
	short.Centroids = short.Centroids[:2]
	if err := short.Validate(); err == nil {
		t.Error("expected error for two centroids")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := Save(path, testModel()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Centroids) != NumClusters {
		t.Fatalf("centroids = %d, want %d", len(got.Centroids), NumClusters)
	}
	if got.Scaler != testModel().Scaler {
		t.Errorf("Scaler = %+v, want %+v", got.Scaler, testModel().Scaler)
	}
}

func TestLoadFailuresWrapModelUnavailable(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"centroids":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), garbage, invalid} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := Load(path)
			if !errors.Is(err, model.ErrModelUnavailable) {
				t.Errorf("err = %v, want ErrModelUnavailable", err)
			}
		})
	}
}

func TestGenerateSynthetic(t *testing.T) {
	points := GenerateSynthetic(200, 7)
	if len(points) != 200 {
		t.Fatalf("len = %d, want 200", len(points))
	}
	again := GenerateSynthetic(200, 7)
	for i := range points {
		if points[i] != again[i] {
			t.Fatalf("point %d differs between runs with the same seed", i)
		}
		if err := ValidateFeatures(points[i][0], points[i][1]); err != nil {
			t.Fatalf("point %d invalid: %v", i, err)
		}
	}
}

func TestTrainLabelsAllProfiles(t *testing.T) {
	points := GenerateSynthetic(600, 42)
	m, err := Train(points, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	tests := []struct {
		score, avgTime float64
		want           model.Profile
	}{
		{90, 45, model.ProfileHighAchiever},
		{35, 95, model.ProfileStruggling},
		{50, 20, model.ProfileRushed},
	}
	for _, tt := range tests {
		sig, err := m.Predict(tt.score, tt.avgTime)
		if err != nil {
			t.Fatalf("Predict(%v, %v): %v", tt.score, tt.avgTime, err)
		}
		if sig.Profile != tt.want {
			t.Errorf("Predict(%v, %v) = %q, want %q", tt.score, tt.avgTime, sig.Profile, tt.want)
		}
	}
}

func TestTrainTooFewPoints(t *testing.T) {
	if _, err := Train([][2]float64{{1, 1}}, DefaultTrainOptions()); err == nil {
		t.Error("expected error for a single point")
	}
}
