package cluster

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// NumClusters is the fixed number of learner profiles the model separates.
const NumClusters = 3

// Centroid is one cluster centre in normalized feature space.
type Centroid struct {
	Point   [2]float64    `json:"point"`
	Profile model.Profile `json:"profile"`
}

// Model is the trained nearest-centroid classifier. It is immutable once
// loaded and safe for concurrent use.
type Model struct {
	Version   string     `json:"version"`
	Features  []string   `json:"features"`
	Scaler    Scaler     `json:"scaler"`
	Centroids []Centroid `json:"centroids"`
	TrainedAt time.Time  `json:"trained_at"`
}

// Validate checks that the model has exactly three centroids and that every
// profile labels exactly one of them.
func (m *Model) Validate() error {
	if len(m.Centroids) != NumClusters {
		return fmt.Errorf("expected %d centroids, got %d", NumClusters, len(m.Centroids))
	}
	seen := make(map[model.Profile]bool, NumClusters)
	for i, c := range m.Centroids {
		if !c.Profile.IsValid() {
			return fmt.Errorf("centroid %d has unknown profile %q", i, c.Profile)
		}
		if seen[c.Profile] {
			return fmt.Errorf("profile %q labels more than one centroid", c.Profile)
		}
		seen[c.Profile] = true
		for _, v := range c.Point {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("centroid %d is not finite", i)
			}
		}
	}
	return nil
}

// Predict assigns the features to the nearest centroid. Confidence falls
// linearly from 1 at the centroid to 0 at a normalized distance of 3.
func (m *Model) Predict(score, avgTime float64) (model.ClusterSignal, error) {
	p, err := m.Scaler.Normalize(score, avgTime)
	if err != nil {
		return model.ClusterSignal{}, err
	}
	best, bestDist := -1, math.Inf(1)
	for i, c := range m.Centroids {
		d := euclidean(p, c.Point)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return model.ClusterSignal{}, model.ErrModelUnavailable
	}
	return model.ClusterSignal{
		ClusterID:  best,
		Profile:    m.Centroids[best].Profile,
		Distance:   bestDist,
		Confidence: math.Max(0, 1-bestDist/3),
	}, nil
}

// Load reads and validates a model file. Every failure wraps
// model.ErrModelUnavailable so callers can degrade to rule-only classification.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrModelUnavailable, path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", model.ErrModelUnavailable, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrModelUnavailable, path, err)
	}
	return &m, nil
}

// Save writes the model as indented JSON.
func Save(path string, m *Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid model: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

func euclidean(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}
