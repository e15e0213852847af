package diagnosis

import (
	"errors"
	"log/slog"

	"github.com/rohhhan8/major-project-4th-year/internal/cluster"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Thresholds of the rule-based classifier.
const (
	HighAchieverPercentage = 70.0
	RushedProportion       = 0.4
	SlowTimeRatio          = 0.6
)

// Classification is the profile of one attempt with the numbers it was derived from.
type Classification struct {
	Profile     model.Profile
	Features    model.LearnerFeatures
	Correct     int
	Total       int
	RushedCount int
	RushedRatio float64
	TimeRatio   float64
	Cluster     *model.ClusterSignal
	Degraded    bool
}

// Classifier assigns a learner profile. The precedence rules always decide
// the profile; the optional cluster model only adds an explanatory signal.
type Classifier struct {
	model  *cluster.Model
	logger *slog.Logger
}

// NewClassifier creates a classifier. m may be nil, in which case every
// classification is marked degraded.
func NewClassifier(m *cluster.Model, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{model: m, logger: logger}
}

// LoadClassifier loads the cluster model from path. A missing or invalid
// model is logged and the classifier falls back to rules only.
func LoadClassifier(path string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		logger.Warn("no cluster model configured, using rule-based classification only")
		return NewClassifier(nil, logger)
	}
	m, err := cluster.Load(path)
	if err != nil {
		logger.Warn("cluster model unavailable, using rule-based classification only", "path", path, "error", err)
		return NewClassifier(nil, logger)
	}
	logger.Info("cluster model loaded", "path", path, "version", m.Version)
	return NewClassifier(m, logger)
}

// HasModel reports whether a cluster model is loaded.
func (c *Classifier) HasModel() bool {
	return c.model != nil
}

// Classify computes features and the profile of an attempt's results.
func (c *Classifier) Classify(results []model.QuestionResult) (Classification, error) {
	if err := ValidateResults(results); err != nil {
		return Classification{}, err
	}

	var out Classification
	var timeTaken, idealTime float64
	for _, r := range results {
		out.Total++
		if r.IsCorrect {
			out.Correct++
		}
		if IsRushed(r) {
			out.RushedCount++
		}
		timeTaken += r.TimeTakenSeconds
		idealTime += r.IdealTimeSeconds
	}
	out.Features = model.LearnerFeatures{
		PercentageScore:    float64(out.Correct) / float64(out.Total) * 100,
		AvgTimePerQuestion: timeTaken / float64(out.Total),
	}
	out.RushedRatio = float64(out.RushedCount) / float64(out.Total)
	out.TimeRatio = timeTaken / idealTime

	switch {
	case out.Features.PercentageScore >= HighAchieverPercentage:
		out.Profile = model.ProfileHighAchiever
	case out.RushedRatio > RushedProportion || out.TimeRatio < SlowTimeRatio:
		out.Profile = model.ProfileRushed
	default:
		out.Profile = model.ProfileStruggling
	}

	if c.model == nil {
		out.Degraded = true
		return out, nil
	}
	sig, err := c.model.Predict(out.Features.PercentageScore, out.Features.AvgTimePerQuestion)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			return Classification{}, err
		}
		c.logger.Warn("cluster prediction failed", "error", err)
		out.Degraded = true
		return out, nil
	}
	sig.Agrees = sig.Profile == out.Profile
	out.Cluster = &sig
	return out, nil
}
