package diagnosis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Diagnostician produces the full diagnosis of a quiz attempt.
type Diagnostician struct {
	classifier *Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Diagnostician using the given classifier.
func New(c *Classifier, logger *slog.Logger) *Diagnostician {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = NewClassifier(nil, logger)
	}
	return &Diagnostician{classifier: c, logger: logger, now: time.Now}
}

// Diagnose classifies the attempt, computes pillar statistics and the
// weakest pillar, and renders feedback in the language of ctx.
func (d *Diagnostician) Diagnose(ctx context.Context, a model.QuizAttempt) (model.Diagnosis, error) {
	cls, err := d.classifier.Classify(a.Results)
	if err != nil {
		return model.Diagnosis{}, fmt.Errorf("classify attempt %s: %w", a.ID, err)
	}
	stats, err := AnalyzePillars(a.Results)
	if err != nil {
		return model.Diagnosis{}, fmt.Errorf("analyze pillars of attempt %s: %w", a.ID, err)
	}
	weakest, _ := WeakestPillar(stats)

	diag := model.Diagnosis{
		AttemptID:     a.ID,
		TopicID:       a.TopicID,
		Topic:         a.Topic(),
		Profile:       cls.Profile,
		Percentage:    cls.Features.PercentageScore,
		Correct:       cls.Correct,
		Total:         cls.Total,
		PillarStats:   stats,
		WeakestPillar: weakest,
		RushedRatio:   cls.RushedRatio,
		TimeRatio:     cls.TimeRatio,
		Tags:          FailedTags(a.Results),
		Cluster:       cls.Cluster,
		Degraded:      cls.Degraded,
		CreatedAt:     d.now().UTC(),
	}
	diag.Feedback = Feedback(ctx, diag.Profile, weakest, diag.Topic, cls.RushedCount)

	d.logger.Debug("attempt diagnosed",
		"attempt", a.ID,
		"profile", diag.Profile,
		"percentage", diag.Percentage,
		"weakest_pillar", weakest,
		"degraded", diag.Degraded,
	)
	return diag, nil
}
