package store

import (
	"fmt"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// ExportDiagnoses builds an export of stored diagnoses joined with their
// attempts. An empty topic exports every topic.
func (s *Store) ExportDiagnoses(topicID string) (model.DiagnosisExport, error) {
	exp := model.DiagnosisExport{
		ExportedAt: time.Now().UTC(),
		Topic:      topicID,
		Profiles:   make(map[model.Profile]int),
		Results:    []model.AttemptSummary{},
	}

	diagnoses, err := s.ListDiagnoses(topicID)
	if err != nil {
		return exp, fmt.Errorf("list diagnoses: %w", err)
	}

	for _, d := range diagnoses {
		sum := model.AttemptSummary{
			AttemptID:     d.AttemptID,
			TopicID:       d.TopicID,
			SubmittedAt:   d.CreatedAt,
			Questions:     d.Total,
			Percentage:    d.Percentage,
			Profile:       d.Profile,
			WeakestPillar: d.WeakestPillar,
			Feedback:      d.Feedback,
			ClusterID:     -1,
		}
		// Diagnoses can be stored for ad-hoc requests without a saved attempt.
		a, err := s.GetAttempt(d.AttemptID)
		switch {
		case err == nil:
			sum.SubmittedAt = a.SubmittedAt
			sum.Questions = len(a.Results)
		case !isNotFound(err):
			return exp, fmt.Errorf("get attempt %s: %w", d.AttemptID, err)
		}
		if d.Cluster != nil {
			sum.ClusterID = d.Cluster.ClusterID
			sum.Confidence = d.Cluster.Confidence
		}
		exp.Profiles[d.Profile]++
		exp.Results = append(exp.Results, sum)
	}
	exp.Count = len(exp.Results)
	return exp, nil
}
