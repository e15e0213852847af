// Package diagnosis turns quiz attempts into learner profiles, per-pillar
// statistics and feedback.
package diagnosis

import (
	"fmt"
	"math"
	"sort"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// RushedRatio is the time_taken/ideal_time ratio below which an answer
// counts as rushed.
const RushedRatio = 0.3

// FillIdealTimes returns a copy of results in which every result without an
// ideal time but with a difficulty gets the question bank's ideal time for
// its difficulty and pillar.
func FillIdealTimes(results []model.QuestionResult) []model.QuestionResult {
	out := make([]model.QuestionResult, len(results))
	copy(out, results)
	for i, r := range out {
		if r.IdealTimeSeconds == 0 && r.Difficulty != "" {
			out[i].IdealTimeSeconds = model.IdealTime(r.Difficulty, r.Pillar)
		}
	}
	return out
}

// ValidateResults rejects empty attempts and results with negative or
// non-finite times or a non-positive ideal time.
func ValidateResults(results []model.QuestionResult) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: attempt has no results", model.ErrInvalidInput)
	}
	for i, r := range results {
		if math.IsNaN(r.TimeTakenSeconds) || math.IsInf(r.TimeTakenSeconds, 0) || r.TimeTakenSeconds < 0 {
			return fmt.Errorf("%w: result %d (%s): time taken %v", model.ErrInvalidInput, i, r.QuestionID, r.TimeTakenSeconds)
		}
		if math.IsNaN(r.IdealTimeSeconds) || math.IsInf(r.IdealTimeSeconds, 0) || r.IdealTimeSeconds <= 0 {
			return fmt.Errorf("%w: result %d (%s): ideal time %v", model.ErrInvalidInput, i, r.QuestionID, r.IdealTimeSeconds)
		}
	}
	return nil
}

// IsRushed reports whether a single answer was given in under 30% of its
// ideal time.
func IsRushed(r model.QuestionResult) bool {
	return r.TimeTakenSeconds/r.IdealTimeSeconds < RushedRatio
}

// AnalyzePillars aggregates results per pillar. Only pillars that appear in
// results are present in the returned map.
func AnalyzePillars(results []model.QuestionResult) (map[model.Pillar]model.PillarStats, error) {
	if err := ValidateResults(results); err != nil {
		return nil, err
	}
	stats := make(map[model.Pillar]model.PillarStats)
	ratioSums := make(map[model.Pillar]float64)
	for _, r := range results {
		s := stats[r.Pillar]
		s.Total++
		if r.IsCorrect {
			s.Correct++
		}
		if IsRushed(r) {
			s.RushedCount++
		}
		s.TotalTimeSeconds += r.TimeTakenSeconds
		ratioSums[r.Pillar] += r.TimeTakenSeconds / r.IdealTimeSeconds
		stats[r.Pillar] = s
	}
	for p, s := range stats {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
		s.AvgTimeRatio = ratioSums[p] / float64(s.Total)
		stats[p] = s
	}
	return stats, nil
}

// WeakestPillar returns the pillar with the lowest accuracy. Ties go to the
// pillar with the least total time spent, then to the lexically smaller
// name. Pillars with no questions are never chosen.
func WeakestPillar(stats map[model.Pillar]model.PillarStats) (model.Pillar, bool) {
	pillars := make([]model.Pillar, 0, len(stats))
	for p, s := range stats {
		if s.Total > 0 {
			pillars = append(pillars, p)
		}
	}
	if len(pillars) == 0 {
		return "", false
	}
	sort.Slice(pillars, func(i, j int) bool {
		a, b := stats[pillars[i]], stats[pillars[j]]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy < b.Accuracy
		}
		if a.TotalTimeSeconds != b.TotalTimeSeconds {
			return a.TotalTimeSeconds < b.TotalTimeSeconds
		}
		return pillars[i] < pillars[j]
	})
	return pillars[0], true
}

// FailedTags collects the search tags of incorrectly answered questions in
// first-seen order without duplicates.
func FailedTags(results []model.QuestionResult) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, r := range results {
		if r.IsCorrect {
			continue
		}
		for _, t := range r.Tags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}
	}
	return tags
}
