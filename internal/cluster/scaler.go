package cluster

import (
	"fmt"
	"math"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Scaler standardizes the [score, avg time] feature pair with the mean and
// standard deviation observed during training.
type Scaler struct {
	Mean   [2]float64 `json:"mean"`
	StdDev [2]float64 `json:"stddev"`
}

// Normalize returns (raw - mean) / stddev for each feature. A feature with a
// zero standard deviation is passed through unscaled.
func (s Scaler) Normalize(score, avgTime float64) ([2]float64, error) {
	if err := ValidateFeatures(score, avgTime); err != nil {
		return [2]float64{}, err
	}
	raw := [2]float64{score, avgTime}
	var out [2]float64
	for i := range raw {
		if s.StdDev[i] == 0 {
			out[i] = raw[i]
			continue
		}
		out[i] = (raw[i] - s.Mean[i]) / s.StdDev[i]
	}
	return out, nil
}

// Denormalize maps a standardized point back to the original feature space.
func (s Scaler) Denormalize(p [2]float64) [2]float64 {
	var out [2]float64
	for i := range p {
		if s.StdDev[i] == 0 {
			out[i] = p[i]
			continue
		}
		out[i] = p[i]*s.StdDev[i] + s.Mean[i]
	}
	return out
}

// ValidateFeatures rejects scores outside [0,100] and negative or non-finite times.
func ValidateFeatures(score, avgTime float64) error {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return fmt.Errorf("%w: score %v outside [0,100]", model.ErrInvalidInput, score)
	}
	if math.IsNaN(avgTime) || math.IsInf(avgTime, 0) || avgTime < 0 {
		return fmt.Errorf("%w: average time %v must be a non-negative number", model.ErrInvalidInput, avgTime)
	}
	return nil
}

// FitScaler computes per-feature mean and population standard deviation.
func FitScaler(points [][2]float64) Scaler {
	var s Scaler
	if len(points) == 0 {
		return s
	}
	n := float64(len(points))
	for _, p := range points {
		s.Mean[0] += p[0]
		s.Mean[1] += p[1]
	}
	s.Mean[0] /= n
	s.Mean[1] /= n
	for _, p := range points {
		for i := range p {
			d := p[i] - s.Mean[i]
			s.StdDev[i] += d * d
		}
	}
	s.StdDev[0] = math.Sqrt(s.StdDev[0] / n)
	s.StdDev[1] = math.Sqrt(s.StdDev[1] / n)
	return s
}
