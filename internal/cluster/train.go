package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// TrainOptions controls offline model training.
type TrainOptions struct {
	Seed     uint64
	Restarts int // independent k-means++ initializations; best inertia wins
	MaxIter  int
}

// DefaultTrainOptions mirrors the settings the production model was trained with.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Seed: 42, Restarts: 10, MaxIter: 300}
}

// GenerateSynthetic produces n (score, avg time) pairs drawn from the three
// learner populations: 40% struggling, 35% high achievers, 25% rushed.
func GenerateSynthetic(n int, seed uint64) [][2]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	nStruggling := int(float64(n) * 0.40)
	nAchievers := int(float64(n) * 0.35)
	nRushed := n - nStruggling - nAchievers

	points := make([][2]float64, 0, n)
	for range nStruggling {
		points = append(points, [2]float64{uniform(20, 55), uniform(60, 120)})
	}
	for range nAchievers {
		points = append(points, [2]float64{uniform(70, 100), uniform(30, 70)})
	}
	for range nRushed {
		points = append(points, [2]float64{uniform(30, 70), uniform(10, 35)})
	}
	rng.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })
	return points
}

// Train fits a scaler and a three-cluster k-means model on raw
// (score, avg time) points and labels each centroid with a profile.
func Train(points [][2]float64, opts TrainOptions) (*Model, error) {
	if len(points) < NumClusters {
		return nil, fmt.Errorf("need at least %d points, got %d", NumClusters, len(points))
	}
	for i, p := range points {
		if err := ValidateFeatures(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	if opts.Restarts <= 0 {
		opts.Restarts = 1
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 300
	}

	scaler := FitScaler(points)
	scaled := make([][2]float64, len(points))
	for i, p := range points {
		scaled[i], _ = scaler.Normalize(p[0], p[1])
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x2545f4914f6cdd1d))
	var best [][2]float64
	bestInertia := math.Inf(1)
	for range opts.Restarts {
		centers := kmeansPlusPlus(scaled, NumClusters, rng)
		centers, inertia := lloyd(scaled, centers, opts.MaxIter)
		if inertia < bestInertia {
			best, bestInertia = centers, inertia
		}
	}

	m := &Model{
		Version:   "1.0.0",
		Features:  []string{"avg_score", "avg_time_per_question"},
		Scaler:    scaler,
		Centroids: labelCentroids(best, scaler),
		TrainedAt: time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("trained model invalid: %w", err)
	}
	return m, nil
}

// labelCentroids names clusters by their position in the original feature
// space: the highest scoring centre is High Achiever, the faster of the two
// remaining centres is Rushed and the last one is Struggling.
func labelCentroids(centers [][2]float64, s Scaler) []Centroid {
	out := make([]Centroid, len(centers))
	orig := make([][2]float64, len(centers))
	for i, c := range centers {
		out[i].Point = c
		orig[i] = s.Denormalize(c)
	}
	top := 0
	for i := range orig {
		if orig[i][0] > orig[top][0] {
			top = i
		}
	}
	out[top].Profile = model.ProfileHighAchiever

	rest := make([]int, 0, 2)
	for i := range orig {
		if i != top {
			rest = append(rest, i)
		}
	}
	fast, slow := rest[0], rest[1]
	if orig[slow][1] < orig[fast][1] {
		fast, slow = slow, fast
	}
	out[fast].Profile = model.ProfileRushed
	out[slow].Profile = model.ProfileStruggling
	return out
}

func kmeansPlusPlus(points [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	centers := make([][2]float64, 0, k)
	centers = append(centers, points[rng.IntN(len(points))])
	dist := make([]float64, len(points))
	for len(centers) < k {
		var sum float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centers {
				if e := euclidean(p, c); e*e < d {
					d = e * e
				}
			}
			dist[i] = d
			sum += d
		}
		if sum == 0 {
			centers = append(centers, points[rng.IntN(len(points))])
			continue
		}
		target := rng.Float64() * sum
		idx := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, points[idx])
	}
	return centers
}

func lloyd(points, centers [][2]float64, maxIter int) ([][2]float64, float64) {
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}
	for range maxIter {
		changed := false
		for i, p := range points {
			nearest := nearestCenter(p, centers)
			if nearest != assign[i] {
				assign[i] = nearest
				changed = true
			}
		}
		sums := make([][2]float64, len(centers))
		counts := make([]int, len(centers))
		for i, p := range points {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for c := range centers {
			// An emptied cluster keeps its previous centre.
			if counts[c] > 0 {
				centers[c] = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
		}
		if !changed {
			break
		}
	}
	var inertia float64
	for i, p := range points {
		d := euclidean(p, centers[assign[i]])
		inertia += d * d
	}
	return centers, inertia
}

func nearestCenter(p [2]float64, centers [][2]float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := euclidean(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
