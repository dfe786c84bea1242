package archetype

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeansConfig controls centroid fitting.
type KMeansConfig struct {
	K       int   `mapstructure:"k"`
	Seed    int64 `mapstructure:"seed"`
	NInit   int   `mapstructure:"n_init"`
	MaxIter int   `mapstructure:"max_iter"`
}

// KMeans fits k centroids to points with k-means++ seeding and Lloyd iterations,
// keeping the lowest-inertia result of NInit restarts. The same seed and point
// order always yield the same centroids.
func KMeans(points [][]float64, cfg KMeansConfig) [][]float64 {
	k := cfg.K
	if k > len(points) {
		k = len(points)
	}
	if k <= 0 {
		return nil
	}
	nInit := cfg.NInit
	if nInit < 1 {
		nInit = 1
	}
	maxIter := cfg.MaxIter
	if maxIter < 1 {
		maxIter = 300
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var best [][]float64
	bestInertia := math.Inf(1)
	for run := 0; run < nInit; run++ {
		centroids := lloyd(points, seedCentroids(points, k, rng), maxIter)
		if inertia := inertia(points, centroids); inertia < bestInertia {
			bestInertia = inertia
			best = centroids
		}
	}
	return best
}

func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	d2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			_, d := Nearest(p, centroids)
			d2[i] = d * d
			total += d2[i]
		}
		if total == 0 {
			// every point sits on a centroid already
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		chosen := len(points) - 1
		for i, w := range d2 {
			target -= w
			if target <= 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

func lloyd(points, centroids [][]float64, maxIter int) [][]float64 {
	dim := len(points[0])
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c, _ := Nearest(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			// an empty cluster keeps its previous centroid
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return centroids
}

func inertia(points, centroids [][]float64) float64 {
	var total float64
	for _, p := range points {
		_, d := Nearest(p, centroids)
		total += d * d
	}
	return total
}

// Nearest returns the index of the closest centroid and its Euclidean distance.
// Ties go to the lowest index.
func Nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// Membership converts distances to the centroids into inverse-distance weights
// that sum to 1. A point sitting on a centroid belongs to it entirely. These are
// interpretation aids, not calibrated probabilities.
func Membership(p []float64, centroids [][]float64) []float64 {
	scores := make([]float64, len(centroids))
	if len(centroids) == 0 {
		return scores
	}
	var total float64
	for c, centroid := range centroids {
		d := floats.Distance(p, centroid, 2)
		if d < 1e-12 {
			for i := range scores {
				scores[i] = 0
			}
			scores[c] = 1
			return scores
		}
		scores[c] = 1 / d
		total += scores[c]
	}
	floats.Scale(1/total, scores)
	return scores
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
