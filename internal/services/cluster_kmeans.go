package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/obs"
	"github.com/geosensing/allocator/internal/ports"
)

// KMeans partitions points by iterative centroid relocation under the
// provider's distance metric.
//
// Cluster sizes are NOT balanced: k-means minimizes within-cluster distance,
// so dense areas produce large clusters and sparse areas small ones. Callers
// that need near-equal group sizes should use the external partitioning path
// instead; the trade-off is documented rather than hidden.
type KMeans struct {
	Provider ports.MatrixProvider
	// MaxIter caps relocation rounds; 0 means DefaultKMeansMaxIter.
	MaxIter int
	// Tol is the centroid drift below which the run counts as converged.
	// Drift is the Euclidean displacement of the centroid in raw lon/lat
	// coordinates, independent of the provider's metric. 0 means
	// DefaultKMeansTol.
	Tol float64
}

const (
	DefaultKMeansMaxIter = 300
	DefaultKMeansTol     = 1e-4
)

// Partition runs seeded k-means. Identical inputs and seed produce
// bit-identical output: initialization is a seeded shuffle of the input
// points and every tie in assignment resolves to the lowest centroid index.
func (km *KMeans) Partition(ctx context.Context, points []domain.Point, k int, seed int64) (p *domain.Partition, err error) {
	defer obs.Time(ctx, "cluster.kmeans")(&err)

	n := len(points)
	if k <= 0 || k > n {
		return nil, &domain.ValidationError{Field: "k", Reason: fmt.Sprintf("k=%d must be in [1, %d]", k, n)}
	}

	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultKMeansMaxIter
	}
	tol := km.Tol
	if tol <= 0 {
		tol = DefaultKMeansTol
	}

	// Initialize centroids by a seeded shuffle of the input points.
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	centroids := make([]domain.Coordinates, k)
	for i := 0; i < k; i++ {
		centroids[i] = points[perm[i]].Coords
	}

	labels := make([]int, n)
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}

	iterations := 0
	converged := false

	for iterations < maxIter {
		iterations++

		m, err := km.Provider.Matrix(ctx, points, centroidPoints(centroids))
		if err != nil {
			return nil, fmt.Errorf("cluster kmeans: distance to centroids: %w", err)
		}

		for i := range points {
			labels[i] = argmin(m.Distances[i])
		}

		if equalLabels(labels, prev) {
			converged = true
			break
		}
		copy(prev, labels)

		drift := relocate(points, labels, centroids)
		if drift < tol {
			converged = true
			break
		}
	}

	return &domain.Partition{
		Labels:     append([]int(nil), labels...),
		K:          k,
		Centroids:  centroids,
		Iterations: iterations,
		Converged:  converged,
		Method:     "kmeans",
	}, nil
}

// relocate moves each centroid to the mean of its assigned points and
// returns the largest move. A cluster that lost all members keeps its
// previous centroid.
func relocate(points []domain.Point, labels []int, centroids []domain.Coordinates) float64 {
	k := len(centroids)
	sumLon := make([]float64, k)
	sumLat := make([]float64, k)
	count := make([]int, k)

	for i, p := range points {
		l := labels[i]
		sumLon[l] += p.Coords.Lon
		sumLat[l] += p.Coords.Lat
		count[l]++
	}

	maxDrift := 0.0
	for c := 0; c < k; c++ {
		if count[c] == 0 {
			continue
		}
		next := domain.Coordinates{
			Lon: sumLon[c] / float64(count[c]),
			Lat: sumLat[c] / float64(count[c]),
		}
		drift := math.Hypot(next.Lon-centroids[c].Lon, next.Lat-centroids[c].Lat)
		if drift > maxDrift {
			maxDrift = drift
		}
		centroids[c] = next
	}
	return maxDrift
}

func centroidPoints(centroids []domain.Coordinates) []domain.Point {
	pts := make([]domain.Point, len(centroids))
	for i, c := range centroids {
		pts[i] = domain.Point{ID: fmt.Sprintf("centroid-%d", i), Coords: c}
	}
	return pts
}

// argmin returns the index of the smallest value; ties resolve to the
// lowest index.
func argmin(row []float64) int {
	best := 0
	for j := 1; j < len(row); j++ {
		if row[j] < row[best] {
			best = j
		}
	}
	return best
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
