package services

import (
	"context"
	"testing"

	"github.com/geosensing/allocator/internal/adapters/distance"
	"github.com/geosensing/allocator/internal/domain"
)

func TestClusterStats(t *testing.T) {
	points := planarPoints(
		[2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0},
		[2]float64{10, 10},
	)
	p := &domain.Partition{Labels: []int{0, 0, 0, 1}, K: 2}

	stats, err := ClusterStats(context.Background(), points, p, distance.NewPlanarProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected one stat per cluster, got %d", len(stats))
	}

	if stats[0].ClusterID != 0 || stats[0].Size != 3 {
		t.Fatalf("cluster 0: %+v", stats[0])
	}
	// Three collinear points one unit apart: the spanning tree is the two
	// unit edges.
	if stats[0].MSTWeight != 2 {
		t.Fatalf("cluster 0 spanning tree weight: got %v, want 2", stats[0].MSTWeight)
	}

	if stats[1].Size != 1 || stats[1].MSTWeight != 0 {
		t.Fatalf("singleton cluster must have zero tree weight: %+v", stats[1])
	}
}

func TestClusterStatsUsesProviderMetric(t *testing.T) {
	points := planarPoints([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	p := &domain.Partition{Labels: []int{0, 0, 0}, K: 1}

	// A canned matrix stands in for a remote metric: the stat must reflect
	// the provider's distances, not recomputed planar ones.
	static := distance.NewStaticProvider()
	static.Put(&domain.Matrix{Distances: [][]float64{
		{0, 10, 50},
		{10, 0, 10},
		{50, 10, 0},
	}})

	stats, err := ClusterStats(context.Background(), points, p, static)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats[0].MSTWeight != 20 {
		t.Fatalf("spanning tree weight under the canned metric: got %v, want 20", stats[0].MSTWeight)
	}
}
