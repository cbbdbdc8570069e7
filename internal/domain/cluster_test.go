package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionClusters(t *testing.T) {
	p := &Partition{
		Labels:    []int{0, 1, 0, 2, 1},
		K:         3,
		Centroids: []Coordinates{{Lon: 1}, {Lon: 2}, {Lon: 3}},
	}

	clusters := p.Clusters()
	require.Len(t, clusters, 3)

	assert.Equal(t, []int{0, 2}, clusters[0].Members)
	assert.Equal(t, []int{1, 4}, clusters[1].Members)
	assert.Equal(t, []int{3}, clusters[2].Members)

	seen := make(map[int]bool)
	for _, c := range clusters {
		for _, idx := range c.Members {
			assert.False(t, seen[idx], "point %d appears in two clusters", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, len(p.Labels))

	require.NotNil(t, clusters[1].Centroid)
	assert.Equal(t, 2.0, clusters[1].Centroid.Lon)
}

func TestPartitionClustersWithoutCentroids(t *testing.T) {
	p := &Partition{Labels: []int{0, 1}, K: 2}
	for _, c := range p.Clusters() {
		assert.Nil(t, c.Centroid)
	}
}

func TestPartitionEmptyClusterKept(t *testing.T) {
	// A cluster that received no members still appears, so downstream
	// consumers can see the imbalance.
	p := &Partition{Labels: []int{0, 0}, K: 2}
	clusters := p.Clusters()
	require.Len(t, clusters, 2)
	assert.Empty(t, clusters[1].Members)
}
