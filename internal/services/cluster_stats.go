package services

import (
	"context"
	"fmt"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// ClusterStats computes the observational balance measures for a partition:
// each cluster's size and the weight of a minimum spanning tree over its
// members under the given metric. The engine reports these numbers and
// never acts on them; whether a partition is balanced enough is the
// caller's judgement.
func ClusterStats(ctx context.Context, points []domain.Point, p *domain.Partition, provider ports.MatrixProvider) ([]domain.ClusterStat, error) {
	stats := make([]domain.ClusterStat, 0, p.K)

	for _, cluster := range p.Clusters() {
		stat := domain.ClusterStat{ClusterID: cluster.ID, Size: len(cluster.Members)}
		if len(cluster.Members) >= 2 {
			members := make([]domain.Point, len(cluster.Members))
			for i, idx := range cluster.Members {
				members[i] = points[idx]
			}
			m, err := provider.Matrix(ctx, members, members)
			if err != nil {
				return nil, fmt.Errorf("cluster stats: matrix for cluster %d: %w", cluster.ID, err)
			}
			weight, _, err := minimumSpanningTree(m.Distances)
			if err != nil {
				return nil, fmt.Errorf("cluster stats: mst for cluster %d: %w", cluster.ID, err)
			}
			stat.MSTWeight = weight
		}
		stats = append(stats, stat)
	}

	return stats, nil
}
