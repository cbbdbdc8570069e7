package ports

import (
	"context"

	"github.com/geosensing/allocator/internal/domain"
)

// Partitioner splits a point set into k groups. Implementations share one
// output contract so callers are agnostic to whether the partition came from
// the internal iterative path or a delegated partitioning service; origin is
// visible only through Partition.Method and latency.
//
// seed makes randomized backends reproducible: identical inputs and seed
// must produce bit-identical output.
type Partitioner interface {
	Partition(ctx context.Context, points []domain.Point, k int, seed int64) (*domain.Partition, error)
}
