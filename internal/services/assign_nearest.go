package services

import (
	"fmt"
	"sort"

	"github.com/geosensing/allocator/internal/domain"
)

// AssignNearest matches points to capacity-bounded workers by nearest
// distance. m is the points×workers matrix.
//
// Points are processed in their original input order and each takes the
// nearest worker with remaining capacity; ties resolve to the worker with
// the lower input index. This is a deliberate first-come-first-served
// greedy policy, not a globally optimal bipartite matching — later points
// see only the capacity earlier points left behind. Every assignment
// records its realized rank: the 1-based position of the chosen worker in
// that point's own distance-sorted worker list.
func AssignNearest(points []domain.Point, workers []domain.Worker, m *domain.Matrix) ([]domain.Assignment, error) {
	if len(workers) == 0 {
		return nil, &domain.ValidationError{Field: "workers", Reason: "worker list must not be empty"}
	}
	if m.Rows() != len(points) || m.Cols() != len(workers) {
		return nil, &domain.ValidationError{Field: "matrix",
			Reason: fmt.Sprintf("need a %dx%d matrix, got %dx%d", len(points), len(workers), m.Rows(), m.Cols())}
	}

	remaining := make([]int, len(workers))
	for w, worker := range workers {
		if worker.Capacity < 0 {
			return nil, &domain.ValidationError{Field: "capacity",
				Reason: fmt.Sprintf("worker %q has negative capacity %d", worker.ID, worker.Capacity)}
		}
		// Capacity 0 means unbounded: no point set can exhaust it.
		remaining[w] = worker.Capacity
		if worker.Capacity == 0 {
			remaining[w] = len(points)
		}
	}

	assignments := make([]domain.Assignment, 0, len(points))
	order := make([]int, len(workers))

	for i := range points {
		for w := range order {
			order[w] = w
		}
		row := m.Distances[i]
		sort.SliceStable(order, func(a, b int) bool {
			return row[order[a]] < row[order[b]]
		})

		assigned := false
		for rank, w := range order {
			if remaining[w] == 0 {
				continue
			}
			remaining[w]--
			assignments = append(assignments, domain.Assignment{
				PointIndex:  i,
				WorkerIndex: w,
				Distance:    row[w],
				Rank:        rank + 1,
			})
			assigned = true
			break
		}
		if !assigned {
			return nil, &domain.CapacityError{PointID: points[i].ID, PointIndex: i}
		}
	}

	return assignments, nil
}
