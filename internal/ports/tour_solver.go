package ports

import (
	"context"
	"time"

	"github.com/geosensing/allocator/internal/domain"
)

// TourOptions tunes a single solve call.
type TourOptions struct {
	// Start, when non-nil, fixes the first point of the route. Absent a
	// fixed start the solver chooses freely.
	Start *int
	// TimeLimit bounds refinement passes; zero means the solver's default.
	TimeLimit time.Duration
	// Closed requests a tour that returns to its starting point.
	Closed bool
}

// TourSolver orders a point set into a visiting sequence minimizing total
// distance. The returned route is always a permutation of the input indices
// with its total recomputed from m, whatever the backend reported.
type TourSolver interface {
	Solve(ctx context.Context, points []domain.Point, m *domain.Matrix, opts TourOptions) (*domain.Route, error)
}
