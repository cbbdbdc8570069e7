package services

import (
	"context"
	"fmt"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/obs"
	"github.com/geosensing/allocator/internal/ports"
)

// ApproxSolver constructs a tour from a minimum spanning tree: double the
// MST's edges (or add a greedy matching on its odd-degree vertices),
// extract an Eulerian circuit, and shortcut repeated visits down to a
// Hamiltonian tour. For metric distances the doubled-MST tour is at most
// twice optimal; the matching variant follows the Christofides pipeline.
// The constructed tour is then refined by bounded-time 2-opt sweeps.
type ApproxSolver struct {
	// Matching switches odd-vertex matching on instead of edge doubling.
	Matching bool
	// Refine enables the 2-opt post-pass; the pass runs until no
	// improvement remains or the call's TimeLimit expires.
	Refine bool
}

func (s *ApproxSolver) Solve(ctx context.Context, points []domain.Point, m *domain.Matrix, opts ports.TourOptions) (r *domain.Route, err error) {
	defer obs.Time(ctx, "route.approx")(&err)

	n := len(points)
	if err := checkSolveInput(points, m, opts); err != nil {
		return nil, err
	}
	if n == 1 {
		return finishRoute([]int{0}, m, opts.Closed)
	}

	start := 0
	if opts.Start != nil {
		start = *opts.Start
	}

	dist := m.Distances
	_, adj, err := minimumSpanningTree(dist)
	if err != nil {
		return nil, &domain.SolverError{Stage: "route", Size: n, Err: err}
	}

	if s.Matching {
		greedyMatch(oddVertices(adj), dist, adj)
	} else {
		doubleEdges(adj)
	}

	euler := eulerianCircuit(adj, start)
	order := shortcutToHamiltonian(euler, n)
	order = rotateToStart(order, start)

	if s.Refine && n >= 4 {
		var deadline time.Time
		if opts.TimeLimit > 0 {
			deadline = time.Now().Add(opts.TimeLimit)
		}
		order = twoOptImprove(dist, order, deadline)
	}

	return finishRoute(order, m, opts.Closed)
}

// checkSolveInput validates the shared solver preconditions.
func checkSolveInput(points []domain.Point, m *domain.Matrix, opts ports.TourOptions) error {
	n := len(points)
	if n == 0 {
		return &domain.ValidationError{Field: "points", Reason: "no points to route"}
	}
	if !m.IsSquare() || m.Rows() != n {
		return &domain.ValidationError{Field: "matrix",
			Reason: fmt.Sprintf("need a %dx%d matrix, got %dx%d", n, n, m.Rows(), m.Cols())}
	}
	if opts.Start != nil && (*opts.Start < 0 || *opts.Start >= n) {
		return &domain.ValidationError{Field: "start",
			Reason: fmt.Sprintf("start index %d out of range [0, %d)", *opts.Start, n)}
	}
	return nil
}
