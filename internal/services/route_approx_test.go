package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/geosensing/allocator/internal/adapters/distance"
	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

func planarMatrix(t *testing.T, points []domain.Point) *domain.Matrix {
	t.Helper()
	m, err := distance.NewPlanarProvider().Matrix(context.Background(), points, points)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	return m
}

func TestApproxSolverUnitSquarePerimeter(t *testing.T) {
	points := planarPoints(
		[2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 1},
	)
	m := planarMatrix(t, points)
	solver := &ApproxSolver{Refine: true}

	route, err := solver.Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(route.TotalDistance-4.0) > 1e-9 {
		t.Fatalf("closed tour of the unit square must have length 4, got %v", route.TotalDistance)
	}
	if err := validatePermutation(route.Order, len(points)); err != nil {
		t.Fatalf("order is not a permutation: %v", err)
	}
	if !route.Closed {
		t.Fatalf("route must report the closed flag")
	}
}

func TestApproxSolverFixedStart(t *testing.T) {
	points := planarPoints(
		[2]float64{0, 0}, [2]float64{3, 0}, [2]float64{3, 2}, [2]float64{0, 2}, [2]float64{1, 1},
	)
	m := planarMatrix(t, points)
	solver := &ApproxSolver{Refine: true}

	start := 2
	route, err := solver.Solve(context.Background(), points, m, ports.TourOptions{Start: &start, Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Order[0] != start {
		t.Fatalf("route must begin at index %d, got %v", start, route.Order)
	}
	if err := validatePermutation(route.Order, len(points)); err != nil {
		t.Fatalf("order is not a permutation: %v", err)
	}
}

func TestApproxSolverWithinTwiceSpanningTreeWeight(t *testing.T) {
	points := planarPoints(
		[2]float64{0, 0}, [2]float64{2, 1}, [2]float64{5, 0}, [2]float64{4, 4},
		[2]float64{1, 3}, [2]float64{6, 2}, [2]float64{3, 5}, [2]float64{0, 5},
	)
	m := planarMatrix(t, points)

	mstWeight, _, err := minimumSpanningTree(m.Distances)
	if err != nil {
		t.Fatalf("mst: %v", err)
	}

	route, err := (&ApproxSolver{}).Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Shortcutting a doubled spanning tree never exceeds twice its weight
	// under a metric distance.
	if route.TotalDistance > 2*mstWeight+1e-9 {
		t.Fatalf("tour %v exceeds twice the spanning tree weight %v", route.TotalDistance, mstWeight)
	}

	matched, err := (&ApproxSolver{Matching: true}).Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validatePermutation(matched.Order, len(points)); err != nil {
		t.Fatalf("matching variant order invalid: %v", err)
	}
}

func TestApproxSolverRefinementNeverWorsens(t *testing.T) {
	points := planarPoints(
		[2]float64{0, 0}, [2]float64{4, 1}, [2]float64{2, 3}, [2]float64{5, 4},
		[2]float64{1, 5}, [2]float64{3, 0}, [2]float64{0, 4},
	)
	m := planarMatrix(t, points)

	plain, err := (&ApproxSolver{}).Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refined, err := (&ApproxSolver{Refine: true}).Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refined.TotalDistance > plain.TotalDistance+1e-9 {
		t.Fatalf("refinement worsened the tour: %v > %v", refined.TotalDistance, plain.TotalDistance)
	}
}

func TestApproxSolverSinglePoint(t *testing.T) {
	points := planarPoints([2]float64{3, 3})
	m := planarMatrix(t, points)

	route, err := (&ApproxSolver{}).Solve(context.Background(), points, m, ports.TourOptions{Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Order) != 1 || route.Order[0] != 0 || route.TotalDistance != 0 {
		t.Fatalf("unexpected single-point route: %+v", route)
	}
}

func TestApproxSolverRejectsBadInput(t *testing.T) {
	points := planarPoints([2]float64{0, 0}, [2]float64{1, 0})
	m := planarMatrix(t, points)
	solver := &ApproxSolver{}

	if _, err := solver.Solve(context.Background(), nil, m, ports.TourOptions{}); err == nil {
		t.Fatalf("empty point set must fail")
	}

	badStart := 5
	var verr *domain.ValidationError
	_, err := solver.Solve(context.Background(), points, m, ports.TourOptions{Start: &badStart})
	if !errors.As(err, &verr) {
		t.Fatalf("out-of-range start must be a validation error, got %v", err)
	}

	wrong := domain.NewMatrix(3, 3, false)
	if _, err := solver.Solve(context.Background(), points, wrong, ports.TourOptions{}); err == nil {
		t.Fatalf("matrix size mismatch must fail")
	}
}
