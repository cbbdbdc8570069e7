package services

import (
	"fmt"

	"github.com/geosensing/allocator/internal/domain"
)

// validatePermutation checks that order visits every index in [0, n)
// exactly once.
func validatePermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("route has %d points, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n {
			return fmt.Errorf("route index %d out of range [0, %d)", v, n)
		}
		if seen[v] {
			return fmt.Errorf("route visits index %d twice", v)
		}
		seen[v] = true
	}
	return nil
}

// rotateToStart rotates the cyclic order so it begins at start.
func rotateToStart(order []int, start int) []int {
	pos := 0
	for i, v := range order {
		if v == start {
			pos = i
			break
		}
	}
	if pos == 0 {
		return order
	}
	rotated := make([]int, 0, len(order))
	rotated = append(rotated, order[pos:]...)
	rotated = append(rotated, order[:pos]...)
	return rotated
}

// finishRoute recomputes the totals from the matrix — backend-reported costs
// are never trusted — and validates the permutation invariant.
func finishRoute(order []int, m *domain.Matrix, closed bool) (*domain.Route, error) {
	if err := validatePermutation(order, m.Rows()); err != nil {
		return nil, &domain.SolverError{Stage: "route", Size: m.Rows(), Err: err}
	}

	r := &domain.Route{Order: order, Closed: closed}
	for _, leg := range r.Legs() {
		r.TotalDistance += m.Distances[leg[0]][leg[1]]
		if m.Durations != nil {
			r.TotalDuration += m.Durations[leg[0]][leg[1]]
		}
	}
	return r, nil
}
