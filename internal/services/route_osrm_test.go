package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

func tripStub(t *testing.T, waypointOrder []int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		waypoints := make([]map[string]int, len(waypointOrder))
		for inputIdx, visitPos := range waypointOrder {
			waypoints[inputIdx] = map[string]int{"waypoint_index": visitPos}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code":      "Ok",
			"waypoints": waypoints,
			"trips":     []map[string]any{{"distance": 1.0}},
		})
	}))
}

func TestOSRMTripSolverOrdersByWaypointIndex(t *testing.T) {
	// The service reports visit positions per input point: input point 0 is
	// visited third, point 1 first, point 2 second.
	srv := tripStub(t, []int{2, 0, 1})
	defer srv.Close()

	points := planarPoints([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	m := planarMatrix(t, points)
	solver := NewOSRMTripSolver(srv.URL)

	route, err := solver.Solve(context.Background(), points, m, ports.TourOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 0}
	for i := range want {
		if route.Order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, route.Order)
		}
	}
	// Totals come from the local matrix, not the backend's reported cost.
	if route.TotalDistance != m.Distances[1][2]+m.Distances[2][0] {
		t.Fatalf("totals must be recomputed from the matrix, got %v", route.TotalDistance)
	}
}

func TestOSRMTripSolverRotatesToFixedStart(t *testing.T) {
	srv := tripStub(t, []int{1, 0, 2})
	defer srv.Close()

	points := planarPoints([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	m := planarMatrix(t, points)
	solver := NewOSRMTripSolver(srv.URL)

	start := 2
	route, err := solver.Solve(context.Background(), points, m, ports.TourOptions{Start: &start, Closed: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Order[0] != start {
		t.Fatalf("route must start at %d, got %v", start, route.Order)
	}
	if err := validatePermutation(route.Order, len(points)); err != nil {
		t.Fatalf("order invalid: %v", err)
	}
}

func TestOSRMTripSolverServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": "NoTrips", "message": "no trip found"})
	}))
	defer srv.Close()

	points := planarPoints([2]float64{0, 0}, [2]float64{1, 0})
	m := planarMatrix(t, points)
	solver := NewOSRMTripSolver(srv.URL)

	_, err := solver.Solve(context.Background(), points, m, ports.TourOptions{})
	var serr *domain.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestOSRMTripSolverPointLimit(t *testing.T) {
	points := make([]domain.Point, 4)
	for i := range points {
		points[i] = domain.Point{ID: "p", Coords: domain.Coordinates{Lon: float64(i)}}
	}
	m := planarMatrix(t, points)
	solver := NewOSRMTripSolver("http://unused.invalid")
	solver.MaxTripSize = 3

	_, err := solver.Solve(context.Background(), points, m, ports.TourOptions{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error over the trip limit, got %v", err)
	}
}
