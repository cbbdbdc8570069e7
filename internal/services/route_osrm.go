package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/platform/obs"
	"github.com/geosensing/allocator/internal/ports"
)

// DefaultMaxTripSize is how many waypoints a single trip request may carry;
// the public OSRM server rejects larger inputs.
const DefaultMaxTripSize = 100

// OSRMTripSolver requests a real-road tour from the OSRM trip service.
// The service solves the ordering on its side; only the visiting order is
// taken from the response, while totals are recomputed from the matrix like
// every other backend.
type OSRMTripSolver struct {
	Client  *http.Client
	BaseURL string
	Profile string
	// MaxTripSize caps the input size; 0 means DefaultMaxTripSize.
	MaxTripSize int
}

func NewOSRMTripSolver(baseURL string) *OSRMTripSolver {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://router.project-osrm.org"
	}
	return &OSRMTripSolver{
		Client:  &http.Client{Timeout: 60 * time.Second},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Profile: "driving",
	}
}

type osrmTripResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		WaypointIndex int `json:"waypoint_index"`
	} `json:"waypoints"`
}

func (s *OSRMTripSolver) Solve(ctx context.Context, points []domain.Point, m *domain.Matrix, opts ports.TourOptions) (r *domain.Route, err error) {
	defer obs.Time(ctx, "route.osrm_trip")(&err)

	n := len(points)
	if err := checkSolveInput(points, m, opts); err != nil {
		return nil, err
	}
	maxSize := s.MaxTripSize
	if maxSize <= 0 {
		maxSize = DefaultMaxTripSize
	}
	if n > maxSize {
		return nil, &domain.ValidationError{Field: "points",
			Reason: fmt.Sprintf("trip service accepts at most %d points, got %d", maxSize, n)}
	}
	if n == 1 {
		return finishRoute([]int{0}, m, opts.Closed)
	}

	coords := make([]string, n)
	for i, p := range points {
		coords[i] = strconv.FormatFloat(p.Coords.Lon, 'f', 6, 64) + "," +
			strconv.FormatFloat(p.Coords.Lat, 'f', 6, 64)
	}

	roundtrip := "true"
	if !opts.Closed {
		roundtrip = "false"
	}

	// The trip endpoint can only pin the first listed coordinate, so a fixed
	// start is applied by rotating the returned tour instead of via source=.
	url := fmt.Sprintf("%s/trip/v1/%s/%s?source=any&roundtrip=%s&steps=false&geometries=polyline",
		s.BaseURL, s.profileOrDefault(), strings.Join(coords, ";"), roundtrip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("route osrm trip: create request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &domain.ServiceError{Service: "osrm", Permanent: false, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &domain.ServiceError{Service: "osrm",
			Permanent: resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests,
			Err:       fmt.Errorf("trip request status %d", resp.StatusCode)}
	}

	var tr osrmTripResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &domain.ServiceError{Service: "osrm", Permanent: true, Err: fmt.Errorf("decode trip response: %w", err)}
	}
	if tr.Code != "Ok" {
		return nil, &domain.ServiceError{Service: "osrm", Permanent: true,
			Err: fmt.Errorf("trip response code %q: %s", tr.Code, tr.Message)}
	}
	if len(tr.Waypoints) != n {
		return nil, &domain.ServiceError{Service: "osrm", Permanent: true,
			Err: fmt.Errorf("trip returned %d waypoints, want %d", len(tr.Waypoints), n)}
	}

	// waypoint_index is the position of each input point within the trip.
	order := make([]int, n)
	for inputIdx, wp := range tr.Waypoints {
		if wp.WaypointIndex < 0 || wp.WaypointIndex >= n {
			return nil, &domain.ServiceError{Service: "osrm", Permanent: true,
				Err: fmt.Errorf("waypoint index %d out of range", wp.WaypointIndex)}
		}
		order[wp.WaypointIndex] = inputIdx
	}

	if opts.Start != nil {
		order = rotateToStart(order, *opts.Start)
	}

	return finishRoute(order, m, opts.Closed)
}

func (s *OSRMTripSolver) profileOrDefault() string {
	if s.Profile == "" {
		return "driving"
	}
	return s.Profile
}
