package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

const googleBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Service limits per request: at most 25 origins, 25 destinations, and 100
// elements (origins × destinations).
const (
	googleMaxSide     = 25
	googleMaxElements = 100
)

// GoogleProvider computes road distance and duration matrices through the
// Google Distance Matrix API. Requests are split to honor the per-request
// element limits and issued through a bounded-concurrency pool.
type GoogleProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	cache   ports.MatrixCache
}

type GoogleOption func(*GoogleProvider)

// WithGoogleCache attaches a persistent cell cache.
func WithGoogleCache(c ports.MatrixCache) GoogleOption {
	return func(g *GoogleProvider) { g.cache = c }
}

// WithGoogleBaseURL redirects requests, e.g. at an API proxy.
func WithGoogleBaseURL(u string) GoogleOption {
	return func(g *GoogleProvider) { g.baseURL = strings.TrimRight(u, "/") }
}

// NewGoogleProvider fails before any computation when the API key is
// missing.
func NewGoogleProvider(apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ValidationError{Field: "api_key", Reason: "google metric requires an API key"}
	}
	g := &GoogleProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: googleBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GoogleProvider) Metric() ports.Metric { return ports.MetricGoogle }

type googleElement struct {
	Status   string `json:"status"`
	Distance struct {
		Value float64 `json:"value"`
	} `json:"distance"`
	Duration struct {
		Value float64 `json:"value"`
	} `json:"duration"`
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []googleElement `json:"elements"`
	} `json:"rows"`
}

func (g *GoogleProvider) Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error) {
	m := domain.NewMatrix(len(from), len(to), true)
	if len(from) == 0 || len(to) == 0 {
		return m, nil
	}

	fromKeys := coordKeys(from)
	toKeys := coordKeys(to)

	pending := make([]int, 0, len(from))
	for i := range from {
		if !g.fillRowFromCache(ctx, m, i, fromKeys[i], toKeys) {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		if err := g.fetchRows(ctx, m, from, to, pending); err != nil {
			return nil, err
		}
		g.storeRows(ctx, m, pending, fromKeys, toKeys)
	}

	if err := checkResult(m, fromKeys, toKeys); err != nil {
		return nil, &domain.ServiceError{Service: "google", Permanent: true, Err: err}
	}
	return m, nil
}

func (g *GoogleProvider) fillRowFromCache(ctx context.Context, m *domain.Matrix, i int, origin string, toKeys []string) bool {
	if g.cache == nil {
		return false
	}
	hits, err := g.cache.GetMany(ctx, origin, toKeys)
	if err != nil {
		slog.Warn("google: matrix cache read failed", "origin", origin, "err", err)
		return false
	}
	if len(hits) < len(toKeys) {
		return false
	}
	for j, key := range toKeys {
		cell, ok := hits[key]
		if !ok {
			return false
		}
		m.Distances[i][j] = cell.DistanceMeters
		m.Durations[i][j] = cell.DurationSeconds
	}
	return true
}

func (g *GoogleProvider) storeRows(ctx context.Context, m *domain.Matrix, rows []int, fromKeys, toKeys []string) {
	if g.cache == nil {
		return
	}
	for _, i := range rows {
		cells := make(map[string]ports.CellResult, len(toKeys))
		for j, key := range toKeys {
			cells[key] = ports.CellResult{
				DistanceMeters:  m.Distances[i][j],
				DurationSeconds: m.Durations[i][j],
			}
		}
		if err := g.cache.PutMany(ctx, fromKeys[i], cells); err != nil {
			slog.Warn("google: matrix cache write failed", "origin", fromKeys[i], "err", err)
		}
	}
}

func (g *GoogleProvider) fetchRows(ctx context.Context, m *domain.Matrix, from, to []domain.Point, rows []int) error {
	side := googleMaxSide
	if side*side > googleMaxElements {
		side = 10
	}
	chunks := splitTable(rows, len(to), side*2)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxInFlight)
	errCh := make(chan error, len(chunks))
	var wg sync.WaitGroup

	for _, chunk := range chunks {
		wg.Add(1)
		go func(c tableChunk) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			if err := g.fetchChunk(ctx, m, from, to, c); err != nil {
				errCh <- err
				cancel()
			}
		}(chunk)
	}

	wg.Wait()
	close(errCh)

	return <-errCh
}

func (g *GoogleProvider) fetchChunk(ctx context.Context, m *domain.Matrix, from, to []domain.Point, c tableChunk) error {
	// Google expects "lat,lng" pairs separated by "|".
	origins := make([]string, len(c.srcRows))
	for i, r := range c.srcRows {
		origins[i] = latLng(from[r].Coords)
	}
	destinations := make([]string, len(c.dstCols))
	for j, d := range c.dstCols {
		destinations[j] = latLng(to[d].Coords)
	}

	q := url.Values{}
	q.Set("origins", strings.Join(origins, "|"))
	q.Set("destinations", strings.Join(destinations, "|"))
	q.Set("mode", "driving")
	q.Set("units", "metric")
	q.Set("key", g.apiKey)
	reqURL := g.baseURL + "?" + q.Encode()

	resp, err := doWithRetry(ctx, g.client, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return &domain.ServiceError{Service: "google", Permanent: isPermanent(err), Err: err}
	}
	defer resp.Body.Close()

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return &domain.ServiceError{Service: "google", Permanent: true, Err: fmt.Errorf("decode response: %w", err)}
	}

	switch gr.Status {
	case "OK":
	case "OVER_QUERY_LIMIT":
		return &domain.ServiceError{Service: "google", Permanent: false,
			Err: fmt.Errorf("status %s: %s", gr.Status, gr.ErrorMessage)}
	default:
		// REQUEST_DENIED, INVALID_REQUEST, OVER_DAILY_LIMIT and friends.
		return &domain.ServiceError{Service: "google", Permanent: true,
			Err: fmt.Errorf("status %s: %s", gr.Status, gr.ErrorMessage)}
	}

	if len(gr.Rows) != len(c.srcRows) {
		return &domain.ServiceError{Service: "google", Permanent: true,
			Err: fmt.Errorf("expected %d rows, got %d", len(c.srcRows), len(gr.Rows))}
	}

	for ri, i := range c.srcRows {
		row := gr.Rows[ri].Elements
		if len(row) != len(c.dstCols) {
			return &domain.ServiceError{Service: "google", Permanent: true,
				Err: fmt.Errorf("row %d has %d elements, want %d", ri, len(row), len(c.dstCols))}
		}
		for cj, j := range c.dstCols {
			el := row[cj]
			if el.Status != "OK" {
				return &domain.ServiceError{Service: "google", Permanent: true,
					Err: fmt.Errorf("unresolved cell %q -> %q: %s", from[i].ID, to[j].ID, el.Status)}
			}
			m.Distances[i][j] = el.Distance.Value
			m.Durations[i][j] = el.Duration.Value
		}
	}
	return nil
}

func latLng(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}
