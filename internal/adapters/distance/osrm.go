package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// DefaultOSRMBaseURL is the public demo server. Production deployments
// should point at their own instance.
const DefaultOSRMBaseURL = "http://router.project-osrm.org"

// defaultMaxTableSize is the table-size limit the public OSRM server
// imposes on a single request.
const defaultMaxTableSize = 100

// maxInFlight bounds concurrent requests against the service.
const maxInFlight = 5

// OSRMProvider computes road distance and duration matrices through the
// OSRM table endpoint. Requests larger than the service's table limit are
// split into sub-matrices and fetched through a bounded-concurrency pool;
// the first unrecoverable failure cancels outstanding requests. An optional
// MatrixCache persists resolved rows across invocations.
type OSRMProvider struct {
	client       *http.Client
	baseURL      string
	profile      string
	maxTableSize int
	cache        ports.MatrixCache
}

type OSRMOption func(*OSRMProvider)

// WithOSRMTableSize overrides the per-request table-size limit.
func WithOSRMTableSize(n int) OSRMOption {
	return func(o *OSRMProvider) {
		if n > 1 {
			o.maxTableSize = n
		}
	}
}

// WithOSRMCache attaches a persistent cell cache.
func WithOSRMCache(c ports.MatrixCache) OSRMOption {
	return func(o *OSRMProvider) { o.cache = c }
}

func NewOSRMProvider(baseURL string, opts ...OSRMOption) *OSRMProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOSRMBaseURL
	}
	p := &OSRMProvider{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		profile:      "driving",
		maxTableSize: defaultMaxTableSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OSRMProvider) Metric() ports.Metric { return ports.MetricOSRM }

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
	Distances [][]*float64 `json:"distances"`
}

func (p *OSRMProvider) Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error) {
	m := domain.NewMatrix(len(from), len(to), true)
	if len(from) == 0 || len(to) == 0 {
		return m, nil
	}

	fromKeys := coordKeys(from)
	toKeys := coordKeys(to)

	// Origins whose full row resolves from the cache are not re-fetched.
	pending := make([]int, 0, len(from))
	for i := range from {
		if !p.fillRowFromCache(ctx, m, i, fromKeys[i], toKeys) {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		if err := p.fetchRows(ctx, m, from, to, pending); err != nil {
			return nil, err
		}
		p.storeRows(ctx, m, pending, fromKeys, toKeys)
	}

	if err := checkResult(m, fromKeys, toKeys); err != nil {
		return nil, &domain.ServiceError{Service: "osrm", Permanent: true, Err: err}
	}
	return m, nil
}

// fillRowFromCache reports whether every cell of row i was found cached.
func (p *OSRMProvider) fillRowFromCache(ctx context.Context, m *domain.Matrix, i int, origin string, toKeys []string) bool {
	if p.cache == nil {
		return false
	}
	hits, err := p.cache.GetMany(ctx, origin, toKeys)
	if err != nil {
		slog.Warn("osrm: matrix cache read failed", "origin", origin, "err", err)
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

func (p *OSRMProvider) storeRows(ctx context.Context, m *domain.Matrix, rows []int, fromKeys, toKeys []string) {
	if p.cache == nil {
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
		if err := p.cache.PutMany(ctx, fromKeys[i], cells); err != nil {
			slog.Warn("osrm: matrix cache write failed", "origin", fromKeys[i], "err", err)
		}
	}
}

type tableChunk struct {
	srcRows []int // indices into from
	dstCols []int // indices into to
}

// fetchRows retrieves all cells for the given origin rows, splitting the
// request into sub-tables no larger than the service limit. Chunks are
// disjoint regions of m, so workers write without shared locks.
func (p *OSRMProvider) fetchRows(ctx context.Context, m *domain.Matrix, from, to []domain.Point, rows []int) error {
	chunks := splitTable(rows, len(to), p.maxTableSize)

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

			if err := p.fetchChunk(ctx, m, from, to, c); err != nil {
				errCh <- err
				cancel()
			}
		}(chunk)
	}

	wg.Wait()
	close(errCh)

	return <-errCh
}

// splitTable cuts rows×cols into blocks where len(srcRows)+len(dstCols)
// never exceeds the coordinate-list limit of a single table request.
func splitTable(rows []int, cols, limit int) []tableChunk {
	side := limit / 2
	if side < 1 {
		side = 1
	}
	var chunks []tableChunk
	for rs := 0; rs < len(rows); rs += side {
		re := min(rs+side, len(rows))
		for cs := 0; cs < cols; cs += side {
			ce := min(cs+side, cols)
			dst := make([]int, 0, ce-cs)
			for c := cs; c < ce; c++ {
				dst = append(dst, c)
			}
			chunks = append(chunks, tableChunk{srcRows: rows[rs:re], dstCols: dst})
		}
	}
	return chunks
}

func (p *OSRMProvider) fetchChunk(ctx context.Context, m *domain.Matrix, from, to []domain.Point, c tableChunk) error {
	coords := make([]string, 0, len(c.srcRows)+len(c.dstCols))
	for _, i := range c.srcRows {
		coords = append(coords, formatCoord(from[i].Coords))
	}
	for _, j := range c.dstCols {
		coords = append(coords, formatCoord(to[j].Coords))
	}

	srcIdx := make([]string, len(c.srcRows))
	for i := range c.srcRows {
		srcIdx[i] = strconv.Itoa(i)
	}
	dstIdx := make([]string, len(c.dstCols))
	for j := range c.dstCols {
		dstIdx[j] = strconv.Itoa(len(c.srcRows) + j)
	}

	url := fmt.Sprintf("%s/table/v1/%s/%s?sources=%s&destinations=%s&annotations=duration,distance",
		p.baseURL, p.profile,
		strings.Join(coords, ";"),
		strings.Join(srcIdx, ";"),
		strings.Join(dstIdx, ";"),
	)

	resp, err := doWithRetry(ctx, p.client, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return &domain.ServiceError{Service: "osrm", Permanent: isPermanent(err), Err: err}
	}
	defer resp.Body.Close()

	var tr osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return &domain.ServiceError{Service: "osrm", Permanent: true, Err: fmt.Errorf("decode table response: %w", err)}
	}
	if tr.Code != "Ok" {
		return &domain.ServiceError{Service: "osrm", Permanent: true,
			Err: fmt.Errorf("table response code %q: %s", tr.Code, tr.Message)}
	}
	if len(tr.Distances) != len(c.srcRows) || len(tr.Durations) != len(c.srcRows) {
		return &domain.ServiceError{Service: "osrm", Permanent: true,
			Err: fmt.Errorf("expected %d rows, got distances=%d durations=%d", len(c.srcRows), len(tr.Distances), len(tr.Durations))}
	}

	for ri, i := range c.srcRows {
		if len(tr.Distances[ri]) != len(c.dstCols) || len(tr.Durations[ri]) != len(c.dstCols) {
			return &domain.ServiceError{Service: "osrm", Permanent: true,
				Err: fmt.Errorf("row %d length mismatch", ri)}
		}
		for cj, j := range c.dstCols {
			dist := tr.Distances[ri][cj]
			dur := tr.Durations[ri][cj]
			// Unresolved cells must fail the whole call, never zero-fill.
			if dist == nil || dur == nil {
				return &domain.ServiceError{Service: "osrm", Permanent: true,
					Err: fmt.Errorf("unresolved cell %q -> %q", from[i].ID, to[j].ID)}
			}
			m.Distances[i][j] = *dist
			m.Durations[i][j] = *dur
		}
	}
	return nil
}

func formatCoord(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func coordKeys(points []domain.Point) []string {
	keys := make([]string, len(points))
	for i, p := range points {
		keys[i] = formatCoord(p.Coords)
	}
	return keys
}

// selfRequest reports whether origins and destinations are the same point
// set, in the same order. Only then do diagonal cells mean self-distance.
func selfRequest(fromKeys, toKeys []string) bool {
	if len(fromKeys) != len(toKeys) {
		return false
	}
	for i := range fromKeys {
		if fromKeys[i] != toKeys[i] {
			return false
		}
	}
	return true
}

// checkResult validates a fetched matrix. Self-requests additionally get
// their diagonal pinned to exactly zero first; road metrics may otherwise
// report residual snapping noise. A square points×workers matrix is NOT a
// self-request and carries no diagonal constraint.
func checkResult(m *domain.Matrix, fromKeys, toKeys []string) error {
	if !selfRequest(fromKeys, toKeys) {
		return m.Validate()
	}
	for i := range fromKeys {
		m.Distances[i][i] = 0
		if m.Durations != nil {
			m.Durations[i][i] = 0
		}
	}
	return m.ValidateSelf()
}
