package distance

import (
	"context"
	"fmt"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// StaticProvider serves pre-built matrices keyed by point-set size; used by
// tests and callers that already hold a matrix.
type StaticProvider struct {
	m map[[2]int]*domain.Matrix
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{m: make(map[[2]int]*domain.Matrix)}
}

// Put registers the matrix served for a rows×cols request.
func (s *StaticProvider) Put(m *domain.Matrix) { s.m[[2]int{m.Rows(), m.Cols()}] = m }

func (s *StaticProvider) Metric() ports.Metric { return ports.MetricPlanar }

func (s *StaticProvider) Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error) {
	m, ok := s.m[[2]int{len(from), len(to)}]
	if !ok {
		return nil, fmt.Errorf("static provider: no matrix registered for %dx%d", len(from), len(to))
	}
	return m, nil
}
