package distance

import (
	"context"
	"math"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// PlanarProvider computes Euclidean distance on raw coordinate pairs.
// It treats longitude/latitude as plane coordinates: fast and deterministic,
// approximate for geographic data. Distances are in coordinate units.
type PlanarProvider struct{}

func NewPlanarProvider() *PlanarProvider { return &PlanarProvider{} }

func (p *PlanarProvider) Metric() ports.Metric { return ports.MetricPlanar }

func (p *PlanarProvider) Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error) {
	m := domain.NewMatrix(len(from), len(to), false)
	for i, a := range from {
		for j, b := range to {
			dx := a.Coords.Lon - b.Coords.Lon
			dy := a.Coords.Lat - b.Coords.Lat
			m.Distances[i][j] = math.Hypot(dx, dy)
		}
	}
	return m, nil
}
