package distance

import (
	"context"
	"math"

	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// earthRadiusMeters is the IUGG mean Earth radius.
const earthRadiusMeters = 6371008.8

// GreatCircleProvider computes spherical (haversine) distance in meters.
// Deterministic pure function; symmetric by construction.
type GreatCircleProvider struct{}

func NewGreatCircleProvider() *GreatCircleProvider { return &GreatCircleProvider{} }

func (p *GreatCircleProvider) Metric() ports.Metric { return ports.MetricGreatCircle }

func (p *GreatCircleProvider) Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error) {
	m := domain.NewMatrix(len(from), len(to), false)
	for i, a := range from {
		for j, b := range to {
			m.Distances[i][j] = haversine(a.Coords, b.Coords)
		}
	}
	return m, nil
}

func haversine(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
