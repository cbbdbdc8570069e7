package ports

import (
	"context"

	"github.com/geosensing/allocator/internal/domain"
)

// Metric selects a distance computation backend.
type Metric string

const (
	// MetricPlanar is Euclidean distance on raw coordinate pairs. Fast,
	// approximate for geographic data, pure.
	MetricPlanar Metric = "planar"
	// MetricGreatCircle is spherical (haversine) distance in meters.
	MetricGreatCircle Metric = "greatcircle"
	// MetricOSRM delegates to an OSRM table service (road distance).
	MetricOSRM Metric = "osrm"
	// MetricGoogle delegates to the Google Distance Matrix API.
	MetricGoogle Metric = "google"
)

// Valid reports whether m names a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricPlanar, MetricGreatCircle, MetricOSRM, MetricGoogle:
		return true
	}
	return false
}

// Remote reports whether the metric calls an external service.
func (m Metric) Remote() bool { return m == MetricOSRM || m == MetricGoogle }

// MatrixProvider computes pairwise distances between two point sets.
// A square matrix is requested by passing the same slice for from and to.
// Every returned matrix is fully populated: providers must fail the whole
// call rather than leave cells unresolved.
type MatrixProvider interface {
	Matrix(ctx context.Context, from, to []domain.Point) (*domain.Matrix, error)
	Metric() Metric
}
