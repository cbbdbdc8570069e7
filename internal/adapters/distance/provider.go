package distance

import (
	"github.com/geosensing/allocator/internal/domain"
	"github.com/geosensing/allocator/internal/ports"
)

// Config carries the external-service settings a remote metric may need.
type Config struct {
	OSRMBaseURL  string
	OSRMTableMax int
	GoogleAPIKey string
	Cache        ports.MatrixCache
}

// ForMetric is the single entry point for building a provider. The caller
// selects a metric by value; unknown metrics and a missing Google key are
// validation failures surfaced before any computation.
func ForMetric(metric ports.Metric, cfg Config) (ports.MatrixProvider, error) {
	switch metric {
	case ports.MetricPlanar:
		return NewPlanarProvider(), nil
	case ports.MetricGreatCircle:
		return NewGreatCircleProvider(), nil
	case ports.MetricOSRM:
		opts := []OSRMOption{}
		if cfg.OSRMTableMax > 0 {
			opts = append(opts, WithOSRMTableSize(cfg.OSRMTableMax))
		}
		if cfg.Cache != nil {
			opts = append(opts, WithOSRMCache(cfg.Cache))
		}
		return NewOSRMProvider(cfg.OSRMBaseURL, opts...), nil
	case ports.MetricGoogle:
		opts := []GoogleOption{}
		if cfg.Cache != nil {
			opts = append(opts, WithGoogleCache(cfg.Cache))
		}
		return NewGoogleProvider(cfg.GoogleAPIKey, opts...)
	default:
		return nil, &domain.ValidationError{Field: "metric", Reason: "unknown metric " + string(metric)}
	}
}
