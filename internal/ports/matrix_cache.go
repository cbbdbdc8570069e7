package ports

import "context"

// CellResult is one resolved origin→destination cell from a remote matrix
// service: distance in meters and travel time in seconds.
type CellResult struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// MatrixCache persists resolved cells for the remote metrics so repeated
// invocations over the same points avoid re-querying the service. Keys are
// normalized coordinate strings produced by the caller. The engine itself
// stays stateless; the cache is external persistence opted into by the
// caller.
type MatrixCache interface {
	// GetMany returns the cached cells for one origin and many destinations,
	// keyed by destination. Missing destinations are simply absent.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]CellResult, error)
	// PutMany stores resolved cells for one origin.
	PutMany(ctx context.Context, origin string, cells map[string]CellResult) error
}
