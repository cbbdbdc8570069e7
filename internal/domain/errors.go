package domain

import "fmt"

// ValidationError reports bad input detected before any computation:
// missing columns, malformed coordinates, an invalid cluster count.
// It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ServiceError reports a failed call to an external routing, mapping, or
// partitioning service after retries (when the failure was transient) or
// immediately (auth, quota, malformed response).
type ServiceError struct {
	Service   string
	Permanent bool
	Err       error
}

func (e *ServiceError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Service, kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// SolverError reports that a route or partition backend failed to produce a
// usable result within its constraints.
type SolverError struct {
	Stage string
	Size  int
	Err   error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("%s: solver failed on %d points: %v", e.Stage, e.Size, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// CapacityError reports that the assignment stage could not place a point
// under the current worker capacities. PointID identifies the unassignable
// point; partial results preceding it carry no success contract.
type CapacityError struct {
	PointID    string
	PointIndex int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("assign: no worker has remaining capacity for point %q (index %d)", e.PointID, e.PointIndex)
}
