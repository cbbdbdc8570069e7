package domain

// Assignment matches one point to one worker.
//
// Rank is the 1-based position of the chosen worker within the point's own
// distance-sorted worker list; rank 1 means the nearest feasible worker was
// still available when the point was processed.
type Assignment struct {
	PointIndex  int
	WorkerIndex int
	Distance    float64
	Rank        int
}
