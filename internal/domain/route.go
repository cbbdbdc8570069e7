package domain

// Route is an ordered visiting sequence over a point set. Order is always a
// permutation of the input indices. TotalDistance is recomputed from the
// distance matrix that produced it, never trusted from a backend. When the
// matrix carries durations, TotalDuration holds the matching sum in seconds.
type Route struct {
	Order         []int
	TotalDistance float64
	TotalDuration float64
	// Closed routes include the return leg from the last point to the first
	// in the totals.
	Closed bool
}

// Legs returns the consecutive index pairs the totals are summed over,
// including the closing leg for closed routes.
func (r *Route) Legs() [][2]int {
	n := len(r.Order)
	if n < 2 {
		return nil
	}
	legs := make([][2]int, 0, n)
	for i := 0; i+1 < n; i++ {
		legs = append(legs, [2]int{r.Order[i], r.Order[i+1]})
	}
	if r.Closed {
		legs = append(legs, [2]int{r.Order[n-1], r.Order[0]})
	}
	return legs
}
