package services

import "time"

// twoOptImprove runs deterministic 2-opt sweeps over a cyclic tour until no
// sweep improves it or the deadline passes, returning the best tour found
// so far. Index 0 of the tour stays fixed, preserving a caller-imposed
// start. A zero deadline means no time bound.
func twoOptImprove(dist [][]float64, tour []int, deadline time.Time) []int {
	n := len(tour)
	if n < 4 {
		return tour
	}

	best := append([]int(nil), tour...)
	improved := true
	for improved {
		improved = false
		for i := 1; i < n-1; i++ {
			if !deadline.IsZero() && time.Now().After(deadline) {
				return best
			}
			for j := i + 1; j < n; j++ {
				a, b := best[i-1], best[i]
				c, d := best[j], best[(j+1)%n]
				delta := dist[a][c] + dist[b][d] - dist[a][b] - dist[c][d]
				if delta < -1e-12 {
					reverseSegment(best, i, j)
					improved = true
				}
			}
		}
	}
	return best
}

func reverseSegment(tour []int, i, j int) {
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}
