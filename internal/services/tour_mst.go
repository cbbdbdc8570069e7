package services

import (
	"errors"
	"math"
)

var errDisconnected = errors.New("distance matrix describes a disconnected graph")

// minimumSpanningTree runs Prim over the complete graph described by the
// square matrix dist. It returns the MST's total weight and its adjacency
// lists. Equal-weight candidates resolve to the smaller vertex index so the
// tree is identical across runs.
func minimumSpanningTree(dist [][]float64) (float64, [][]int, error) {
	n := len(dist)
	inMST := make([]bool, n)
	bestCost := make([]float64, n)
	parent := make([]int, n)
	adj := make([][]int, n)

	for v := range bestCost {
		bestCost[v] = math.Inf(1)
		parent[v] = -1
	}
	bestCost[0] = 0

	total := 0.0
	for it := 0; it < n; it++ {
		u, minW := -1, math.Inf(1)
		for v := 0; v < n; v++ {
			if !inMST[v] && bestCost[v] < minW {
				minW, u = bestCost[v], v
			}
		}
		if u < 0 {
			return 0, nil, errDisconnected
		}
		inMST[u] = true
		if parent[u] >= 0 {
			p := parent[u]
			adj[u] = append(adj[u], p)
			adj[p] = append(adj[p], u)
			total += dist[p][u]
		}
		for v := 0; v < n; v++ {
			if !inMST[v] && dist[u][v] < bestCost[v] {
				bestCost[v] = dist[u][v]
				parent[v] = u
			}
		}
	}

	return total, adj, nil
}

// doubleEdges duplicates every MST edge, making all degrees even. The
// shortcut tour over the resulting Eulerian circuit is at most twice the
// MST weight, hence at most twice the optimal tour for metric distances.
func doubleEdges(adj [][]int) {
	for u := range adj {
		adj[u] = append(adj[u], adj[u]...)
	}
}

// oddVertices lists MST vertices of odd degree.
func oddVertices(adj [][]int) []int {
	odd := make([]int, 0, len(adj)/2+1)
	for v := range adj {
		if len(adj[v])&1 == 1 {
			odd = append(odd, v)
		}
	}
	return odd
}

// greedyMatch pairs odd-degree vertices with their nearest unmatched
// partner and adds the matching edges to the multigraph. With a true
// minimum-weight matching the Christofides bound of 1.5× optimal holds;
// the greedy pairing keeps the pipeline valid and deterministic but
// weakens the formal bound.
func greedyMatch(odd []int, dist [][]float64, adj [][]int) {
	remaining := append([]int(nil), odd...)
	for len(remaining) > 1 {
		u := remaining[0]
		remaining = remaining[1:]
		bestIdx, bestD := 0, math.Inf(1)
		for i, v := range remaining {
			if d := dist[u][v]; d < bestD {
				bestD, bestIdx = d, i
			}
		}
		v := remaining[bestIdx]
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
}

// eulerianCircuit returns a closed walk using every multigraph edge exactly
// once, starting and ending at start (Hierholzer, O(E)).
func eulerianCircuit(adj [][]int, start int) []int {
	local := make([][]int, len(adj))
	for u := range adj {
		local[u] = append([]int(nil), adj[u]...)
	}

	var circuit []int
	stack := []int{start}

	for len(stack) > 0 {
		u := stack[len(stack)-1]
		if len(local[u]) == 0 {
			circuit = append(circuit, u)
			stack = stack[:len(stack)-1]
			continue
		}
		v := local[u][len(local[u])-1]
		local[u] = local[u][:len(local[u])-1]
		for i, x := range local[v] {
			if x == u {
				local[v] = append(local[v][:i], local[v][i+1:]...)
				break
			}
		}
		stack = append(stack, v)
	}

	return circuit
}

// shortcutToHamiltonian skips repeated visits in the Eulerian walk, keeping
// the first occurrence of each vertex. For metric distances the shortcut
// never lengthens the walk.
func shortcutToHamiltonian(euler []int, n int) []int {
	visited := make([]bool, n)
	tour := make([]int, 0, n)
	for _, v := range euler {
		if !visited[v] {
			visited[v] = true
			tour = append(tour, v)
		}
	}
	return tour
}
