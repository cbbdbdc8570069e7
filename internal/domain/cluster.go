package domain

// Partition is the common output of every clustering backend. Callers cannot
// tell which backend produced it except through Method and the optional
// fields: only the iterative path reports centroids and convergence.
type Partition struct {
	// Labels maps point index to cluster id in [0, K).
	Labels []int
	K      int
	// Centroids is nil for backends that do not relocate centroids.
	Centroids []Coordinates
	// Iterations and Converged describe the iterative path; Iterations is 0
	// for delegated backends.
	Iterations int
	Converged  bool
	Method     string
}

// Clusters groups the labelled point indices into ordered member sets.
// Together the clusters cover every point index exactly once.
func (p *Partition) Clusters() []Cluster {
	clusters := make([]Cluster, p.K)
	for i := range clusters {
		clusters[i].ID = i
	}
	for idx, label := range p.Labels {
		clusters[label].Members = append(clusters[label].Members, idx)
	}
	for i := range clusters {
		if i < len(p.Centroids) {
			c := p.Centroids[i]
			clusters[i].Centroid = &c
		}
	}
	return clusters
}

// Cluster is one group of the partition.
type Cluster struct {
	ID       int
	Members  []int
	Centroid *Coordinates
}

// ClusterStat is an observational balance measure for one cluster: its size
// and the weight of a minimum spanning tree over its members. Balance is
// reported, never enforced.
type ClusterStat struct {
	ClusterID int     `json:"cluster_id"`
	Size      int     `json:"size"`
	MSTWeight float64 `json:"mst_weight"`
}
