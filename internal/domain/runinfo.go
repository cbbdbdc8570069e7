package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunInfo is the metadata block attached to every invocation's output:
// which method and metric ran, how long it took, and any backend-specific
// convergence or balance details.
type RunInfo struct {
	InvocationID string            `json:"invocation_id"`
	Command      string            `json:"command"`
	Method       string            `json:"method"`
	Metric       string            `json:"metric"`
	Points       int               `json:"points"`
	StartedAt    time.Time         `json:"started_at"`
	Elapsed      time.Duration     `json:"elapsed"`
	Seed         int64             `json:"seed,omitempty"`
	Iterations   int               `json:"iterations,omitempty"`
	Converged    bool              `json:"converged,omitempty"`
	ClusterStats []ClusterStat     `json:"cluster_stats,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// NewRunInfo stamps a fresh invocation id and start time.
func NewRunInfo(command, method, metric string, points int) *RunInfo {
	return &RunInfo{
		InvocationID: uuid.NewString(),
		Command:      command,
		Method:       method,
		Metric:       metric,
		Points:       points,
		StartedAt:    time.Now().UTC(),
	}
}
