package domain

import (
	"fmt"
	"math"
)

// Matrix holds pairwise distances between two point sets, indexed by input
// order: Distances[i][j] is the distance from the i-th origin to the j-th
// destination, in meters. Durations is a parallel matrix in seconds; it is
// nil unless the metric that produced the matrix reports travel time.
type Matrix struct {
	Distances [][]float64
	Durations [][]float64
}

// NewMatrix allocates a zeroed rows×cols distance matrix.
func NewMatrix(rows, cols int, withDurations bool) *Matrix {
	m := &Matrix{Distances: allocGrid(rows, cols)}
	if withDurations {
		m.Durations = allocGrid(rows, cols)
	}
	return m
}

func allocGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

// Rows returns the number of origins.
func (m *Matrix) Rows() int { return len(m.Distances) }

// Cols returns the number of destinations, 0 for an empty matrix.
func (m *Matrix) Cols() int {
	if len(m.Distances) == 0 {
		return 0
	}
	return len(m.Distances[0])
}

// IsSquare reports whether the matrix covers a single point set.
func (m *Matrix) IsSquare() bool { return m.Rows() == m.Cols() }

// Validate checks the structural invariants every provider must uphold:
// rectangular shape and finite non-negative entries. Symmetry is not
// checked here; directed road metrics legitimately produce asymmetric
// matrices. The zero-diagonal invariant belongs to ValidateSelf: a
// points×workers matrix may be square by coincidence without its diagonal
// meaning self-distance.
func (m *Matrix) Validate() error {
	cols := m.Cols()
	for i, row := range m.Distances {
		if len(row) != cols {
			return &ValidationError{Field: "matrix", Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), cols)}
		}
		for j, d := range row {
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return &ValidationError{Field: "matrix", Reason: fmt.Sprintf("cell [%d][%d] is not finite", i, j)}
			}
			if d < 0 {
				return &ValidationError{Field: "matrix", Reason: fmt.Sprintf("cell [%d][%d] is negative", i, j)}
			}
		}
	}
	return nil
}

// ValidateSelf checks the invariants of a self-matrix, where origins and
// destinations are the same point set: everything Validate checks, plus a
// square shape and a zero diagonal.
func (m *Matrix) ValidateSelf() error {
	if err := m.Validate(); err != nil {
		return err
	}
	if !m.IsSquare() {
		return &ValidationError{Field: "matrix", Reason: fmt.Sprintf("self-matrix must be square, got %dx%d", m.Rows(), m.Cols())}
	}
	for i := range m.Distances {
		if m.Distances[i][i] != 0 {
			return &ValidationError{Field: "matrix", Reason: fmt.Sprintf("diagonal cell [%d][%d] is non-zero", i, i)}
		}
	}
	return nil
}
