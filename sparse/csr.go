// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"sort"
)

// Operation tags for error wrapping.
const (
	opAt       = "At"
	opMulVec   = "MulVec"
	opMulTrans = "MulTransVecAdd"
)

// CSR is an immutable rows×cols compressed sparse row matrix.
// Row i holds colIdx[rowPtr[i]:rowPtr[i+1]] ascending, with matching values.
type CSR struct {
	rows, cols int
	rowPtr     []int     // len rows+1
	colIdx     []int     // column of each stored entry
	val        []float64 // value of each stored entry
	diag       []float64 // cached A[i,i] per row (0 when i ≥ cols or absent)
}

// Rows returns the number of rows.
func (m *CSR) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *CSR) Cols() int { return m.cols }

// Nnz returns the number of stored entries.
func (m *CSR) Nnz() int { return len(m.val) }

// Diag returns A[i,i]. Complexity: O(1).
func (m *CSR) Diag(i int) float64 { return m.diag[i] }

// Row returns the column indices and values stored in row i.
// The slices alias internal storage and must not be modified.
func (m *CSR) Row(i int) ([]int, []float64) {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]

	return m.colIdx[lo:hi], m.val[lo:hi]
}

// At returns A[i,j], zero when not stored.
// Returns ErrOutOfRange for invalid indices. Complexity: O(log nnz(row)).
func (m *CSR) At(i, j int) (float64, error) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return 0, fmt.Errorf("%s(%d,%d): %w", opAt, i, j, ErrOutOfRange)
	}
	cols, vals := m.Row(i)
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return vals[k], nil
	}

	return 0, nil
}

// MulVec computes y = A·x with len(x) == Cols() and len(y) == Rows().
// Determinism: fixed row-then-entry loop order.
// Complexity: O(nnz).
func (m *CSR) MulVec(x, y []float64) error {
	if len(x) != m.cols || len(y) != m.rows {
		return fmt.Errorf("%s: len(x)=%d len(y)=%d for %dx%d: %w",
			opMulVec, len(x), len(y), m.rows, m.cols, ErrDimensionMismatch)
	}
	var i, k int
	var acc float64
	for i = 0; i < m.rows; i++ {
		acc = 0
		for k = m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			acc += m.val[k] * x[m.colIdx[k]]
		}
		y[i] = acc
	}

	return nil
}

// MulTransVecAdd accumulates y += Aᵀ·x with len(x) == Rows() and
// len(y) == Cols(). Entries landing in ghost columns are left in y for the
// halo layer to scatter back to their owners.
// Complexity: O(nnz).
func (m *CSR) MulTransVecAdd(x, y []float64) error {
	if len(x) != m.rows || len(y) != m.cols {
		return fmt.Errorf("%s: len(x)=%d len(y)=%d for %dx%d: %w",
			opMulTrans, len(x), len(y), m.rows, m.cols, ErrDimensionMismatch)
	}
	var i, k int
	var xi float64
	for i = 0; i < m.rows; i++ {
		xi = x[i]
		if xi == 0 {
			continue
		}
		for k = m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			y[m.colIdx[k]] += m.val[k] * xi
		}
	}

	return nil
}

// ToDense expands the operator into a rows×cols slice of rows.
// Intended for small systems in tests and diagnostics.
func (m *CSR) ToDense() [][]float64 {
	out := make([][]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = make([]float64, m.cols)
		cols, vals := m.Row(i)
		for k, j := range cols {
			out[i][j] = vals[k]
		}
	}

	return out
}
