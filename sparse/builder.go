// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"math"
	"sort"
)

const (
	opNewBuilder = "NewBuilder"
	opAdd        = "Add"
)

// entry is one pending (column, value) contribution to a row.
type entry struct {
	col int
	v   float64
}

// Builder accumulates triplets for a rows×cols CSR.
// Duplicate (i, j) contributions are summed at Build time; explicit zero
// off-diagonal sums are dropped, diagonals are always stored.
type Builder struct {
	rows, cols int
	pending    [][]entry
}

// NewBuilder prepares a Builder for a rows×cols operator.
// Returns ErrBadShape if rows <= 0 or cols <= 0.
func NewBuilder(rows, cols int) (*Builder, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%s(%d,%d): %w", opNewBuilder, rows, cols, ErrBadShape)
	}

	return &Builder{rows: rows, cols: cols, pending: make([][]entry, rows)}, nil
}

// Add records A[i,j] += v.
// Returns ErrOutOfRange for invalid indices, ErrNaNInf for non-finite v.
func (b *Builder) Add(i, j int, v float64) error {
	if i < 0 || i >= b.rows || j < 0 || j >= b.cols {
		return fmt.Errorf("%s(%d,%d): %w", opAdd, i, j, ErrOutOfRange)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s(%d,%d)=%g: %w", opAdd, i, j, v, ErrNaNInf)
	}
	b.pending[i] = append(b.pending[i], entry{col: j, v: v})

	return nil
}

// Build packs the accumulated triplets into a CSR.
// Stage 1: sort each row by column (stable, so summation order is fixed).
// Stage 2: merge duplicates, drop zero off-diagonals, cache the diagonal.
// Complexity: O(nnz log d).
func (b *Builder) Build() *CSR {
	m := &CSR{
		rows:   b.rows,
		cols:   b.cols,
		rowPtr: make([]int, b.rows+1),
		diag:   make([]float64, b.rows),
	}

	var i, k int
	for i = 0; i < b.rows; i++ {
		row := b.pending[i]
		sort.SliceStable(row, func(a, c int) bool { return row[a].col < row[c].col })

		for k = 0; k < len(row); {
			col, sum := row[k].col, 0.0
			for ; k < len(row) && row[k].col == col; k++ {
				sum += row[k].v
			}
			if col == i {
				m.diag[i] = sum
			} else if sum == 0 {
				continue
			}
			m.colIdx = append(m.colIdx, col)
			m.val = append(m.val, sum)
		}
		m.rowPtr[i+1] = len(m.val)
	}

	return m
}
