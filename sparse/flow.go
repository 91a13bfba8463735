// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"math"
)

const opFlowOperator = "FlowOperator"

// FlowOperator assembles the flow-routing operator A = I − Σ_k W_k.
//
// Inputs:
//   - rows: number of routed (owned) nodes.
//   - cols: number of addressable (local) nodes, cols ≥ rows.
//   - k:    receivers per node; rcv and w are row-major rows×k.
//   - rcv:  receiver column per slot; rcv == i marks an unused/self slot.
//   - w:    routing weight per slot, finite and ≥ 0.
//
// Row i holds 1 on the diagonal and −w at each distinct receiver column, so
// A[i,j] is the amount leaving i toward j. Self slots contribute nothing off
// the diagonal; a node never drains into itself.
//
// Errors: ErrBadShape, ErrDimensionMismatch, ErrOutOfRange, ErrNaNInf,
// ErrNegativeWeight.
// Complexity: O(rows·k log k).
func FlowOperator(rows, cols, k int, rcv []int, w []float64) (*CSR, error) {
	if k < 1 || cols < rows {
		return nil, fmt.Errorf("%s: rows=%d cols=%d k=%d: %w", opFlowOperator, rows, cols, k, ErrBadShape)
	}
	if len(rcv) != rows*k || len(w) != rows*k {
		return nil, fmt.Errorf("%s: len(rcv)=%d len(w)=%d want %d: %w",
			opFlowOperator, len(rcv), len(w), rows*k, ErrDimensionMismatch)
	}
	b, err := NewBuilder(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opFlowOperator, err)
	}

	var i, s, j int
	var wt float64
	for i = 0; i < rows; i++ {
		// Identity contribution.
		if err = b.Add(i, i, 1); err != nil {
			return nil, fmt.Errorf("%s: %w", opFlowOperator, err)
		}
		for s = 0; s < k; s++ {
			j, wt = rcv[i*k+s], w[i*k+s]
			if math.IsNaN(wt) || math.IsInf(wt, 0) {
				return nil, fmt.Errorf("%s: row %d slot %d: %w", opFlowOperator, i, s, ErrNaNInf)
			}
			if wt < 0 {
				return nil, fmt.Errorf("%s: row %d slot %d w=%g: %w", opFlowOperator, i, s, wt, ErrNegativeWeight)
			}
			if j == i || wt == 0 {
				continue
			}
			if err = b.Add(i, j, -wt); err != nil {
				return nil, fmt.Errorf("%s: row %d slot %d: %w", opFlowOperator, i, s, err)
			}
		}
	}

	return b.Build(), nil
}
