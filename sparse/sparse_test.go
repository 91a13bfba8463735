package sparse_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/drainage/sparse"
)

// TestNewBuilderInvalidShape ensures NewBuilder rejects non-positive shapes.
func TestNewBuilderInvalidShape(t *testing.T) {
	_, err := sparse.NewBuilder(0, 3)
	require.ErrorIs(t, err, sparse.ErrBadShape)
	_, err = sparse.NewBuilder(3, -1)
	require.ErrorIs(t, err, sparse.ErrBadShape)
}

// TestBuilderAddValidation checks range and finiteness guards.
func TestBuilderAddValidation(t *testing.T) {
	b, err := sparse.NewBuilder(2, 3)
	require.NoError(t, err)
	require.ErrorIs(t, b.Add(2, 0, 1), sparse.ErrOutOfRange)
	require.ErrorIs(t, b.Add(0, 3, 1), sparse.ErrOutOfRange)
	require.ErrorIs(t, b.Add(0, 0, math.NaN()), sparse.ErrNaNInf)
	require.ErrorIs(t, b.Add(0, 0, math.Inf(-1)), sparse.ErrNaNInf)
}

// TestBuilderMergesDuplicates verifies summation, zero dropping and diagonal caching.
func TestBuilderMergesDuplicates(t *testing.T) {
	b, err := sparse.NewBuilder(2, 3)
	require.NoError(t, err)
	require.NoError(t, b.Add(0, 2, 1.5))
	require.NoError(t, b.Add(0, 0, 1))
	require.NoError(t, b.Add(0, 2, 0.5))
	require.NoError(t, b.Add(1, 0, 2))
	require.NoError(t, b.Add(1, 0, -2)) // cancels: dropped
	require.NoError(t, b.Add(1, 1, 0))  // zero diagonal: kept

	m := b.Build()
	require.Equal(t, 3, m.Nnz())
	require.Equal(t, 1.0, m.Diag(0))
	require.Equal(t, 0.0, m.Diag(1))

	v, err := m.At(0, 2)
	require.NoError(t, err)
	require.Equal(t, 2.0, v)
	v, err = m.At(1, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)
	_, err = m.At(0, 5)
	require.ErrorIs(t, err, sparse.ErrOutOfRange)

	cols, _ := m.Row(0)
	require.Equal(t, []int{0, 2}, cols)
}

// TestMulVecAndTranspose checks both products against a dense reference.
func TestMulVecAndTranspose(t *testing.T) {
	b, err := sparse.NewBuilder(2, 3)
	require.NoError(t, err)
	require.NoError(t, b.Add(0, 0, 1))
	require.NoError(t, b.Add(0, 1, -0.25))
	require.NoError(t, b.Add(0, 2, -0.75))
	require.NoError(t, b.Add(1, 1, 1))
	require.NoError(t, b.Add(1, 2, -1))
	m := b.Build()

	y := make([]float64, 2)
	require.NoError(t, m.MulVec([]float64{1, 2, 4}, y))
	require.InDeltaSlice(t, []float64{1 - 0.5 - 3, 2 - 4}, y, 1e-12)

	z := []float64{10, 0, 0} // accumulate on top of existing contents
	require.NoError(t, m.MulTransVecAdd([]float64{1, 2}, z))
	require.InDeltaSlice(t, []float64{11, -0.25 + 2, -0.75 - 2}, z, 1e-12)

	require.ErrorIs(t, m.MulVec([]float64{1}, y), sparse.ErrDimensionMismatch)
	require.ErrorIs(t, m.MulTransVecAdd([]float64{1}, z), sparse.ErrDimensionMismatch)
}

//----------------------------------------------------------------------------//
// FlowOperator
//----------------------------------------------------------------------------//

// TestFlowOperator_Chain builds a 3-node chain 0→1→2 (2 is a sink) and checks
// the operator is I − W and that Aᵀ applied to discharge returns rainfall.
func TestFlowOperator_Chain(t *testing.T) {
	rcv := []int{1, 2, 2}
	w := []float64{1, 1, 0}
	m, err := sparse.FlowOperator(3, 3, 1, rcv, w)
	require.NoError(t, err)
	require.Equal(t, [][]float64{
		{1, -1, 0},
		{0, 1, -1},
		{0, 0, 1},
	}, m.ToDense())

	// Discharge of unit rain along the chain is 1, 2, 3.
	rain := make([]float64, 3)
	require.NoError(t, m.MulTransVecAdd([]float64{1, 2, 3}, rain))
	require.InDeltaSlice(t, []float64{1, 1, 1}, rain, 1e-12)
}

// TestFlowOperator_MultiFlowSelfSlots mixes a split node with self slots.
func TestFlowOperator_MultiFlowSelfSlots(t *testing.T) {
	// k=2. Row 0 splits 0.4/0.6 to 1 and 2; rows 1,2 are sinks (self slots).
	rcv := []int{1, 2, 1, 1, 2, 2}
	w := []float64{0.4, 0.6, 0, 0, 0, 0}
	m, err := sparse.FlowOperator(3, 4, 2, rcv, w)
	require.NoError(t, err)
	require.Equal(t, 5, m.Nnz())
	v, _ := m.At(0, 2)
	require.InDelta(t, -0.6, v, 1e-12)
	for i := 0; i < 3; i++ {
		require.Equal(t, 1.0, m.Diag(i))
	}
}

// TestFlowOperator_Errors covers shape, length and weight validation.
func TestFlowOperator_Errors(t *testing.T) {
	_, err := sparse.FlowOperator(2, 2, 0, nil, nil)
	require.ErrorIs(t, err, sparse.ErrBadShape)
	_, err = sparse.FlowOperator(3, 2, 1, []int{0, 1, 2}, []float64{0, 0, 0})
	require.ErrorIs(t, err, sparse.ErrBadShape)
	_, err = sparse.FlowOperator(2, 2, 1, []int{1}, []float64{1})
	require.ErrorIs(t, err, sparse.ErrDimensionMismatch)
	_, err = sparse.FlowOperator(2, 2, 1, []int{1, 1}, []float64{-1, 0})
	require.ErrorIs(t, err, sparse.ErrNegativeWeight)
	_, err = sparse.FlowOperator(2, 2, 1, []int{1, 1}, []float64{math.NaN(), 0})
	require.ErrorIs(t, err, sparse.ErrNaNInf)
	_, err = sparse.FlowOperator(2, 2, 1, []int{5, 1}, []float64{1, 0})
	require.ErrorIs(t, err, sparse.ErrOutOfRange)
}
