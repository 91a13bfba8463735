// SPDX-License-Identifier: MIT
// Package sparse: sentinel error set.
// Every message is prefixed with "sparse: ..." for easy grepping. Callers
// match with errors.Is; builders wrap with fmt.Errorf("Op: ...: %w", ErrX).

package sparse

import "errors"

var (
	// ErrBadShape is returned when requested shape is invalid (rows<=0 or cols<=0).
	ErrBadShape = errors.New("sparse: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("sparse: index out of range")

	// ErrDimensionMismatch indicates a vector whose length does not match the operator.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("sparse: NaN or Inf encountered")

	// ErrNegativeWeight signals a negative routing weight.
	ErrNegativeWeight = errors.New("sparse: negative routing weight")

	// ErrZeroDiagonal signals a row without a usable (non-zero) diagonal.
	ErrZeroDiagonal = errors.New("sparse: zero diagonal entry")
)
