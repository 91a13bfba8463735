// SPDX-License-Identifier: MIT

package mesh

import "errors"

var (
	// ErrEmptyMesh indicates a mesh (or grid) with no nodes.
	ErrEmptyMesh = errors.New("mesh: mesh must have at least one node")

	// ErrLengthMismatch indicates per-node slices of differing lengths.
	ErrLengthMismatch = errors.New("mesh: per-node slices differ in length")

	// ErrBadArea indicates a non-positive or non-finite cell area.
	ErrBadArea = errors.New("mesh: cell area must be finite and > 0")

	// ErrBadNeighbor indicates an out-of-range, duplicate or self neighbour.
	ErrBadNeighbor = errors.New("mesh: invalid neighbour index")

	// ErrAsymmetric indicates i lists j as a neighbour but j does not list i.
	ErrAsymmetric = errors.New("mesh: adjacency is not symmetric")

	// ErrDegenerateEdge indicates neighbours at the same (or a non-finite)
	// position, which leaves the edge without a usable length.
	ErrDegenerateEdge = errors.New("mesh: edge length must be finite and > 0")

	// ErrBadSpacing indicates a non-positive or non-finite grid spacing.
	ErrBadSpacing = errors.New("mesh: grid spacing must be finite and > 0")

	// ErrBadPartitionCount indicates parts < 1 or parts > number of nodes.
	ErrBadPartitionCount = errors.New("mesh: partition count out of range")
)
