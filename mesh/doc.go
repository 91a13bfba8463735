// Package mesh holds the static surface mesh the drainage engine routes over
// and the partition views handed to each worker rank.
//
// What:
//
//   - Mesh stores node positions (orb.Point), cell (voronoi) areas, open
//     boundary flags and a symmetric adjacency in compressed-row form.
//   - NewGrid builds a regular rows×cols mesh with 4- or 8-connectivity,
//     which is what tests and the simulation driver use in place of a real
//     unstructured generator.
//   - Partition splits a Mesh into contiguous id blocks. Each Part lists its
//     owned nodes first and its ghost (halo) nodes after them, and carries a
//     local adjacency for the owned rows with precomputed edge lengths.
//
// Determinism:
//
//   - Neighbour lists are always ordered by ascending global id, so every
//     consumer that breaks ties by id observes the same order on every rank.
//
// Complexity:
//
//   - New:       O(E log d) for sorting and the symmetry check.
//   - NewGrid:   O(rows×cols×d).
//   - Partition: O(N + E log E).
//
// Errors:
//
//   - ErrEmptyMesh, ErrLengthMismatch, ErrBadArea, ErrBadNeighbor,
//     ErrAsymmetric, ErrDegenerateEdge, ErrBadSpacing,
//     ErrBadPartitionCount.
package mesh
