// Package drainage is a distributed flow-accumulation and erosion engine for
// landscape evolution on partitioned surface meshes.
//
// Each step fills depressions, routes water to up to k downslope receivers,
// accumulates discharge with an iterative block-Jacobi solver and lowers the
// surface by implicit stream-power erosion.
//
// Packages:
//
//	mesh/     surface mesh (orb points, areas, adjacency) and block partitions
//	halo/     in-process ranks with ghost exchange and reductions
//	sparse/   CSR operators and the I − ΣW flow operator
//	pitfill/  priority-flood depression filling with pit records
//	flowdir/  multi-receiver flow directions and donor order
//	solver/   distributed Richardson / block-Jacobi solver
//	erosion/  implicit stream-power erosion
//	engine/   per-rank step state machine
//	config/   YAML run configuration
//
// The drainsim command in cmd/drainsim wires them together:
//
//	go run ./cmd/drainsim run --config drainsim.yaml
package drainage
