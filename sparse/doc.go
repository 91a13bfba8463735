// Package sparse provides the compressed-row operators the drainage engine
// solves against every step.
//
// The package provides:
//
//   - CSR, a rows×cols compressed sparse row matrix. Rows are a partition's
//     owned nodes; columns are its local nodes (owned then ghost), so a row
//     may reference ghost columns.
//   - Builder, which accumulates (i, j, v) triplets in any order, sums
//     duplicates and packs sorted rows.
//   - FlowOperator, which assembles I − Σ_k W_k from per-node receiver and
//     weight arrays. Its transpose applied to a water-input vector gives the
//     accumulated discharge.
//
// Operators are rebuilt every step (receivers move with the surface), so the
// package favours cheap assembly over in-place updates.
package sparse
