// Package halo is an in-process stand-in for the distributed state the
// drainage engine runs against: one goroutine per rank, each owning a
// mesh.Part, synchronised through blocking collectives.
//
// Collectives (every rank must call them in the same order):
//
//   - GhostExchange:   owners publish, ghosts copy the owner value.
//   - GhostAccumulate: ghost contributions are added into the owner and the
//     ghost slots are cleared (the reverse scatter of a transposed product).
//   - GlobalGather:    owned values assembled into a global vector on the
//     coordinator (rank 0); other ranks receive nil.
//   - Broadcast:       the coordinator's global vector is sliced back into
//     every rank's local (owned + ghost) layout.
//   - AllReduceSum:    deterministic sum, always in rank order.
//
// World.Run starts the ranks under an errgroup. A rank that fails outside an
// agreed collective abort breaks the barrier so its peers unblock instead
// of waiting forever; they observe ErrBroken.
package halo
