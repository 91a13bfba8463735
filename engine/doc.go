// Package engine advances a partitioned landscape through one drainage and
// erosion step at a time.
//
// Every rank of a distributed state runs its own Engine; Step is collective
// and must be called by all ranks together.
//
// Step phases:
//
//	Init                 validate input elevation and forcing fields
//	Fill                 check ghosts against owners, priority-flood fill on
//	                     the coordinator, broadcast the filled surface
//	RouteDirections      resolve up to k receivers on the filled and the raw
//	                     surface
//	BuildOperator        assemble I − ΣW for both surfaces
//	SolveDischarge       solve Aᵀ·Q = rain·area, warm-started per surface
//	BuildErosionOperator implicit stream-power operator from the filled Q
//	SolveErosion         new elevation, clamped thickness and rate
//	Commit               hand the elevation to the state, roll warm starts
//
// Failure model:
//
//   - Every fallible phase ends in a collective agreement. A failure on one
//     rank moves all ranks to Aborted in the same phase; the failing rank
//     returns the root cause and its peers return solver.ErrPeerFailed.
//   - An aborted step changes nothing: committed elevation, warm starts and
//     the pit table stay as they were, so the caller may retry with a
//     different time step or solver settings.
//   - ErrPartitionMismatch (a ghost value that disagrees with its owner)
//     points at a broken halo exchange and is not worth retrying.
//
// Logging goes through zap: one Debug record per phase, a Warn on abort and
// an Info summary on the coordinator after each commit.
package engine
