// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/flowdir"
	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
	"github.com/katalvlaran/drainage/solver"
)

// Sentinel errors. Solver failures surface as solver.ErrConvergence.
var (
	// ErrInvalidElevation indicates a non-finite elevation; the step is aborted.
	ErrInvalidElevation = pitfill.ErrInvalidElevation

	// ErrPartitionMismatch indicates a ghost elevation that differs from its
	// owner's value; an external-collaborator bug, never retried.
	ErrPartitionMismatch = errors.New("engine: ghost elevation differs from owner")

	// ErrLengthMismatch indicates an input or forcing field of the wrong length.
	ErrLengthMismatch = errors.New("engine: field length mismatch")

	// ErrBadForcing indicates a non-finite sea level, a non-positive time
	// step or a fan-out below 1.
	ErrBadForcing = errors.New("engine: invalid forcing")

	// ErrNilState indicates a nil DistributedState or Forcing.
	ErrNilState = errors.New("engine: nil state or forcing")
)

// DistributedState is the partitioned-mesh collaborator the engine runs on.
// Methods documented as collective must be called by every rank in the same
// order. *halo.Rank satisfies it.
type DistributedState interface {
	solver.Comm

	// Topology is this rank's partition: owned nodes first, then ghosts.
	Topology() *mesh.Part
	// Coordinator reports whether this rank hosts the serial fill.
	Coordinator() bool
	// GlobalMesh returns the full mesh on the coordinator, nil elsewhere.
	GlobalMesh() *mesh.Mesh
	// LocalElevation returns a copy of the committed local elevation.
	LocalElevation() []float64
	// SetLocalElevation commits a new local elevation.
	SetLocalElevation(v []float64) error
	// CellArea returns the local cell areas.
	CellArea() []float64
	// GlobalGather assembles owned values on the coordinator (collective).
	GlobalGather(field []float64) []float64
	// Broadcast spreads the coordinator's global field to local layout (collective).
	Broadcast(field []float64) []float64
}

// Forcing supplies the per-step boundary conditions. Field methods return
// one value per owned node of topo.
type Forcing interface {
	PrecipitationRate(topo flowdir.Topology) []float64
	SeaLevel() float64
	Erodibility(topo flowdir.Topology) []float64
	TimeStep() float64
	FlowDirectionFanout() int
}

// UniformForcing is a Forcing with spatially uniform fields.
type UniformForcing struct {
	Rain   float64 // precipitation rate per unit area
	Sea    float64 // sea level
	K      float64 // erodibility
	Dt     float64 // time step
	Fanout int     // receivers per node
}

// PrecipitationRate returns Rain at every owned node.
func (f UniformForcing) PrecipitationRate(topo flowdir.Topology) []float64 {
	return fill(topo.Owned(), f.Rain)
}

// SeaLevel returns Sea.
func (f UniformForcing) SeaLevel() float64 { return f.Sea }

// Erodibility returns K at every owned node.
func (f UniformForcing) Erodibility(topo flowdir.Topology) []float64 {
	return fill(topo.Owned(), f.K)
}

// TimeStep returns Dt.
func (f UniformForcing) TimeStep() float64 { return f.Dt }

// FlowDirectionFanout returns Fanout.
func (f UniformForcing) FlowDirectionFanout() int { return f.Fanout }

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}

// checkForcing validates the scalar forcing values.
func checkForcing(f Forcing) error {
	sea, dt, k := f.SeaLevel(), f.TimeStep(), f.FlowDirectionFanout()
	switch {
	case math.IsNaN(sea) || math.IsInf(sea, 0):
		return fmt.Errorf("%w: sea level %g", ErrBadForcing, sea)
	case math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0:
		return fmt.Errorf("%w: time step %g", ErrBadForcing, dt)
	case k < 1:
		return fmt.Errorf("%w: fan-out %d", ErrBadForcing, k)
	}

	return nil
}

// Phase is the position of the engine inside one step.
type Phase int

// Step phases, in execution order; Aborted is terminal for a failed step.
const (
	Init Phase = iota
	Fill
	RouteDirections
	BuildOperator
	SolveDischarge
	BuildErosionOperator
	SolveErosion
	Commit
	Aborted
)

var phaseNames = [...]string{
	Init:                 "init",
	Fill:                 "fill",
	RouteDirections:      "route-directions",
	BuildOperator:        "build-operator",
	SolveDischarge:       "solve-discharge",
	BuildErosionOperator: "build-erosion-operator",
	SolveErosion:         "solve-erosion",
	Commit:               "commit",
	Aborted:              "aborted",
}

// String returns the phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}

	return phaseNames[p]
}

// Surface selects which elevation a routing pass runs on.
type Surface int

const (
	// Filled routes over the depressionless surface; it drives erosion.
	Filled Surface = iota
	// Unfilled routes over the raw surface; pits act as sinks.
	Unfilled
)

// surfaces lists both routing passes in execution order.
var surfaces = [...]Surface{Filled, Unfilled}

// String returns the surface name.
func (s Surface) String() string {
	switch s {
	case Filled:
		return "filled"
	case Unfilled:
		return "unfilled"
	default:
		return fmt.Sprintf("surface(%d)", int(s))
	}
}

// Iterations counts solver iterations of one step.
type Iterations struct {
	Filled   int // discharge over the filled surface
	Unfilled int // discharge over the raw surface
	Erosion  int // implicit erosion
}

// Total returns the sum over all solves.
func (it Iterations) Total() int { return it.Filled + it.Unfilled + it.Erosion }

// StepResult is the output of one committed step. Slices are owned-node
// fields except Elevation, which is local (owned + ghost).
type StepResult struct {
	Elevation         []float64
	Discharge         []float64 // filled surface
	UnfilledDischarge []float64
	Eroded            []float64 // thickness
	Rate              []float64 // thickness / dt
	Outflow           float64   // global discharge into ocean nodes
	ErodedVolume      float64   // global Σ thickness × area
	Iterations        Iterations
}
