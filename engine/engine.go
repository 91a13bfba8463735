// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/drainage/erosion"
	"github.com/katalvlaran/drainage/flowdir"
	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
	"github.com/katalvlaran/drainage/solver"
	"github.com/katalvlaran/drainage/sparse"
)

// Engine advances one rank's share of the landscape by whole steps.
// Every rank of a world runs its own Engine; Step is collective.
type Engine struct {
	state   DistributedState
	forcing Forcing
	cfg     Options
	log     *zap.Logger

	phase  Phase
	steps  int                      // committed steps
	warm   [len(surfaces)][]float64 // previous discharge per surface
	lastIt Iterations               // iterations of the last committed step
	pits   []pitfill.Pit            // last committed pit table (coordinator)
}

// New binds an engine to one rank's state and forcing.
// Returns ErrNilState or ErrBadForcing.
func New(state DistributedState, forcing Forcing, opts ...Option) (*Engine, error) {
	if state == nil || forcing == nil {
		return nil, ErrNilState
	}
	if err := checkForcing(forcing); err != nil {
		return nil, err
	}
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{state: state, forcing: forcing, cfg: cfg, log: cfg.Logger, phase: Init}, nil
}

// Phase returns the phase the engine is in, or ended the last step in:
// Commit after success, Aborted after a failure.
func (e *Engine) Phase() Phase { return e.phase }

// Steps returns the number of committed steps.
func (e *Engine) Steps() int { return e.steps }

// LastStepIterations returns the total solver iterations of the last
// committed step.
func (e *Engine) LastStepIterations() int { return e.lastIt.Total() }

// LastIterations returns the per-solve breakdown of the last committed step.
func (e *Engine) LastIterations() Iterations { return e.lastIt }

// LastPitTable returns a copy of the last committed pit table. Only the
// coordinator holds it; other ranks get nil.
func (e *Engine) LastPitTable() []pitfill.Pit {
	if e.pits == nil {
		return nil
	}

	return append([]pitfill.Pit(nil), e.pits...)
}

// route is one surface's routing pass.
type route struct {
	rs *flowdir.ReceiverSet
	a  *sparse.CSR
	q  *solver.Result
}

// stepState is the scratch of one in-flight step; it is dropped on abort.
type stepState struct {
	topo    *mesh.Part
	sea     float64
	k       int
	raw     []float64 // local
	filled  []float64 // local
	raised  []bool    // local
	rain    []float64 // owned
	kf      []float64 // owned
	pits    []pitfill.Pit
	routes  [len(surfaces)]route
	outflow float64
	sys     *erosion.System
	ero     *erosion.Result
	volume  float64
	it      Iterations
}

// Step advances the landscape by one time step starting from elevationIn
// (local layout; nil means the state's committed elevation).
//
// Phases: Init → Fill → RouteDirections → BuildOperator → SolveDischarge →
// BuildErosionOperator → SolveErosion → Commit. Any failure, on any rank,
// moves every rank to Aborted at the same phase and leaves the committed
// elevation, warm starts and pit table untouched.
func (e *Engine) Step(elevationIn []float64) (*StepResult, error) {
	st := &stepState{
		topo: e.state.Topology(),
		sea:  e.forcing.SeaLevel(),
		k:    e.forcing.FlowDirectionFanout(),
	}
	res, err := e.run(st, elevationIn)
	if err != nil {
		at := e.phase
		e.enter(Aborted)
		e.log.Warn("step aborted",
			zap.Int("step", e.steps+1),
			zap.Stringer("phase", at),
			zap.Error(err))

		return nil, fmt.Errorf("engine: step %d: %s: %w", e.steps+1, at, err)
	}

	return res, nil
}

func (e *Engine) run(st *stepState, elevationIn []float64) (*StepResult, error) {
	e.enter(Init)
	if err := e.begin(st, elevationIn); err != nil {
		return nil, err
	}

	e.enter(Fill)
	if err := e.fill(st); err != nil {
		return nil, err
	}

	e.enter(RouteDirections)
	if err := e.routeDirections(st); err != nil {
		return nil, err
	}

	e.enter(BuildOperator)
	if err := e.buildOperators(st); err != nil {
		return nil, err
	}

	e.enter(SolveDischarge)
	if err := e.solveDischarge(st); err != nil {
		return nil, err
	}

	e.enter(BuildErosionOperator)
	if err := e.buildErosion(st); err != nil {
		return nil, err
	}

	e.enter(SolveErosion)
	if err := e.solveErosion(st); err != nil {
		return nil, err
	}

	e.enter(Commit)

	return e.commit(st)
}

func (e *Engine) enter(p Phase) {
	e.phase = p
	e.log.Debug("phase", zap.Int("step", e.steps+1), zap.Stringer("phase", p))
}

// agree turns a local error into a collective decision.
func (e *Engine) agree(err error) error { return solver.Agree(e.state, err) }

// begin validates the input elevation and forcing fields.
func (e *Engine) begin(st *stepState, elevationIn []float64) error {
	if elevationIn == nil {
		elevationIn = e.state.LocalElevation()
	}
	st.raw = append([]float64(nil), elevationIn...)
	st.rain = e.forcing.PrecipitationRate(st.topo)
	st.kf = e.forcing.Erodibility(st.topo)

	var err error
	switch {
	case len(st.raw) != st.topo.Len():
		err = fmt.Errorf("%w: elevation len=%d want %d", ErrLengthMismatch, len(st.raw), st.topo.Len())
	case len(st.rain) != st.topo.Owned() || len(st.kf) != st.topo.Owned():
		err = fmt.Errorf("%w: forcing len=%d,%d want %d", ErrLengthMismatch, len(st.rain), len(st.kf), st.topo.Owned())
	default:
		for l, z := range st.raw {
			if math.IsNaN(z) || math.IsInf(z, 0) {
				err = fmt.Errorf("%w: node %d elevation %g", ErrInvalidElevation, st.topo.Global(l), z)
				break
			}
		}
	}

	return e.agree(err)
}

// fill checks ghosts against their owners, runs the serial fill on the
// coordinator and broadcasts the filled surface.
func (e *Engine) fill(st *stepState) error {
	// 1) Gather raw owned values; broadcast them back to check ghosts.
	global := e.state.GlobalGather(st.raw)
	owner := e.state.Broadcast(global)
	var err error
	for l := st.topo.Owned(); l < st.topo.Len(); l++ {
		if owner[l] != st.raw[l] {
			err = fmt.Errorf("%w: node %d ghost=%g owner=%g", ErrPartitionMismatch, st.topo.Global(l), st.raw[l], owner[l])
			break
		}
	}
	if err = e.agree(err); err != nil {
		return err
	}

	// 2) Serial fill on the coordinator.
	var filled []float64
	if e.state.Coordinator() {
		var res *pitfill.Result
		res, err = pitfill.Fill(e.state.GlobalMesh(), global, st.sea, e.cfg.Fill...)
		if err == nil {
			filled, st.pits = res.Filled, res.Pits
			if st.pits == nil {
				st.pits = []pitfill.Pit{}
			}
		}
	}
	if err = e.agree(err); err != nil {
		return err
	}

	// 3) Broadcast and flag raised nodes.
	st.filled = e.state.Broadcast(filled)
	st.raised = make([]bool, len(st.filled))
	for l := range st.filled {
		st.raised[l] = st.filled[l] > st.raw[l]
	}

	return nil
}

// surface returns the local elevation a routing pass runs on.
func (st *stepState) surface(s Surface) []float64 {
	if s == Filled {
		return st.filled
	}

	return st.raw
}

func (e *Engine) routeDirections(st *stepState) error {
	var err error
	for _, s := range surfaces {
		if st.routes[s].rs, err = flowdir.Resolve(st.topo, st.surface(s), st.sea, st.k); err != nil {
			err = fmt.Errorf("%s: %w", s, err)
			break
		}
	}

	return e.agree(err)
}

func (e *Engine) buildOperators(st *stepState) error {
	var err error
	for _, s := range surfaces {
		rs := st.routes[s].rs
		if st.routes[s].a, err = sparse.FlowOperator(st.topo.Owned(), st.topo.Len(), rs.K, rs.Rcv, rs.Weight); err != nil {
			err = fmt.Errorf("%s: %w", s, err)
			break
		}
	}

	return e.agree(err)
}

// solveDischarge solves Aᵀ·Q = rain·area on both surfaces, each warm-started
// from its own previous solution.
func (e *Engine) solveDischarge(st *stepState) error {
	area := e.state.CellArea()
	rhs := make([]float64, st.topo.Owned())
	for i := range rhs {
		rhs[i] = st.rain[i] * area[i]
	}

	var err error
	for _, s := range surfaces {
		r := &st.routes[s]
		p := solver.Problem{A: r.a, Order: r.rs.Order, Orientation: solver.Accumulate}
		if r.q, err = solver.Solve(e.state, p, rhs, e.warm[s], e.cfg.Solver...); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	st.it.Filled = st.routes[Filled].q.Iterations
	st.it.Unfilled = st.routes[Unfilled].q.Iterations

	out := 0.0
	f := st.routes[Filled]
	for i, ocean := range f.rs.Ocean {
		if ocean {
			out += f.q.X[i]
		}
	}
	st.outflow = e.state.AllReduceSum(out)

	return nil
}

func (e *Engine) buildErosion(st *stepState) error {
	f := st.routes[Filled]
	sys, err := erosion.Assemble(e.state, erosion.Input{
		Receivers:   f.rs,
		Raised:      st.raised,
		Elevation:   st.raw[:st.topo.Owned()],
		Discharge:   f.q.X,
		Erodibility: st.kf,
		SeaLevel:    st.sea,
		TimeStep:    e.forcing.TimeStep(),
	}, e.cfg.Erosion...)
	if err != nil {
		return err
	}
	st.sys = sys

	return nil
}

func (e *Engine) solveErosion(st *stepState) error {
	res, err := st.sys.Solve(e.state)
	if err != nil {
		return err
	}
	st.ero = res
	st.it.Erosion = res.Iterations

	area := e.state.CellArea()
	vol := 0.0
	for i, th := range res.Thickness {
		vol += th * area[i]
	}
	st.volume = e.state.AllReduceSum(vol)

	return nil
}

// commit hands the new elevation to the distributed state and rolls the
// warm starts and pit table forward.
func (e *Engine) commit(st *stepState) (*StepResult, error) {
	next := make([]float64, st.topo.Len())
	copy(next, st.ero.Elevation)
	e.state.GhostExchange(next)
	if err := e.agree(e.state.SetLocalElevation(next)); err != nil {
		return nil, err
	}

	e.warm[Filled] = st.routes[Filled].q.X
	e.warm[Unfilled] = st.routes[Unfilled].q.X
	e.lastIt = st.it
	e.pits = st.pits
	e.steps++

	if e.state.Coordinator() {
		e.log.Info("step committed",
			zap.Int("step", e.steps),
			zap.Int("iterations", st.it.Total()),
			zap.Int("iterations_filled", st.it.Filled),
			zap.Int("iterations_unfilled", st.it.Unfilled),
			zap.Int("iterations_erosion", st.it.Erosion),
			zap.Float64("outflow", st.outflow),
			zap.Float64("eroded_volume", st.volume),
			zap.Int("pits", len(st.pits)))
	}

	return &StepResult{
		Elevation:         next,
		Discharge:         append([]float64(nil), st.routes[Filled].q.X...),
		UnfilledDischarge: append([]float64(nil), st.routes[Unfilled].q.X...),
		Eroded:            st.ero.Thickness,
		Rate:              st.ero.Rate,
		Outflow:           st.outflow,
		ErodedVolume:      st.volume,
		Iterations:        st.it,
	}, nil
}
