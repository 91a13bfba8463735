// SPDX-License-Identifier: MIT

// Package erosion computes implicit stream-power erosion on a routed mesh.
//
// For every owned node i and receiver j on the filled surface the erosion
// coefficient is
//
//	c_ij = K_i · Q_i^m · dt · w_ij / d_ij      (m = 0.5 by default)
//
// and the implicit update solves
//
//	(1 + Σ_j c_ij) · h_i − Σ_j c_ij · h_j = h_old_i
//
// with the distributed Richardson solver in Transport orientation, warm
// started from h_old. Receivers raised by depression filling get c_ij = 0 so
// lakes do not drive incision. The eroded thickness is clamped to
// [0, max(0, h_old − (sea + SeaMargin))]: no deposition, and nothing cut
// below the sea-level floor.
package erosion

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/flowdir"
	"github.com/katalvlaran/drainage/solver"
	"github.com/katalvlaran/drainage/sparse"
)

// Sentinel errors returned by Erode.
var (
	// ErrBadTimeStep indicates a non-positive or non-finite time step.
	ErrBadTimeStep = errors.New("erosion: time step must be finite and > 0")

	// ErrLengthMismatch indicates an input field not matching the receiver set.
	ErrLengthMismatch = errors.New("erosion: field length mismatch")

	// ErrBadErodibility indicates a negative or non-finite erodibility.
	ErrBadErodibility = errors.New("erosion: erodibility must be finite and ≥ 0")

	// ErrNilReceivers indicates an Input without a receiver set.
	ErrNilReceivers = errors.New("erosion: receiver set is nil")
)

// Input is one partition's share of an erosion step.
type Input struct {
	Receivers   *flowdir.ReceiverSet // filled-surface routing, owned rows
	Raised      []bool               // every local node (owned + ghost): lifted by filling
	Elevation   []float64            // owned raw elevation before the step
	Discharge   []float64            // owned filled-surface discharge
	Erodibility []float64            // owned K
	SeaLevel    float64
	TimeStep    float64
}

// Result is the outcome of one erosion solve.
type Result struct {
	Elevation  []float64 // owned elevation after erosion
	Thickness  []float64 // owned eroded thickness, ≥ 0
	Rate       []float64 // Thickness / dt
	Iterations int
}

// Defaults.
const (
	// DefaultSeaMargin keeps eroded land just above sea level, so a single
	// step never turns a coastal node into ocean.
	DefaultSeaMargin         = 1e-3
	DefaultDischargeExponent = 0.5
)

const (
	panicSeaMargin = "erosion: WithSeaMargin: margin must be finite"
	panicExponent  = "erosion: WithDischargeExponent: m must be finite and ≥ 0"
)

// Options configures Erode.
type Options struct {
	SeaMargin         float64
	DischargeExponent float64
	Solver            []solver.Option
}

// Option represents a functional option for configuring Erode.
type Option func(*Options)

// WithSeaMargin sets the height above sea level below which nothing erodes.
func WithSeaMargin(margin float64) Option {
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		panic(panicSeaMargin)
	}

	return func(o *Options) { o.SeaMargin = margin }
}

// WithDischargeExponent sets the stream-power discharge exponent m.
func WithDischargeExponent(m float64) Option {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		panic(panicExponent)
	}

	return func(o *Options) { o.DischargeExponent = m }
}

// WithSolverOptions forwards options to the implicit solve.
func WithSolverOptions(opts ...solver.Option) Option {
	return func(o *Options) { o.Solver = append(o.Solver, opts...) }
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		SeaMargin:         DefaultSeaMargin,
		DischargeExponent: DefaultDischargeExponent,
	}
}

// System is an assembled erosion operator ready to solve.
type System struct {
	in      Input
	cfg     Options
	problem solver.Problem
}

// Operator returns the assembled matrix: diag 1 + Σc, off-diagonal −c.
func (s *System) Operator() *sparse.CSR { return s.problem.A }

// Assemble validates in and builds the erosion operator. It is collective:
// a validation failure on any rank fails it on all ranks.
func Assemble(comm solver.Comm, in Input, opts ...Option) (*System, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	// 1) Validate and agree.
	if err := solver.Agree(comm, validate(in)); err != nil {
		return nil, err
	}

	// 2) Assemble and agree.
	a, err := assemble(in, cfg.DischargeExponent)
	if err = solver.Agree(comm, err); err != nil {
		return nil, err
	}

	return &System{
		in:      in,
		cfg:     cfg,
		problem: solver.Problem{A: a, Order: in.Receivers.Order, Orientation: solver.Transport},
	}, nil
}

// Solve solves A·h = h_old warm-started from h_old and clamps the eroded
// thickness. Collective.
func (s *System) Solve(comm solver.Comm) (*Result, error) {
	in := s.in
	sol, err := solver.Solve(comm, s.problem, in.Elevation, in.Elevation, s.cfg.Solver...)
	if err != nil {
		return nil, err
	}

	n := len(in.Elevation)
	res := &Result{
		Elevation:  make([]float64, n),
		Thickness:  make([]float64, n),
		Rate:       make([]float64, n),
		Iterations: sol.Iterations,
	}
	floor := in.SeaLevel + s.cfg.SeaMargin
	for i, old := range in.Elevation {
		th := old - sol.X[i]
		limit := math.Max(0, old-floor)
		th = math.Min(math.Max(th, 0), limit)
		res.Thickness[i] = th
		res.Rate[i] = th / in.TimeStep
		res.Elevation[i] = old - th
	}

	return res, nil
}

// Erode runs one implicit erosion step: Assemble, then Solve.
func Erode(comm solver.Comm, in Input, opts ...Option) (*Result, error) {
	sys, err := Assemble(comm, in, opts...)
	if err != nil {
		return nil, err
	}

	return sys.Solve(comm)
}

func validate(in Input) error {
	if math.IsNaN(in.TimeStep) || math.IsInf(in.TimeStep, 0) || in.TimeStep <= 0 {
		return fmt.Errorf("%w: dt=%g", ErrBadTimeStep, in.TimeStep)
	}
	if in.Receivers == nil {
		return ErrNilReceivers
	}
	n := in.Receivers.Len()
	if len(in.Elevation) != n || len(in.Discharge) != n || len(in.Erodibility) != n || len(in.Raised) < n {
		return fmt.Errorf("%w: rows=%d elevation=%d discharge=%d erodibility=%d raised=%d",
			ErrLengthMismatch, n, len(in.Elevation), len(in.Discharge), len(in.Erodibility), len(in.Raised))
	}
	for i, k := range in.Erodibility {
		if math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
			return fmt.Errorf("%w: node %d K=%g", ErrBadErodibility, i, k)
		}
	}

	return nil
}

// assemble builds diag 1 + Σc, off-diagonal −c over owned rows and local columns.
func assemble(in Input, m float64) (*sparse.CSR, error) {
	rs := in.Receivers
	n, cols := rs.Len(), len(in.Raised)
	b, err := sparse.NewBuilder(n, cols)
	if err != nil {
		return nil, err
	}

	var i, s, j int
	for i = 0; i < n; i++ {
		base := in.Erodibility[i] * math.Pow(math.Max(in.Discharge[i], 0), m) * in.TimeStep
		sum := 0.0
		rcv, w := rs.Receivers(i)
		for s, j = range rcv {
			if j >= cols {
				return nil, fmt.Errorf("%w: receiver %d beyond %d local nodes", ErrLengthMismatch, j, cols)
			}
			if j == i || w[s] == 0 || in.Raised[j] {
				continue
			}
			c := base * w[s] / rs.Dist[i*rs.K+s]
			if c == 0 {
				continue
			}
			if err = b.Add(i, j, -c); err != nil {
				return nil, err
			}
			sum += c
		}
		if err = b.Add(i, i, 1+sum); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}
