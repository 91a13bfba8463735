// SPDX-License-Identifier: MIT

package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/sparse"
)

// Sentinel errors.
var (
	// ErrConvergence is matched by every *ConvergenceError.
	ErrConvergence = errors.New("solver: did not converge")

	// ErrDimensionMismatch indicates rhs, warm start or Order not matching the operator.
	ErrDimensionMismatch = errors.New("solver: dimension mismatch")

	// ErrNilOperator indicates a Problem without an operator.
	ErrNilOperator = errors.New("solver: operator is nil")

	// ErrPeerFailed is returned on ranks that were healthy while a peer
	// failed the same collective step.
	ErrPeerFailed = errors.New("solver: peer rank failed")
)

// ConvergenceError reports a solve that hit the iteration cap (or produced
// a non-finite residual) without meeting the tolerance. It is recoverable at
// the driver level, e.g. by retrying with a smaller time step.
type ConvergenceError struct {
	Iterations int
	Residual   float64
	Tolerance  float64
}

// Error implements error.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("solver: residual %.3e > tol %.1e after %d iterations", e.Residual, e.Tolerance, e.Iterations)
}

// Unwrap lets errors.Is(err, ErrConvergence) match.
func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// Comm is the slice of distributed state the solver needs. Every method is
// collective. *halo.Rank satisfies it.
type Comm interface {
	// GhostExchange overwrites ghost slots with their owners' values.
	GhostExchange(field []float64)
	// GhostAccumulate adds ghost slots into their owners and zeroes them.
	GhostAccumulate(field []float64)
	// AllReduceSum returns Σ v over ranks, identical on every rank.
	AllReduceSum(v float64) float64
}

// Local is the Comm of a single unpartitioned problem.
type Local struct{}

// GhostExchange is a no-op: there are no ghosts.
func (Local) GhostExchange([]float64) {}

// GhostAccumulate is a no-op: there are no ghosts.
func (Local) GhostAccumulate([]float64) {}

// AllReduceSum returns v.
func (Local) AllReduceSum(v float64) float64 { return v }

// Orientation selects which system a Problem solves.
type Orientation int

const (
	// Accumulate solves Aᵀx = b: donors push into receivers (discharge).
	Accumulate Orientation = iota
	// Transport solves A x = b: receivers feed donors (implicit erosion).
	Transport
)

// String returns the orientation name.
func (o Orientation) String() string {
	switch o {
	case Accumulate:
		return "accumulate"
	case Transport:
		return "transport"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Problem is one partition's share of a distributed routing system.
//
// A has one row per owned node and one column per local node (owned then
// ghost); only routing entries A[i,j] with j a receiver of i are off the
// diagonal. Order lists the owned rows donors first.
type Problem struct {
	A           *sparse.CSR
	Order       []int
	Orientation Orientation
}

// Result is a converged solve.
type Result struct {
	X          []float64 // owned solution
	Iterations int       // Richardson iterations performed (0 if warm start already converged)
	Residual   float64   // final relative (or absolute when ‖b‖ = 0) residual
}

// Defaults.
const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 500
	DefaultOmega         = 1.0
)

const (
	panicTolerance = "solver: WithTolerance: tol must be finite and > 0"
	panicMaxIter   = "solver: WithMaxIterations: n must be ≥ 1"
	panicOmega     = "solver: WithOmega: omega must lie in (0, 2)"
)

// Options configures Solve.
type Options struct {
	Tolerance     float64
	MaxIterations int
	Omega         float64 // Richardson relaxation factor
}

// Option represents a functional option for configuring Solve.
type Option func(*Options)

// WithTolerance sets the residual tolerance. Panics unless tol is finite and > 0.
func WithTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		panic(panicTolerance)
	}

	return func(o *Options) { o.Tolerance = tol }
}

// WithMaxIterations caps the Richardson iterations. Panics if n < 1.
func WithMaxIterations(n int) Option {
	if n < 1 {
		panic(panicMaxIter)
	}

	return func(o *Options) { o.MaxIterations = n }
}

// WithOmega sets the relaxation factor. Panics outside (0, 2).
func WithOmega(omega float64) Option {
	if math.IsNaN(omega) || omega <= 0 || omega >= 2 {
		panic(panicOmega)
	}

	return func(o *Options) { o.Omega = omega }
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Omega:         DefaultOmega,
	}
}
