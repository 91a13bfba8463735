// SPDX-License-Identifier: MIT

// Package solver implements a block-Jacobi preconditioned Richardson
// iteration for distributed flow-routing systems.
//
// The global operator A = I − Σ W is triangular up to a permutation because
// routing is strictly downslope. Each partition preconditions with its own
// diagonal block, which it inverts exactly by one triangular sweep along the
// donors-first order. With one partition the preconditioner is A itself and
// a cold solve converges in a single iteration; with P partitions the error
// only crosses partition boundaries, so the iteration terminates after at
// most (boundary crossings along the longest flow path + 1) sweeps.
//
// Every iteration is collective: ghost exchange (Transport) or ghost
// accumulation (Accumulate) of the operator product, then one AllReduceSum
// for the residual norm. All ranks see the same norm, so they stop on the
// same iteration.
package solver

import (
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/sparse"
)

// Solve runs the preconditioned Richardson iteration
//
//	x ← x + ω · P⁻¹ (b − Op·x),   Op = Aᵀ (Accumulate) or A (Transport)
//
// starting from warm (owned values) or zero when warm is nil.
//
// Stage 1: validate locally, then agree across ranks.
// Stage 2: iterate until ‖b − Op·x‖ ≤ tol·‖b‖ (absolute when ‖b‖ = 0).
//
// Returns *ConvergenceError (matching ErrConvergence) after MaxIterations.
// Must be called by every rank with its own Problem.
func Solve(comm Comm, p Problem, rhs, warm []float64, opts ...Option) (*Result, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Stage 1: validation, agreed so no rank enters the loop alone.
	if err := Agree(comm, validate(p, rhs, warm)); err != nil {
		return nil, err
	}

	s := newState(p)
	if warm != nil {
		copy(s.x, warm)
	}

	bn := math.Sqrt(comm.AllReduceSum(dot(rhs, rhs)))
	scale := bn
	if scale == 0 {
		scale = 1
	}

	// Stage 2: iterate.
	var it int
	for it = 0; ; it++ {
		s.residual(comm, rhs)
		res := math.Sqrt(comm.AllReduceSum(dot(s.r, s.r))) / scale
		if res <= cfg.Tolerance {
			return &Result{X: append([]float64(nil), s.x[:s.n]...), Iterations: it, Residual: res}, nil
		}
		if it == cfg.MaxIterations || math.IsNaN(res) || math.IsInf(res, 0) {
			return nil, &ConvergenceError{Iterations: it, Residual: res, Tolerance: cfg.Tolerance}
		}
		s.precondition()
		for i := 0; i < s.n; i++ {
			s.x[i] += cfg.Omega * s.z[i]
		}
	}
}

// Agree makes a local failure collective: every rank learns whether any rank
// failed. It returns err on the failing rank, ErrPeerFailed on the others,
// and nil when all ranks succeeded.
func Agree(comm Comm, err error) error {
	flag := 0.0
	if err != nil {
		flag = 1
	}
	if comm.AllReduceSum(flag) == 0 {
		return nil
	}
	if err != nil {
		return err
	}

	return ErrPeerFailed
}

func validate(p Problem, rhs, warm []float64) error {
	if p.A == nil {
		return ErrNilOperator
	}
	n := p.A.Rows()
	if len(rhs) != n || len(p.Order) != n || (warm != nil && len(warm) != n) {
		return fmt.Errorf("%w: rows=%d rhs=%d order=%d warm=%d",
			ErrDimensionMismatch, n, len(rhs), len(p.Order), len(warm))
	}
	for i := 0; i < n; i++ {
		if p.A.Diag(i) == 0 {
			return fmt.Errorf("row %d: %w", i, sparse.ErrZeroDiagonal)
		}
	}

	return nil
}

// state is one rank's iteration workspace.
type state struct {
	p   Problem
	n   int       // owned rows
	x   []float64 // local solution, owned then ghost
	y   []float64 // operator product, local layout
	r   []float64 // owned residual
	z   []float64 // owned correction
	acc []float64 // owned sweep accumulator (Accumulate)
}

func newState(p Problem) *state {
	n, cols := p.A.Rows(), p.A.Cols()

	return &state{
		p:   p,
		n:   n,
		x:   make([]float64, cols),
		y:   make([]float64, cols),
		r:   make([]float64, n),
		z:   make([]float64, n),
		acc: make([]float64, n),
	}
}

// residual sets r = b − Op·x over owned rows.
func (s *state) residual(comm Comm, b []float64) {
	switch s.p.Orientation {
	case Transport:
		comm.GhostExchange(s.x)
		// Lengths were validated; MulVec cannot fail here.
		_ = s.p.A.MulVec(s.x, s.y[:s.n])
	default:
		for i := range s.y {
			s.y[i] = 0
		}
		_ = s.p.A.MulTransVecAdd(s.x[:s.n], s.y)
		comm.GhostAccumulate(s.y)
	}
	for i := 0; i < s.n; i++ {
		s.r[i] = b[i] - s.y[i]
	}
}

// precondition solves P z = r exactly, P = the owned diagonal block of Op.
func (s *state) precondition() {
	a, n := s.p.A, s.n
	var i, k int
	switch s.p.Orientation {
	case Transport:
		// Receivers first: walk Order backwards, pulling finished receivers.
		for k = len(s.p.Order) - 1; k >= 0; k-- {
			i = s.p.Order[k]
			sum := s.r[i]
			cols, vals := a.Row(i)
			for e, c := range cols {
				if c != i && c < n {
					sum -= vals[e] * s.z[c]
				}
			}
			s.z[i] = sum / a.Diag(i)
		}
	default:
		// Donors first: finish i, then push its contribution to receivers.
		for i = range s.acc {
			s.acc[i] = 0
		}
		for _, i = range s.p.Order {
			s.z[i] = (s.r[i] - s.acc[i]) / a.Diag(i)
			cols, vals := a.Row(i)
			for e, j := range cols {
				if j != i && j < n {
					s.acc[j] += vals[e] * s.z[i]
				}
			}
		}
	}
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}

	return s
}
