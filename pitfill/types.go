// SPDX-License-Identifier: MIT

// Package pitfill defines core types and configuration options for the
// priority-flood depression filler.
package pitfill

import (
	"errors"
	"math"
)

// Sentinel errors returned by Fill.
var (
	// ErrNilMesh indicates that a nil *mesh.Mesh was passed to Fill.
	ErrNilMesh = errors.New("pitfill: mesh is nil")

	// ErrLengthMismatch indicates an elevation field not matching the mesh.
	ErrLengthMismatch = errors.New("pitfill: elevation length does not match mesh")

	// ErrInvalidElevation indicates a NaN or ±Inf elevation (or sea level).
	// The field must not be routed: no partial result is returned.
	ErrInvalidElevation = errors.New("pitfill: non-finite elevation")
)

// NoPit marks a node that is not inside any depression.
const NoPit = -1

// Pit is one filled depression.
type Pit struct {
	ID      int     // dense id, 0..len(Pits)-1
	Volume  float64 // Σ (filled − raw) × area over members
	Outlet  int     // global id of the spill node (never itself a member)
	Members int     // number of raised nodes
}

// Result is the outcome of a Fill.
type Result struct {
	Filled []float64 // depressionless surface
	PitID  []int     // pit id per node, NoPit outside depressions
	Pits   []Pit     // indexed by Pit.ID
}

// Raised reports whether node i was lifted by filling.
func (r *Result) Raised(i int) bool { return r.PitID[i] != NoPit }

// Defaults.
const (
	// DefaultEpsilon is the increment added along every fill chain. It must
	// dominate float64 rounding at the working elevations (1e-6 is ~1e7 ulp
	// at 1 km) while staying far below any real gradient.
	DefaultEpsilon = 1e-6

	// DefaultOceanMargin is how far below sea level a node must sit to be
	// treated as deep ocean (flood seed neighbourhood, never modified).
	DefaultOceanMargin = 0.5

	// DefaultOpenBoundary seeds the flood from the mesh's open boundary too.
	DefaultOpenBoundary = true
)

const (
	panicEpsilonInvalid = "pitfill: WithEpsilon: eps must be finite and > 0"
	panicMarginInvalid  = "pitfill: WithOceanMargin: margin must be finite and ≥ 0"
)

// Options configures Fill.
//
// Epsilon      – fill-chain increment, > 0.
// OceanMargin  – deep-ocean depth below sea level, ≥ 0.
// OpenBoundary – whether mesh boundary nodes act as outlets.
type Options struct {
	Epsilon      float64
	OceanMargin  float64
	OpenBoundary bool
}

// Option represents a functional option for configuring Fill.
type Option func(*Options)

// WithEpsilon sets the fill-chain increment. Panics unless eps is finite and > 0.
func WithEpsilon(eps float64) Option {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		panic(panicEpsilonInvalid)
	}

	return func(o *Options) { o.Epsilon = eps }
}

// WithOceanMargin sets the deep-ocean margin. Panics unless margin is finite and ≥ 0.
func WithOceanMargin(margin float64) Option {
	if math.IsNaN(margin) || math.IsInf(margin, 0) || margin < 0 {
		panic(panicMarginInvalid)
	}

	return func(o *Options) { o.OceanMargin = margin }
}

// WithOpenBoundary toggles seeding from mesh boundary nodes.
func WithOpenBoundary(open bool) Option {
	return func(o *Options) { o.OpenBoundary = open }
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Epsilon:      DefaultEpsilon,
		OceanMargin:  DefaultOceanMargin,
		OpenBoundary: DefaultOpenBoundary,
	}
}
