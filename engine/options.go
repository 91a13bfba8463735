// SPDX-License-Identifier: MIT

package engine

import (
	"go.uber.org/zap"

	"github.com/katalvlaran/drainage/erosion"
	"github.com/katalvlaran/drainage/pitfill"
	"github.com/katalvlaran/drainage/solver"
)

// Options configures an Engine.
type Options struct {
	Logger  *zap.Logger
	Fill    []pitfill.Option
	Solver  []solver.Option
	Erosion []erosion.Option
}

// Option represents a functional option for configuring an Engine.
type Option func(*Options)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithFillOptions forwards options to the depression filler.
func WithFillOptions(opts ...pitfill.Option) Option {
	return func(o *Options) { o.Fill = append(o.Fill, opts...) }
}

// WithSolverOptions forwards options to both discharge solves.
func WithSolverOptions(opts ...solver.Option) Option {
	return func(o *Options) { o.Solver = append(o.Solver, opts...) }
}

// WithErosionOptions forwards options to the erosion solve.
func WithErosionOptions(opts ...erosion.Option) Option {
	return func(o *Options) { o.Erosion = append(o.Erosion, opts...) }
}

// DefaultOptions returns a silent engine with package defaults everywhere.
func DefaultOptions() Options {
	return Options{Logger: zap.NewNop()}
}
