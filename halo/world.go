// SPDX-License-Identifier: MIT

package halo

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/drainage/mesh"
)

// ghostRef locates one ghost copy of an owned node on a peer rank.
type ghostRef struct {
	rank  int // rank holding the ghost copy
	slot  int // index into that rank's ghost block
	local int // owner-side local index
}

// World owns the shared scratch space and barrier for a set of ranks.
type World struct {
	mesh     *mesh.Mesh
	parts    []*mesh.Part
	ranks    []*Rank
	bar      *barrier
	global   []float64   // gather/broadcast/exchange scratch, len N
	ghostBuf [][]float64 // per-rank published ghost contributions
	scalars  []float64   // per-rank reduction inputs
	incoming [][]ghostRef
}

// NewWorld partitions m into parts blocks and seeds every rank's local
// elevation (owned and ghost) from the global elevation field.
//
// Errors: mesh.ErrBadPartitionCount, ErrLengthMismatch.
func NewWorld(m *mesh.Mesh, parts int, elevation []float64) (*World, error) {
	if len(elevation) != m.Len() {
		return nil, fmt.Errorf("NewWorld: len(elevation)=%d nodes=%d: %w", len(elevation), m.Len(), ErrLengthMismatch)
	}
	ps, err := mesh.Partition(m, parts)
	if err != nil {
		return nil, fmt.Errorf("NewWorld: %w", err)
	}

	w := &World{
		mesh:     m,
		parts:    ps,
		ranks:    make([]*Rank, parts),
		bar:      newBarrier(parts),
		global:   make([]float64, m.Len()),
		ghostBuf: make([][]float64, parts),
		scalars:  make([]float64, parts),
		incoming: make([][]ghostRef, parts),
	}

	// Routing table for reverse scatter, built in (rank, slot) order so
	// accumulation order is fixed.
	for q, p := range ps {
		for s := 0; s < p.Ghosts(); s++ {
			g := p.Global(p.Owned() + s)
			owner := mesh.BlockOwner(m.Len(), parts, g)
			l, _ := ps[owner].Local(g)
			w.incoming[owner] = append(w.incoming[owner], ghostRef{rank: q, slot: s, local: l})
		}
	}

	for r, p := range ps {
		local := make([]float64, p.Len())
		for l, g := range p.GlobalIDs() {
			local[l] = elevation[g]
		}
		w.ranks[r] = &Rank{w: w, part: p, elevation: local}
	}

	return w, nil
}

// Size returns the number of ranks.
func (w *World) Size() int { return len(w.ranks) }

// Rank returns rank r.
func (w *World) Rank(r int) *Rank { return w.ranks[r] }

// Mesh returns the global mesh.
func (w *World) Mesh() *mesh.Mesh { return w.mesh }

// Elevation assembles the committed global elevation from the owners.
// Not a collective; call it outside Run.
func (w *World) Elevation() []float64 {
	out := make([]float64, w.mesh.Len())
	for _, r := range w.ranks {
		copy(out[r.part.Lo:r.part.Hi], r.elevation[:r.part.Owned()])
	}

	return out
}

// Run executes fn once per rank, each on its own goroutine, and returns the
// root-cause error: the lowest rank's error that is not ErrBroken, else the
// lowest rank's error. A rank that errors or panics breaks the barrier so
// peers blocked in a collective unwind with ErrBroken rather than hang.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, r *Rank) error) error {
	w.bar.reset()
	errs := make([]error, len(w.ranks))
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range w.ranks {
		r := r
		g.Go(func() (err error) {
			defer func() { errs[r.ID()] = err }()
			defer func() {
				if rec := recover(); rec != nil {
					if e, ok := rec.(error); ok && errors.Is(e, ErrBroken) {
						err = fmt.Errorf("rank %d: %w", r.ID(), e)
					} else {
						err = fmt.Errorf("rank %d: panic: %v", r.ID(), rec)
					}
					w.bar.breakAll()
				}
			}()
			if err = fn(gctx, r); err != nil {
				w.bar.breakAll()
			}

			return err
		})
	}
	first := g.Wait()
	if first == nil {
		return nil
	}
	for _, err := range errs {
		if err != nil && !errors.Is(err, ErrBroken) {
			return err
		}
	}

	return first
}
