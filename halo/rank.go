// SPDX-License-Identifier: MIT

package halo

import (
	"fmt"

	"github.com/katalvlaran/drainage/mesh"
)

// coordinator is the rank that hosts serial, globally gathered work.
const coordinator = 0

// Rank is one worker's handle on the World. Collective methods must be
// called by every rank in the same order; passing a field of the wrong
// length is a programmer error and panics.
type Rank struct {
	w         *World
	part      *mesh.Part
	elevation []float64 // committed local elevation, owned then ghost
}

// ID returns the rank index.
func (r *Rank) ID() int { return r.part.Rank }

// Size returns the number of ranks.
func (r *Rank) Size() int { return len(r.w.ranks) }

// Coordinator reports whether this rank hosts the serial stages.
func (r *Rank) Coordinator() bool { return r.part.Rank == coordinator }

// Topology returns this rank's partition view.
func (r *Rank) Topology() *mesh.Part { return r.part }

// GlobalMesh returns the full mesh on the coordinator and nil elsewhere.
func (r *Rank) GlobalMesh() *mesh.Mesh {
	if !r.Coordinator() {
		return nil
	}

	return r.w.mesh
}

// LocalElevation returns a copy of the committed local elevation.
func (r *Rank) LocalElevation() []float64 {
	return append([]float64(nil), r.elevation...)
}

// SetLocalElevation commits a new local elevation (owned and ghost).
func (r *Rank) SetLocalElevation(v []float64) error {
	if len(v) != r.part.Len() {
		return fmt.Errorf("SetLocalElevation: len=%d want %d: %w", len(v), r.part.Len(), ErrLengthMismatch)
	}
	copy(r.elevation, v)

	return nil
}

// CellArea returns a copy of the local cell areas.
func (r *Rank) CellArea() []float64 { return r.part.Areas() }

// GhostExchange overwrites every ghost slot of field with its owner's value.
func (r *Rank) GhostExchange(field []float64) {
	r.mustLen(field, r.part.Len())
	p, w := r.part, r.w

	copy(w.global[p.Lo:p.Hi], field[:p.Owned()])
	w.bar.wait()
	for l := p.Owned(); l < p.Len(); l++ {
		field[l] = w.global[p.Global(l)]
	}
	w.bar.wait()
}

// GhostAccumulate adds every ghost slot of field into its owner's slot on
// the owning rank, then zeroes the ghost slots.
func (r *Rank) GhostAccumulate(field []float64) {
	r.mustLen(field, r.part.Len())
	p, w, id := r.part, r.w, r.ID()

	w.ghostBuf[id] = append(w.ghostBuf[id][:0], field[p.Owned():]...)
	w.bar.wait()
	for _, ref := range w.incoming[id] {
		field[ref.local] += w.ghostBuf[ref.rank][ref.slot]
	}
	for l := p.Owned(); l < p.Len(); l++ {
		field[l] = 0
	}
	w.bar.wait()
}

// GlobalGather assembles the owned slots of field from every rank into a
// global vector returned on the coordinator; other ranks receive nil.
func (r *Rank) GlobalGather(field []float64) []float64 {
	r.mustLen(field, r.part.Len())
	p, w := r.part, r.w

	copy(w.global[p.Lo:p.Hi], field[:p.Owned()])
	w.bar.wait()
	var out []float64
	if r.Coordinator() {
		out = append([]float64(nil), w.global...)
	}
	w.bar.wait()

	return out
}

// Broadcast distributes the coordinator's global vector to every rank in
// local (owned + ghost) layout. Non-coordinator ranks may pass nil.
func (r *Rank) Broadcast(field []float64) []float64 {
	p, w := r.part, r.w
	if r.Coordinator() {
		r.mustLen(field, w.mesh.Len())
		copy(w.global, field)
	}
	w.bar.wait()
	out := make([]float64, p.Len())
	for l, g := range p.GlobalIDs() {
		out[l] = w.global[g]
	}
	w.bar.wait()

	return out
}

// AllReduceSum returns the sum of v over all ranks, added in rank order so
// every rank sees the bit-identical result.
func (r *Rank) AllReduceSum(v float64) float64 {
	w := r.w
	w.scalars[r.ID()] = v
	w.bar.wait()
	sum := 0.0
	for _, s := range w.scalars {
		sum += s
	}
	w.bar.wait()

	return sum
}

func (r *Rank) mustLen(field []float64, n int) {
	if len(field) != n {
		panic(fmt.Errorf("rank %d: len=%d want %d: %w", r.ID(), len(field), n, ErrLengthMismatch))
	}
}
