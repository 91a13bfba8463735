// SPDX-License-Identifier: MIT

// Package pitfill implements priority-flood depression filling with an
// ε-increment on unstructured meshes.
//
// The flood grows inward from the outlets of the domain (land next to deep
// ocean, plus the open mesh boundary) in increasing order of water level.
// A node reached from below its own elevation keeps its elevation; a node
// reached from above is a fill event and is lifted to the level plus ε, so
// the resulting surface has a strictly descending path from every node to
// an outlet and no zero-gradient plateaus inside former depressions.
//
// Complexity:
//
//   - Time:  O((V + E) log V). Each node is pushed and popped once.
//   - Space: O(V).
//
// Notes on implementation choices:
//
//   - Nodes are closed when pushed, not when popped, so each node enters the
//     heap exactly once and its pit label is fixed at push time.
//   - Heap ties are broken by node id, which makes the flood order, and so
//     pit labels and outlets, reproducible.
//   - Pits reached from two entry points are merged with a union-find; the
//     entry point with the lower spill level (then lower id) stays outlet.
//   - The fill is serial by nature. The engine runs it on one coordinating
//     rank over the gathered global field.
package pitfill

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/mesh"
)

// Fill returns the depressionless surface of elevation on m and its pit table.
//
// Preconditions and validation (in order):
//  1. m must be non-nil (ErrNilMesh).
//  2. len(elevation) == m.Len() (ErrLengthMismatch).
//  3. every elevation and seaLevel must be finite (ErrInvalidElevation).
//
// Options customization:
//
//   - WithEpsilon(eps):        fill-chain increment.
//   - WithOceanMargin(margin): nodes below seaLevel − margin are deep ocean.
//   - WithOpenBoundary(bool):  whether boundary nodes act as outlets.
func Fill(m *mesh.Mesh, elevation []float64, seaLevel float64, opts ...Option) (*Result, error) {
	// 1) Build options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}

	// 2) Validate inputs.
	if m == nil {
		return nil, ErrNilMesh
	}
	if len(elevation) != m.Len() {
		return nil, fmt.Errorf("%w: len=%d nodes=%d", ErrLengthMismatch, len(elevation), m.Len())
	}
	if math.IsNaN(seaLevel) || math.IsInf(seaLevel, 0) {
		return nil, fmt.Errorf("%w: sea level %g", ErrInvalidElevation, seaLevel)
	}
	for i, z := range elevation {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, fmt.Errorf("%w: node %d elevation %g", ErrInvalidElevation, i, z)
		}
	}

	// 3) Run.
	n := m.Len()
	r := &runner{
		m:      m,
		cfg:    cfg,
		deep:   seaLevel - cfg.OceanMargin,
		raw:    elevation,
		filled: make([]float64, n),
		closed: make([]bool, n),
		label:  make([]int, n),
		pq:     make(floodPQ, 0, n),
	}
	for i := range r.label {
		r.label[i] = NoPit
	}
	r.seed()
	r.flood()

	return r.finish(), nil
}

// runner holds the mutable state of one Fill.
type runner struct {
	m      *mesh.Mesh
	cfg    Options
	deep   float64   // deep-ocean threshold
	raw    []float64 // input elevation, read-only
	filled []float64 // output surface
	closed []bool    // pushed (or deep ocean)
	label  []int     // raw pit record per node, NoPit if not raised
	recs   []pitRec  // raw pit records, merged through parent
	pq     floodPQ
}

// pitRec is a pit record before merging and compaction.
type pitRec struct {
	parent int     // union-find parent
	outlet int     // spill node id
	level  float64 // spill node filled elevation
}

// seed closes deep-ocean nodes and pushes the outlets of the domain.
func (r *runner) seed() {
	heap.Init(&r.pq)
	n := r.m.Len()
	var i, v int
	for i = 0; i < n; i++ {
		if r.raw[i] < r.deep {
			r.closed[i] = true
			r.filled[i] = r.raw[i]
		}
	}
	for i = 0; i < n; i++ {
		if r.closed[i] {
			continue
		}
		outlet := r.cfg.OpenBoundary && r.m.Boundary(i)
		for _, v = range r.m.Neighbors(i) {
			if r.raw[v] < r.deep {
				outlet = true
				break
			}
		}
		if outlet {
			r.push(i, r.raw[i])
		}
	}
}

// flood drains the heap; when it empties with nodes still unreached (a
// component with no outlet), the lowest unreached node becomes an outlet.
func (r *runner) flood() {
	for {
		for r.pq.Len() > 0 {
			it := heap.Pop(&r.pq).(floodItem)
			r.visit(it.id, it.level)
		}
		low := -1
		for i, c := range r.closed {
			if !c && (low < 0 || r.raw[i] < r.raw[low]) {
				low = i
			}
		}
		if low < 0 {
			return
		}
		r.push(low, r.raw[low])
	}
}

// visit finalises node c at water level t and expands its neighbours.
func (r *runner) visit(c int, t float64) {
	r.filled[c] = math.Max(r.raw[c], t)

	var v int
	for _, v = range r.m.Neighbors(c) {
		if r.closed[v] {
			// Two raised regions touching belong to one depression.
			if r.label[c] != NoPit && r.label[v] != NoPit {
				r.union(r.label[c], r.label[v])
			}
			continue
		}
		if r.raw[v] < t {
			// Fill event: v joins c's pit, or opens a pit spilling over c.
			if r.label[c] != NoPit {
				r.label[v] = r.label[c]
			} else {
				r.label[v] = r.open(c)
			}
			r.push(v, t+r.cfg.Epsilon)

			continue
		}
		r.push(v, r.raw[v])
	}
}

func (r *runner) push(id int, level float64) {
	r.closed[id] = true
	heap.Push(&r.pq, floodItem{id: id, level: level})
}

// open starts a new pit record spilling over node c.
func (r *runner) open(c int) int {
	id := len(r.recs)
	r.recs = append(r.recs, pitRec{parent: id, outlet: c, level: r.filled[c]})

	return id
}

func (r *runner) find(a int) int {
	for r.recs[a].parent != a {
		r.recs[a].parent = r.recs[r.recs[a].parent].parent
		a = r.recs[a].parent
	}

	return a
}

// union merges two pit records; the lower spill (then lower id) wins.
func (r *runner) union(a, b int) {
	a, b = r.find(a), r.find(b)
	if a == b {
		return
	}
	ra, rb := r.recs[a], r.recs[b]
	if rb.level < ra.level || (rb.level == ra.level && rb.outlet < ra.outlet) {
		a, b = b, a
	}
	r.recs[b].parent = a
}

// finish compacts merged records into dense ids (by first member id) and
// accumulates volumes.
func (r *runner) finish() *Result {
	n := r.m.Len()
	res := &Result{Filled: r.filled, PitID: make([]int, n)}
	dense := make(map[int]int)
	for i := 0; i < n; i++ {
		if r.label[i] == NoPit {
			res.PitID[i] = NoPit
			continue
		}
		root := r.find(r.label[i])
		id, ok := dense[root]
		if !ok {
			id = len(res.Pits)
			dense[root] = id
			res.Pits = append(res.Pits, Pit{ID: id, Outlet: r.recs[root].outlet})
		}
		res.PitID[i] = id
		res.Pits[id].Members++
		res.Pits[id].Volume += (r.filled[i] - r.raw[i]) * r.m.Area(i)
	}

	return res
}

// floodItem is a heap entry: node id and the water level it was reached at.
type floodItem struct {
	id    int
	level float64
}

// floodPQ is a min-heap of floodItem ordered by level, then id.
type floodPQ []floodItem

// Len returns the number of items in the heap.
func (pq floodPQ) Len() int { return len(pq) }

// Less orders by level ascending, ties by lower id.
func (pq floodPQ) Less(i, j int) bool {
	if pq[i].level != pq[j].level {
		return pq[i].level < pq[j].level
	}

	return pq[i].id < pq[j].id
}

// Swap swaps two elements in the heap.
func (pq floodPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

// Push adds x onto the heap. Called by heap.Push.
func (pq *floodPQ) Push(x interface{}) { *pq = append(*pq, x.(floodItem)) }

// Pop removes and returns the last element. Called by heap.Pop.
func (pq *floodPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
