// SPDX-License-Identifier: MIT

// Package flowdir resolves per-node downslope receivers and slope-weighted
// flow partitions on a partitioned mesh.
//
// For every owned node the resolver keeps up to k strictly lower neighbours,
// lowest first (ties by lower global id), and weights them in proportion to
// (e_i − e_j) / d_ij, normalised so the kept weights sum to 1. A node with no
// strictly lower neighbour is a pit point: it routes to itself with weight 0.
// Ocean nodes (elevation below sea level) route to themselves by policy,
// which terminates flow at the coast without special cases downstream.
//
// Rows are produced for owned nodes only; neighbour elevations are read from
// ghost slots, so a single halo layer is sufficient.
//
// Complexity: O(Σ deg · log deg) per call, O(N·k) output.
package flowdir

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors returned by Resolve.
var (
	// ErrBadFanout indicates a flow-direction fan-out below 1.
	ErrBadFanout = errors.New("flowdir: fan-out must be ≥ 1")

	// ErrLengthMismatch indicates an elevation field not matching the topology.
	ErrLengthMismatch = errors.New("flowdir: elevation length does not match topology")
)

// Topology is the partition view the resolver needs. *mesh.Part satisfies it.
type Topology interface {
	// Owned is the number of owned nodes; they occupy local ids [0, Owned).
	Owned() int
	// Len is owned plus ghost nodes.
	Len() int
	// Global maps a local id to its global id.
	Global(l int) int
	// Neighbors lists local neighbour ids of owned node l.
	Neighbors(l int) []int
	// Distances is parallel to Neighbors.
	Distances(l int) []float64
}

// ReceiverSet holds K receiver slots per owned node in flat row-major form:
// slot s of node i lives at index i*K+s. Receivers are local ids.
type ReceiverSet struct {
	K      int
	Rcv    []int
	Dist   []float64
	Weight []float64

	// Sink marks nodes whose weights are all zero: pit points and ocean.
	Sink []bool
	// Ocean marks nodes below sea level.
	Ocean []bool
	// Order lists owned nodes donors first: descending elevation, ties by
	// global id. Every receiver appears after all of its donors.
	Order []int
}

// Len returns the number of owned rows.
func (rs *ReceiverSet) Len() int { return len(rs.Sink) }

// Receivers returns the receiver ids and weights of node i (aliased).
func (rs *ReceiverSet) Receivers(i int) ([]int, []float64) {
	lo, hi := i*rs.K, (i+1)*rs.K

	return rs.Rcv[lo:hi], rs.Weight[lo:hi]
}

// WeightSum returns Σ weights of node i: 1 for routing nodes, 0 for sinks.
func (rs *ReceiverSet) WeightSum(i int) float64 {
	_, w := rs.Receivers(i)
	s := 0.0
	for _, v := range w {
		s += v
	}

	return s
}

// candidate is one strictly lower neighbour under consideration.
type candidate struct {
	local  int
	global int
	elev   float64
	dist   float64
}

// Resolve computes the receiver set of every owned node of topo.
//
// Steps:
//  1. Validate k and the elevation length (owned + ghost).
//  2. For each owned node: ocean → self; else collect strictly lower
//     neighbours, sort by (elevation, global id), keep the first k.
//  3. Weight ∝ drop / distance, normalised; no candidates → pit point.
//  4. Sort owned nodes donors-first into Order.
func Resolve(topo Topology, elevation []float64, seaLevel float64, k int) (*ReceiverSet, error) {
	// 1) Validate.
	if k < 1 {
		return nil, fmt.Errorf("%w: k=%d", ErrBadFanout, k)
	}
	if len(elevation) != topo.Len() {
		return nil, fmt.Errorf("%w: len=%d want %d", ErrLengthMismatch, len(elevation), topo.Len())
	}

	n := topo.Owned()
	rs := &ReceiverSet{
		K:      k,
		Rcv:    make([]int, n*k),
		Dist:   make([]float64, n*k),
		Weight: make([]float64, n*k),
		Sink:   make([]bool, n),
		Ocean:  make([]bool, n),
		Order:  make([]int, n),
	}

	cands := make([]candidate, 0, 8)
	var i, s int
	for i = 0; i < n; i++ {
		base := i * k
		for s = 0; s < k; s++ {
			rs.Rcv[base+s] = i
		}
		rs.Order[i] = i

		// 2a) Ocean routes to itself.
		ei := elevation[i]
		if ei < seaLevel {
			rs.Ocean[i] = true
			rs.Sink[i] = true
			continue
		}

		// 2b) Strictly lower neighbours.
		cands = cands[:0]
		nbr, dist := topo.Neighbors(i), topo.Distances(i)
		for j, v := range nbr {
			if elevation[v] < ei {
				cands = append(cands, candidate{local: v, global: topo.Global(v), elev: elevation[v], dist: dist[j]})
			}
		}
		if len(cands) == 0 {
			rs.Sink[i] = true
			continue
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].elev != cands[b].elev {
				return cands[a].elev < cands[b].elev
			}

			return cands[a].global < cands[b].global
		})
		if len(cands) > k {
			cands = cands[:k]
		}

		// 3) Slope weights.
		total := 0.0
		for s = range cands {
			slope := (ei - cands[s].elev) / cands[s].dist
			rs.Rcv[base+s] = cands[s].local
			rs.Dist[base+s] = cands[s].dist
			rs.Weight[base+s] = slope
			total += slope
		}
		for s = range cands {
			rs.Weight[base+s] /= total
		}
	}

	// 4) Donors first.
	sort.Slice(rs.Order, func(a, b int) bool {
		ia, ib := rs.Order[a], rs.Order[b]
		if elevation[ia] != elevation[ib] {
			return elevation[ia] > elevation[ib]
		}

		return topo.Global(ia) < topo.Global(ib)
	})

	return rs, nil
}
