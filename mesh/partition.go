// SPDX-License-Identifier: MIT

package mesh

import (
	"fmt"
	"sort"
)

// Part is one rank's view of a partitioned Mesh.
//
// Local indices 0..Owned()-1 are the owned nodes in ascending global id;
// Owned()..Len()-1 are ghost copies of neighbouring ranks' nodes, also in
// ascending global id. Adjacency is only stored for owned rows; a single halo
// layer is enough for everything the engine reads.
type Part struct {
	Rank int // partition index
	Lo   int // first owned global id
	Hi   int // one past the last owned global id

	global  []int       // local → global
	local   map[int]int // global → local
	area    []float64   // local cell areas
	bnd     []bool      // local open-boundary flags
	offsets []int       // CSR over owned rows, len Owned()+1
	adj     []int       // local neighbour indices, ordered by global id
	dist    []float64   // edge lengths parallel to adj
}

// Owned returns the number of owned nodes.
func (p *Part) Owned() int { return p.Hi - p.Lo }

// Len returns owned + ghost node count.
func (p *Part) Len() int { return len(p.global) }

// Ghosts returns the number of ghost nodes.
func (p *Part) Ghosts() int { return len(p.global) - p.Owned() }

// Global maps a local index to its global id.
func (p *Part) Global(l int) int { return p.global[l] }

// GlobalIDs returns the local→global table. Must not be modified.
func (p *Part) GlobalIDs() []int { return p.global }

// Local maps a global id to its local index, if present on this part.
func (p *Part) Local(g int) (int, bool) {
	l, ok := p.local[g]

	return l, ok
}

// Owns reports whether global id g is owned by this part.
func (p *Part) Owns(g int) bool { return g >= p.Lo && g < p.Hi }

// Area returns the cell area of local node l.
func (p *Part) Area(l int) float64 { return p.area[l] }

// Areas returns a copy of the local cell areas (owned and ghost).
func (p *Part) Areas() []float64 { return append([]float64(nil), p.area...) }

// Boundary reports whether local node l lies on the open domain boundary.
func (p *Part) Boundary(l int) bool { return p.bnd[l] }

// Neighbors returns local neighbour indices of owned node l, ordered by
// ascending global id. The slice aliases internal storage.
func (p *Part) Neighbors(l int) []int { return p.adj[p.offsets[l]:p.offsets[l+1]] }

// Distances returns the edge lengths parallel to Neighbors(l).
func (p *Part) Distances(l int) []float64 { return p.dist[p.offsets[l]:p.offsets[l+1]] }

// Partition splits m into parts contiguous global-id blocks. The first
// Len()%parts blocks receive one extra node. Block ownership is what the
// halo layer uses to route ghost traffic.
//
// Returns ErrBadPartitionCount unless 1 ≤ parts ≤ m.Len().
// Complexity: O(N + E log E).
func Partition(m *Mesh, parts int) ([]*Part, error) {
	n := m.Len()
	if parts < 1 || parts > n {
		return nil, fmt.Errorf("Partition: parts=%d nodes=%d: %w", parts, n, ErrBadPartitionCount)
	}

	out := make([]*Part, parts)
	base, extra := n/parts, n%parts
	lo := 0
	for r := 0; r < parts; r++ {
		size := base
		if r < extra {
			size++
		}
		out[r] = buildPart(m, r, lo, lo+size)
		lo += size
	}

	return out, nil
}

// BlockOwner returns the rank owning global id g under Partition(n, parts).
func BlockOwner(n, parts, g int) int {
	base, extra := n/parts, n%parts
	// The first extra ranks hold base+1 nodes.
	cut := extra * (base + 1)
	if g < cut {
		return g / (base + 1)
	}

	return extra + (g-cut)/base
}

// buildPart assembles the local view of the owned block [lo, hi).
func buildPart(m *Mesh, rank, lo, hi int) *Part {
	owned := hi - lo

	// 1) Collect ghosts: neighbours of owned nodes outside the block.
	seen := make(map[int]struct{})
	ghosts := make([]int, 0)
	var g, v int
	for g = lo; g < hi; g++ {
		for _, v = range m.Neighbors(g) {
			if v >= lo && v < hi {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			ghosts = append(ghosts, v)
		}
	}
	sort.Ints(ghosts)

	// 2) Local ↔ global tables.
	p := &Part{
		Rank:    rank,
		Lo:      lo,
		Hi:      hi,
		global:  make([]int, 0, owned+len(ghosts)),
		local:   make(map[int]int, owned+len(ghosts)),
		offsets: make([]int, owned+1),
	}
	for g = lo; g < hi; g++ {
		p.global = append(p.global, g)
	}
	p.global = append(p.global, ghosts...)
	p.area = make([]float64, len(p.global))
	p.bnd = make([]bool, len(p.global))
	for l, gid := range p.global {
		p.local[gid] = l
		p.area[l] = m.Area(gid)
		p.bnd[l] = m.Boundary(gid)
	}

	// 3) Owned-row adjacency in local indices; order follows global ids.
	for l := 0; l < owned; l++ {
		g = p.global[l]
		for _, v = range m.Neighbors(g) {
			p.adj = append(p.adj, p.local[v])
			p.dist = append(p.dist, m.Distance(g, v))
		}
		p.offsets[l+1] = len(p.adj)
	}

	return p
}
