// SPDX-License-Identifier: MIT

package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Mesh is an immutable surface mesh. Node ids are the indices 0..Len()-1.
// Adjacency is stored in compressed-row form: the neighbours of node i are
// adj[offsets[i]:offsets[i+1]], sorted ascending.
type Mesh struct {
	points   []orb.Point // planar node positions
	area     []float64   // cell area per node
	boundary []bool      // open-boundary flag per node
	offsets  []int       // len Len()+1
	adj      []int       // concatenated neighbour lists
}

// New builds a Mesh from node positions, cell areas, boundary flags and
// neighbour lists. boundary may be nil (no open boundary). Inputs are copied.
//
// Stage 1 (Validate): lengths, areas, neighbours, symmetry, edge lengths.
// Stage 2 (Prepare):  sort each neighbour list and pack into CSR.
//
// Complexity: O(E log d).
func New(points []orb.Point, area []float64, boundary []bool, neighbors [][]int) (*Mesh, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrEmptyMesh
	}
	if len(area) != n || len(neighbors) != n || (boundary != nil && len(boundary) != n) {
		return nil, fmt.Errorf("New: %d points, %d areas, %d neighbour lists: %w",
			n, len(area), len(neighbors), ErrLengthMismatch)
	}

	m := &Mesh{
		points:   append([]orb.Point(nil), points...),
		area:     append([]float64(nil), area...),
		boundary: make([]bool, n),
		offsets:  make([]int, n+1),
	}
	if boundary != nil {
		copy(m.boundary, boundary)
	}

	var i, j int
	for i = 0; i < n; i++ {
		if a := area[i]; math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 {
			return nil, fmt.Errorf("New: node %d area=%g: %w", i, a, ErrBadArea)
		}
		m.offsets[i+1] = m.offsets[i] + len(neighbors[i])
	}

	m.adj = make([]int, 0, m.offsets[n])
	for i = 0; i < n; i++ {
		row := append([]int(nil), neighbors[i]...)
		sort.Ints(row)
		for k, v := range row {
			if v < 0 || v >= n || v == i || (k > 0 && row[k-1] == v) {
				return nil, fmt.Errorf("New: node %d neighbour %d: %w", i, v, ErrBadNeighbor)
			}
		}
		m.adj = append(m.adj, row...)
	}

	// Symmetry: every i→j must have j→i. Edges must have a finite,
	// positive length; slopes divide by it.
	for i = 0; i < n; i++ {
		for _, j = range m.Neighbors(i) {
			if !m.HasEdge(j, i) {
				return nil, fmt.Errorf("New: %d→%d without %d→%d: %w", i, j, j, i, ErrAsymmetric)
			}
			if d := m.Distance(i, j); math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
				return nil, fmt.Errorf("New: edge %d–%d length=%g: %w", i, j, d, ErrDegenerateEdge)
			}
		}
	}

	return m, nil
}

// Len returns the number of nodes.
func (m *Mesh) Len() int { return len(m.points) }

// Point returns the planar position of node i.
func (m *Mesh) Point(i int) orb.Point { return m.points[i] }

// Area returns the cell area of node i.
func (m *Mesh) Area(i int) float64 { return m.area[i] }

// Areas returns a copy of all cell areas.
func (m *Mesh) Areas() []float64 { return append([]float64(nil), m.area...) }

// Boundary reports whether node i lies on the open domain boundary.
func (m *Mesh) Boundary(i int) bool { return m.boundary[i] }

// Neighbors returns the ascending neighbour ids of node i.
// The returned slice aliases internal storage and must not be modified.
func (m *Mesh) Neighbors(i int) []int { return m.adj[m.offsets[i]:m.offsets[i+1]] }

// HasEdge reports whether j is a neighbour of i. O(log d).
func (m *Mesh) HasEdge(i, j int) bool {
	row := m.Neighbors(i)
	k := sort.SearchInts(row, j)

	return k < len(row) && row[k] == j
}

// Distance returns the planar distance between nodes i and j.
func (m *Mesh) Distance(i, j int) float64 {
	return planar.Distance(m.points[i], m.points[j])
}

// Bound returns the bounding box of all node positions.
func (m *Mesh) Bound() orb.Bound {
	return orb.MultiPoint(m.points).Bound()
}

// Edges returns the number of directed adjacency entries (2× undirected edges).
func (m *Mesh) Edges() int { return len(m.adj) }
