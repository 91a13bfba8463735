// SPDX-License-Identifier: MIT

package mesh

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Connectivity selects neighbour connectivity: orthogonal (Conn4) or
// including diagonals (Conn8).
type Connectivity int

const (
	// Conn4 uses 4-directional connectivity: N, E, S, W.
	Conn4 Connectivity = iota
	// Conn8 uses 8-directional connectivity: N, NE, E, SE, S, SW, W, NW.
	Conn8
)

// Fixed neighbour offsets, {dx, dy}.
var (
	offsets4 = [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	offsets8 = [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
)

// NewGrid builds a regular rows×cols mesh with the given node spacing.
// Node (x, y) gets id y*cols + x (row-major) and position (x·spacing, y·spacing).
// Every cell has area spacing²; cells on the outer ring are open boundary.
//
// Returns ErrEmptyMesh if rows or cols < 1, ErrBadSpacing for a bad spacing.
// Complexity: O(rows×cols×d) time and memory.
func NewGrid(rows, cols int, spacing float64, conn Connectivity) (*Mesh, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("NewGrid: rows=%d cols=%d: %w", rows, cols, ErrEmptyMesh)
	}
	if math.IsNaN(spacing) || math.IsInf(spacing, 0) || spacing <= 0 {
		return nil, fmt.Errorf("NewGrid: spacing=%g: %w", spacing, ErrBadSpacing)
	}

	offs := offsets4
	if conn == Conn8 {
		offs = offsets8
	}

	n := rows * cols
	points := make([]orb.Point, n)
	area := make([]float64, n)
	boundary := make([]bool, n)
	neighbors := make([][]int, n)

	var x, y, id int
	for y = 0; y < rows; y++ {
		for x = 0; x < cols; x++ {
			id = y*cols + x
			points[id] = orb.Point{float64(x) * spacing, float64(y) * spacing}
			area[id] = spacing * spacing
			boundary[id] = x == 0 || y == 0 || x == cols-1 || y == rows-1

			row := make([]int, 0, len(offs))
			for _, d := range offs {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= cols || ny >= rows {
					continue
				}
				row = append(row, ny*cols+nx)
			}
			neighbors[id] = row
		}
	}

	return New(points, area, boundary, neighbors)
}

// GridIndex maps (x, y) on a grid with cols columns to its node id.
func GridIndex(cols, x, y int) int { return y*cols + x }
