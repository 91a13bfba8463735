// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"math"

	"github.com/katalvlaran/drainage/config"
	"github.com/katalvlaran/drainage/mesh"
)

// buildTerrain returns the grid mesh and a coastal initial surface: the
// first OceanRows rows sit OceanDepth below sea level, the rest rise inland
// with a sinusoidal relief that leaves closed depressions for the filler.
func buildTerrain(c *config.Config) (*mesh.Mesh, []float64, error) {
	m, err := mesh.NewGrid(c.Mesh.Rows, c.Mesh.Cols, c.Mesh.Spacing, c.Conn())
	if err != nil {
		return nil, nil, fmt.Errorf("terrain: %w", err)
	}

	t := c.Terrain
	sea := c.Forcing.SeaLevel
	coast := float64(t.OceanRows) * c.Mesh.Spacing
	k := 2 * math.Pi / t.BumpWavelength

	z := make([]float64, m.Len())
	for i := range z {
		p := m.Point(i)
		if p[1] < coast {
			z[i] = sea - t.OceanDepth
			continue
		}
		inland := p[1] - coast + c.Mesh.Spacing
		z[i] = sea + t.Slope*inland + t.BumpAmplitude*math.Sin(k*p[0])*math.Sin(k*inland)
	}

	return m, z, nil
}

// relief returns the min and max of z.
func relief(z []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range z {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	return lo, hi
}
