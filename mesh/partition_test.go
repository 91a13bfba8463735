package mesh_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/drainage/mesh"
)

// TestPartition_Coverage checks that owned blocks tile the mesh exactly and
// ghosts are exactly the off-block neighbours of owned nodes.
func TestPartition_Coverage(t *testing.T) {
	m, err := mesh.NewGrid(5, 7, 1, mesh.Conn8)
	require.NoError(t, err)

	for _, parts := range []int{1, 2, 3, 4, 35} {
		ps, err := mesh.Partition(m, parts)
		require.NoError(t, err)
		require.Len(t, ps, parts)

		owner := make([]int, m.Len())
		for i := range owner {
			owner[i] = -1
		}
		for _, p := range ps {
			for l := 0; l < p.Owned(); l++ {
				g := p.Global(l)
				require.Equal(t, -1, owner[g], "node %d owned twice", g)
				owner[g] = p.Rank
				require.Equal(t, p.Rank, mesh.BlockOwner(m.Len(), parts, g))
			}

			want := map[int]bool{}
			for g := p.Lo; g < p.Hi; g++ {
				for _, v := range m.Neighbors(g) {
					if !p.Owns(v) {
						want[v] = true
					}
				}
			}
			require.Equal(t, len(want), p.Ghosts())
			for l := p.Owned(); l < p.Len(); l++ {
				require.True(t, want[p.Global(l)])
			}
		}
		for g, r := range owner {
			require.NotEqual(t, -1, r, "node %d unowned", g)
		}
	}
}

// TestPartition_LocalAdjacency checks owned rows reproduce the global
// adjacency, in global-id order, with matching edge lengths.
func TestPartition_LocalAdjacency(t *testing.T) {
	m, err := mesh.NewGrid(4, 4, 2, mesh.Conn8)
	require.NoError(t, err)
	ps, err := mesh.Partition(m, 3)
	require.NoError(t, err)

	for _, p := range ps {
		for l := 0; l < p.Owned(); l++ {
			g := p.Global(l)
			nbrs := p.Neighbors(l)
			dist := p.Distances(l)
			require.Len(t, nbrs, len(m.Neighbors(g)))
			for k, ln := range nbrs {
				require.Equal(t, m.Neighbors(g)[k], p.Global(ln))
				require.InDelta(t, m.Distance(g, p.Global(ln)), dist[k], 1e-12)
			}
			back, ok := p.Local(g)
			require.True(t, ok)
			require.Equal(t, l, back)
			require.Equal(t, m.Area(g), p.Area(l))
		}
	}
}

// TestPartition_Errors rejects nonsensical part counts.
func TestPartition_Errors(t *testing.T) {
	m, err := mesh.NewGrid(2, 2, 1, mesh.Conn4)
	require.NoError(t, err)
	_, err = mesh.Partition(m, 0)
	require.ErrorIs(t, err, mesh.ErrBadPartitionCount)
	_, err = mesh.Partition(m, 5)
	require.ErrorIs(t, err, mesh.ErrBadPartitionCount)
}
