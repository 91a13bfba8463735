package flowdir_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/drainage/flowdir"
	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
)

// whole returns the single partition covering m.
func whole(t *testing.T, m *mesh.Mesh) *mesh.Part {
	t.Helper()
	ps, err := mesh.Partition(m, 1)
	require.NoError(t, err)

	return ps[0]
}

// cross is a 3×3 Conn4 grid; the centre (id 4) sits at 10 with neighbours
// 1→8, 3→6, 5→12, 7→10 and corners at 20.
func cross(t *testing.T) (*mesh.Mesh, []float64) {
	t.Helper()
	m, err := mesh.NewGrid(3, 3, 1, mesh.Conn4)
	require.NoError(t, err)
	z := []float64{20, 8, 20, 6, 10, 12, 20, 10, 20}

	return m, z
}

func TestResolve_Errors(t *testing.T) {
	m, z := cross(t)
	p := whole(t, m)

	_, err := flowdir.Resolve(p, z, 0, 0)
	require.ErrorIs(t, err, flowdir.ErrBadFanout)

	_, err = flowdir.Resolve(p, z[:3], 0, 1)
	require.ErrorIs(t, err, flowdir.ErrLengthMismatch)
}

func TestResolve_SlopeWeights(t *testing.T) {
	m, z := cross(t)
	rs, err := flowdir.Resolve(whole(t, m), z, 0, 3)
	require.NoError(t, err)

	rcv, w := rs.Receivers(4)
	// Lowest first: node 3 (drop 4), node 1 (drop 2), then an unused slot.
	assert.Equal(t, []int{3, 1, 4}, rcv)
	assert.InDelta(t, 2.0/3.0, w[0], 1e-15)
	assert.InDelta(t, 1.0/3.0, w[1], 1e-15)
	assert.Zero(t, w[2])
	assert.Zero(t, rs.Dist[4*3+2])
	assert.InDelta(t, 1.0, rs.WeightSum(4), 1e-15)
	assert.False(t, rs.Sink[4])
}

func TestResolve_SingleFlowPicksLowest(t *testing.T) {
	m, z := cross(t)
	rs, err := flowdir.Resolve(whole(t, m), z, 0, 1)
	require.NoError(t, err)
	rcv, w := rs.Receivers(4)
	assert.Equal(t, []int{3}, rcv)
	assert.Equal(t, []float64{1}, w)
}

func TestResolve_TiesByGlobalID(t *testing.T) {
	m, z := cross(t)
	z[1], z[3] = 7, 7
	rs, err := flowdir.Resolve(whole(t, m), z, 0, 1)
	require.NoError(t, err)
	rcv, _ := rs.Receivers(4)
	assert.Equal(t, []int{1}, rcv)
}

func TestResolve_PitAndOcean(t *testing.T) {
	m, z := cross(t)
	z[3] = -2 // ocean
	z[1] = 30 // node 1 now sits above everything around it
	rs, err := flowdir.Resolve(whole(t, m), z, 0, 2)
	require.NoError(t, err)

	rcv, w := rs.Receivers(3)
	assert.True(t, rs.Ocean[3])
	assert.True(t, rs.Sink[3])
	assert.Equal(t, []int{3, 3}, rcv)
	assert.Equal(t, []float64{0, 0}, w)

	// Corner 0 (20) drains to 3 (ocean) and 1 is higher: one receiver.
	rcv, w = rs.Receivers(0)
	assert.Equal(t, []int{3, 0}, rcv)
	assert.Equal(t, []float64{1, 0}, w)

	// Lower the centre below every neighbour: pit point.
	z[4] = -3
	rs, err = flowdir.Resolve(whole(t, m), z, -5, 2)
	require.NoError(t, err)
	assert.True(t, rs.Sink[4])
	assert.False(t, rs.Ocean[4])
	assert.Zero(t, rs.WeightSum(4))
}

// TestResolve_OrderIsTopological checks every owned receiver follows its donor.
func TestResolve_OrderIsTopological(t *testing.T) {
	m, err := mesh.NewGrid(6, 7, 1, mesh.Conn8)
	require.NoError(t, err)
	z := make([]float64, m.Len())
	for i := range z {
		p := m.Point(i)
		z[i] = p[1]*1.3 + float64((i*7)%5)*0.1
	}
	rs, err := flowdir.Resolve(whole(t, m), z, 0.5, 3)
	require.NoError(t, err)

	pos := make([]int, rs.Len())
	for at, i := range rs.Order {
		pos[i] = at
	}
	requireWeightSums(t, rs)
	for i := 0; i < rs.Len(); i++ {
		rcv, w := rs.Receivers(i)
		for s, j := range rcv {
			if w[s] > 0 {
				assert.Greater(t, pos[j], pos[i], "receiver %d precedes donor %d", j, i)
			}
		}
	}
}

// TestResolve_Partitioned checks ghost reads give the same routing as the
// unpartitioned mesh.
func TestResolve_Partitioned(t *testing.T) {
	m, err := mesh.NewGrid(5, 6, 2, mesh.Conn8)
	require.NoError(t, err)
	z := make([]float64, m.Len())
	for i := range z {
		z[i] = float64((i*13)%11) + 0.01*float64(i)
	}
	ref, err := flowdir.Resolve(whole(t, m), z, 1, 2)
	require.NoError(t, err)

	parts, err := mesh.Partition(m, 3)
	require.NoError(t, err)
	for _, p := range parts {
		local := make([]float64, p.Len())
		for l, g := range p.GlobalIDs() {
			local[l] = z[g]
		}
		rs, err := flowdir.Resolve(p, local, 1, 2)
		require.NoError(t, err)
		for l := 0; l < p.Owned(); l++ {
			g := p.Global(l)
			rcv, w := rs.Receivers(l)
			rr, rw := ref.Receivers(g)
			for s := range rcv {
				assert.Equal(t, rr[s], p.Global(rcv[s]))
				assert.InDelta(t, rw[s], w[s], 1e-15)
			}
		}
	}
}

// requireWeightSums checks every row's weights sum to exactly 0 on sinks
// and to 1 elsewhere, with no negative or non-finite weight.
func requireWeightSums(t *testing.T, rs *flowdir.ReceiverSet) {
	t.Helper()
	for i := 0; i < rs.Len(); i++ {
		_, w := rs.Receivers(i)
		for s, v := range w {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "node %d slot %d weight %g", i, s, v)
			require.GreaterOrEqual(t, v, 0.0, "node %d slot %d", i, s)
		}
		if rs.Sink[i] {
			require.Zero(t, rs.WeightSum(i), "sink %d", i)
			continue
		}
		require.InDelta(t, 1, rs.WeightSum(i), 1e-12, "node %d", i)
	}
}

// TestResolve_WeightSums runs multi-flow routing over seeded random terrain
// with an ocean strip, flats and pits.
func TestResolve_WeightSums(t *testing.T) {
	const rows, cols = 12, 10
	m, err := mesh.NewGrid(rows, cols, 3, mesh.Conn8)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))
	for _, k := range []int{2, 3} {
		for trial := 0; trial < 20; trial++ {
			z := make([]float64, m.Len())
			for i := range z {
				switch p := m.Point(i); {
				case p[1] == 0:
					z[i] = -2
				case rng.Intn(6) == 0:
					z[i] = 4 // repeated values give flats and ties
				default:
					z[i] = 0.5*p[1] + 8*rng.Float64()
				}
			}
			rs, err := flowdir.Resolve(whole(t, m), z, 0, k)
			require.NoError(t, err)
			requireWeightSums(t, rs)

			sinks := 0
			for i := 0; i < rs.Len(); i++ {
				if rs.Sink[i] {
					sinks++
				}
			}
			require.Less(t, sinks, rs.Len(), "k=%d trial %d: land must route somewhere", k, trial)
		}
	}
}

// TestResolve_BasinRoutesToCoast routes the filled 5×5 coastal basin (ocean
// row y=0, rows rising inland, a one-node pit at (2,2)): the fill raises only
// the pit and every land node drains one row towards the coast.
func TestResolve_BasinRoutesToCoast(t *testing.T) {
	const n = 5
	m, err := mesh.NewGrid(n, n, 1, mesh.Conn4)
	require.NoError(t, err)
	rows := []float64{-1, 1.0, 1.5, 2.0, 2.5}
	z := make([]float64, m.Len())
	for i := range z {
		z[i] = rows[i/n]
	}
	pit := mesh.GridIndex(n, 2, 2)
	z[pit] = 0.5

	res, err := pitfill.Fill(m, z, 0)
	require.NoError(t, err)
	for i := range z {
		if i == pit {
			require.Greater(t, res.Filled[i], z[i])
			continue
		}
		require.Equal(t, z[i], res.Filled[i], "node %d must not be raised", i)
	}

	rs, err := flowdir.Resolve(whole(t, m), res.Filled, 0, 1)
	require.NoError(t, err)
	requireWeightSums(t, rs)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := mesh.GridIndex(n, x, y)
			rcv, w := rs.Receivers(i)
			if y == 0 {
				assert.True(t, rs.Ocean[i], "node %d", i)
				assert.Equal(t, i, rcv[0])
				continue
			}
			assert.False(t, rs.Sink[i], "node (%d,%d)", x, y)
			assert.Equal(t, mesh.GridIndex(n, x, y-1), rcv[0], "node (%d,%d)", x, y)
			assert.Equal(t, 1.0, w[0])
		}
	}
}
