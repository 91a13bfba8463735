package solver_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/solver"
)

// BenchmarkSolve_Accumulate measures a cold single-rank discharge solve on
// a 200×200 Conn8 slope with k=3.
func BenchmarkSolve_Accumulate(b *testing.B) {
	const n = 200
	m, err := mesh.NewGrid(n, n, 10, mesh.Conn8)
	if err != nil {
		b.Fatalf("setup NewGrid failed: %v", err)
	}
	ps, err := mesh.Partition(m, 1)
	if err != nil {
		b.Fatalf("setup Partition failed: %v", err)
	}
	z := make([]float64, m.Len())
	for i := range z {
		p := m.Point(i)
		z[i] = 0.01*p[1] + math.Sin(0.02*p[0]) + 1e-6*float64(i)
	}
	p, err := problem(ps[0], z, 0.5, 3, solver.Accumulate)
	if err != nil {
		b.Fatalf("setup problem failed: %v", err)
	}
	rhs := ones(ps[0].Owned())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = solver.Solve(solver.Local{}, p, rhs, nil); err != nil {
			b.Fatal(err)
		}
	}
}
