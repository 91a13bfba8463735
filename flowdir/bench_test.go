package flowdir_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/drainage/flowdir"
	"github.com/katalvlaran/drainage/mesh"
)

// BenchmarkResolve measures Resolve with k=3 on a 300×300 Conn8 slope.
// Complexity: O(N·d·log d)
func BenchmarkResolve(b *testing.B) {
	const n = 300
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
		z[i] = 0.01*p[1] + math.Sin(0.02*p[0])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = flowdir.Resolve(ps[0], z, -1, 3); err != nil {
			b.Fatal(err)
		}
	}
}
