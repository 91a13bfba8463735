package pitfill_test

import (
	"math/rand"
	"testing"

	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
)

// BenchmarkFill measures Fill on a 300×300 Conn8 grid of random heights,
// which is dominated by small pits.
// Complexity: O(N log N)
func BenchmarkFill(b *testing.B) {
	const n = 300
	m, err := mesh.NewGrid(n, n, 1, mesh.Conn8)
	if err != nil {
		b.Fatalf("setup NewGrid failed: %v", err)
	}
	rng := rand.New(rand.NewSource(42))
	z := make([]float64, m.Len())
	for i := range z {
		z[i] = rng.Float64() * 10
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = pitfill.Fill(m, z, -1); err != nil {
			b.Fatal(err)
		}
	}
}
