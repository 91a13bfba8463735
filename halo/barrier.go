// SPDX-License-Identifier: MIT

package halo

import "sync"

// barrier is a reusable (cyclic) barrier for a fixed number of parties.
// Once broken, every current and future wait panics with ErrBroken until reset.
type barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	n      int    // parties
	count  int    // arrivals in the current generation
	gen    uint64 // generation counter
	broken bool
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)

	return b
}

// wait blocks until all parties of the current generation have arrived.
func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		panic(ErrBroken)
	}
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()

		return
	}
	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
	// Released by a break rather than by the last arrival.
	if gen == b.gen {
		panic(ErrBroken)
	}
}

// breakAll releases every waiter with ErrBroken.
func (b *barrier) breakAll() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// reset restores a broken barrier for a fresh run.
func (b *barrier) reset() {
	b.mu.Lock()
	b.broken = false
	b.count = 0
	b.gen++
	b.mu.Unlock()
}
