package ratelimit

import "sync"

// Gate bounds the number of requests in flight in this process. It is
// identity-blind and never blocks: TryAcquire fails immediately when full.
// The counter is process-local and resets on restart.
type Gate struct {
	mu      sync.Mutex
	max     int
	current int
}

func NewGate(max int) *Gate {
	return &Gate{max: max}
}

// TryAcquire reserves a slot, reporting false when none is free.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current >= g.max {
		return false
	}
	g.current++

	return true
}

// Release returns a slot. Calling it more often than TryAcquire succeeded
// is safe; the counter never goes below zero.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current > 0 {
		g.current--
	}
}

// InFlight reports the current slot count.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.current
}
