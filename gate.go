package box2

import "sync"

// gate is the one-shot readiness barrier in front of the key registry.
// Callers arriving before Setup has opened the registry are parked in FIFO
// order and released exactly once, in arrival order, when the open result
// is known. The transition to ready never reverses.
type gate struct {
	mu      sync.Mutex
	opened  bool
	err     error
	waiters []chan error
}

// wait blocks until the gate has opened and returns the open result.
// After the gate is open it returns immediately.
func (g *gate) wait() error {
	g.mu.Lock()
	if g.opened {
		err := g.err
		g.mu.Unlock()
		return err
	}
	ch := make(chan error, 1)
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()
	return <-ch
}

// open records the open result and releases all parked waiters in arrival
// order. Only the first call has any effect.
func (g *gate) open(err error) {
	g.mu.Lock()
	if g.opened {
		g.mu.Unlock()
		return
	}
	g.opened = true
	g.err = err
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
}
