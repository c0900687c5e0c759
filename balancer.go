package knet

import "sync"

// Balancer distributes new channels across a fixed set of loops in
// round-robin order. A single Balancer is meant to be shared by a
// framework across all of its loops.
type Balancer struct {
	mu    sync.Mutex
	loops []*Loop
	next  int
}

// NewBalancer creates a Balancer over loops. The slice is copied.
func NewBalancer(loops []*Loop) *Balancer {
	b := &Balancer{loops: append([]*Loop(nil), loops...)}
	return b
}

// Choose returns the next loop in round-robin order. Returns nil if the
// balancer has no loops registered.
func (b *Balancer) Choose() *Loop {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.loops) == 0 {
		return nil
	}
	l := b.loops[b.next%len(b.loops)]
	b.next++
	return l
}

// Add registers an additional loop with the balancer.
func (b *Balancer) Add(l *Loop) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loops = append(b.loops, l)
}

// Loops returns a snapshot of the balancer's current loop set.
func (b *Balancer) Loops() []*Loop {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Loop(nil), b.loops...)
}
