package controller

import (
	"context"
	"sync"
	"time"
)

// gate is a binary event flag. Every waiter is released when it is set.
type gate struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

func (g *gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set {
		g.set = true
		close(g.ch)
	}
}

func (g *gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set {
		g.set = false
		g.ch = make(chan struct{})
	}
}

func (g *gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

func (g *gate) wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// Wait blocks until the flag is set or timeout elapses. A non-positive
// timeout waits forever.
func (g *gate) Wait(timeout time.Duration) bool {
	ch := g.wait()

	if timeout <= 0 {
		<-ch
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

func (g *gate) WaitContext(ctx context.Context) bool {
	select {
	case <-g.wait():
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitForDispatch blocks until a PlayMedia call has dispatched its LOAD (or
// given up) or timeout elapses, and reports whether the dispatch was
// observed. A non-positive timeout waits forever.
//
// The flag is shared by every PlayMedia caller on the controller; callers
// racing each other should wait on their own Dispatch instead.
func (c *Controller) WaitForDispatch(timeout time.Duration) bool {
	return c.gate.Wait(timeout)
}

// WaitForDispatchContext is WaitForDispatch bounded by ctx.
func (c *Controller) WaitForDispatchContext(ctx context.Context) bool {
	return c.gate.WaitContext(ctx)
}

// Dispatched reports whether the dispatch flag is currently set.
func (c *Controller) Dispatched() bool {
	return c.gate.IsSet()
}

// ClearDispatch resets the dispatch flag.
func (c *Controller) ClearDispatch() {
	c.gate.Clear()
}
