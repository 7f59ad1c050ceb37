package orchestrator

import (
	"context"
	"sync"
)

// pauseGate is the synchronization object workers wait on when paused: open
// in Running, closed in Paused. Resume broadcasts; Pause simply stops
// signalling. Workers already inside Downloader.Fetch are unaffected — the
// gate is only consulted before a worker dequeues new work.
type pauseGate struct {
	mu   sync.Mutex
	cond *sync.Cond
	open bool
}

func newPauseGate() *pauseGate {
	g := &pauseGate{open: true}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Close shuts the gate; subsequent Wait calls block until Open.
func (g *pauseGate) Close() {
	g.mu.Lock()
	g.open = false
	g.mu.Unlock()
}

// Open opens the gate and wakes every worker waiting on it.
func (g *pauseGate) Open() {
	g.mu.Lock()
	g.open = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Wait blocks until the gate is open or ctx is done, whichever happens
// first. Returns false when ctx ended the wait, so the caller can exit
// instead of proceeding to dequeue.
func (g *pauseGate) Wait(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, g.cond.Broadcast)
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.open && ctx.Err() == nil {
		g.cond.Wait()
	}
	return ctx.Err() == nil
}
