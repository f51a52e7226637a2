package effects

import "sync"

// Runner schedules work that crosses the process boundary.
type Runner interface {
	Go(fn func())
}

type inline struct{}

func (inline) Go(fn func()) { fn() }

// Inline returns a Runner that runs each job before Go returns.
func Inline() Runner { return inline{} } //nolint:ireturn

// Group runs each job on its own goroutine and can wait for all of them.
type Group struct {
	wg sync.WaitGroup
}

// Go starts fn on a new goroutine.
func (g *Group) Go(fn func()) {
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until every started job has returned.
func (g *Group) Wait() { g.wg.Wait() }
