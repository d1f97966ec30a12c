// Package fault injects scripted errors into fake adapters.
package fault

import (
	"fmt"
	"sync"

	"cfrestart/internal/check"
)

type point struct {
	queued []error
	always error
	evals  int
}

// Injector holds failures keyed by call point, such as "AppSummary".
// Queued errors are returned in order before the persistent one.
type Injector struct {
	mu     sync.Mutex
	points map[string]*point
}

func NewInjector() *Injector {
	return &Injector{points: make(map[string]*point)}
}

// FailOnce queues err for the next evaluation of name.
func (i *Injector) FailOnce(name string, err error) {
	check.Assert(err != nil, "fault.Injector.FailOnce: err must not be nil")
	i.mu.Lock()
	defer i.mu.Unlock()
	p := i.point(name)
	p.queued = append(p.queued, err)
}

// FailAlways returns err from every evaluation of name once the queue is empty.
func (i *Injector) FailAlways(name string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.point(name).always = err
}

// Eval returns the injected failure for this call of name, if any.
func (i *Injector) Eval(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	p := i.point(name)
	p.evals++
	if len(p.queued) > 0 {
		err := p.queued[0]
		p.queued = p.queued[1:]
		return fmt.Errorf("fault %s: %w", name, err)
	}
	if p.always != nil {
		return fmt.Errorf("fault %s: %w", name, p.always)
	}
	return nil
}

// Evals reports how many times name was evaluated.
func (i *Injector) Evals(name string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if p, ok := i.points[name]; ok {
		return p.evals
	}
	return 0
}

func (i *Injector) point(name string) *point {
	p, ok := i.points[name]
	if !ok {
		p = &point{}
		i.points[name] = p
	}
	return p
}
