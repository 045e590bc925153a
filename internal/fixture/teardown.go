package fixture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Teardown is a LIFO stack of release functions. Run releases everything
// pushed so far, newest first, exactly once.
type Teardown struct {
	mu    sync.Mutex
	steps []release
	ran   bool
	err   error
}

type release struct {
	name string
	fn   func() error
}

// Push registers fn to run when the stack unwinds. Pushing after Run runs fn
// immediately so late acquisitions are never leaked.
func (t *Teardown) Push(name string, fn func() error) error {
	t.mu.Lock()
	if !t.ran {
		t.steps = append(t.steps, release{name: name, fn: fn})
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	return runRelease(release{name: name, fn: fn})
}

// Run releases every registered resource in reverse order. Every release runs
// even when an earlier one fails; failures are joined. Later calls return the
// first call's result.
func (t *Teardown) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ran {
		return t.err
	}
	t.ran = true

	var failures []error
	for i := len(t.steps) - 1; i >= 0; i-- {
		if err := runRelease(t.steps[i]); err != nil {
			failures = append(failures, err)
		}
	}
	t.steps = nil
	t.err = errors.Join(failures...)
	return t.err
}

func runRelease(r release) (err error) {
	log := obs.Pkg("fixture")
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("close %s: panic: %v", r.name, p)
			log.Error("release panicked", "resource", r.name, "panic", fmt.Sprint(p))
		}
	}()
	if err := r.fn(); err != nil {
		log.Warn("release failed", "resource", r.name, "error", err)
		return fmt.Errorf("close %s: %w", r.name, err)
	}
	log.Debug("released", "resource", r.name)
	return nil
}

// Step acquires one resource and returns the function that releases it.
type Step struct {
	Name    string
	Acquire func(ctx context.Context) (func() error, error)
}

// Acquire runs steps in order, pushing each release onto a new Teardown. If a
// step fails, everything acquired so far is released in reverse and the step
// error is returned joined with any release failures. A panicking step also
// releases everything acquired before it, then the panic continues.
func Acquire(ctx context.Context, steps []Step) (*Teardown, error) {
	td := &Teardown{}
	log := obs.From(ctx).With("pkg", "fixture")
	defer func() {
		if p := recover(); p != nil {
			log.Error("acquire panicked", "panic", fmt.Sprint(p))
			_ = td.Run()
			panic(p)
		}
	}()
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, td.Run())
		}
		fn, err := s.Acquire(ctx)
		if err != nil {
			log.Warn("acquire failed", "resource", s.Name, "error", err)
			return nil, errors.Join(err, td.Run())
		}
		log.Debug("acquired", "resource", s.Name)
		if fn != nil {
			_ = td.Push(s.Name, fn)
		}
	}
	return td, nil
}
