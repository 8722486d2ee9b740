// Package runlock serialises allocation runs over the same floor plan.
//
// Runs mutate cluster grids in order, so two concurrent runs for one floor
// plan would each see every unit as free and hand out the same stands. A
// Locker lets the caller claim a floor plan for the duration of a run and
// fail fast with LOCKED when another run holds it.
package runlock

import (
	"context"
	"sync"

	errs "github.com/matzehuels/boothplan/pkg/errors"
)

// Release gives a lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker hands out exclusive run locks keyed by floor plan.
type Locker interface {
	// Acquire claims key or fails with an error coded LOCKED when another
	// holder has it.
	Acquire(ctx context.Context, key string) (Release, error)
}

// Local is an in-process Locker for the CLI and single-replica servers.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, lockedErr(key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// Held reports whether key is currently locked.
func (l *Local) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

func lockedErr(key string) error {
	return errs.New(errs.ErrCodeLocked, "another allocation run holds floor plan %s", key)
}

var _ Locker = (*Local)(nil)
