// Package lockout counts failed sign-in attempts per username and locks a
// name out for a while once it has failed too often.
package lockout

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

const (
	DefaultMaxAttempts = 5
	DefaultDuration    = 15 * time.Minute
)

type attempts struct {
	count int
	last  time.Time
}

// Tracker is safe for concurrent use. State is kept in memory only.
type Tracker struct {
	max      int
	duration time.Duration
	now      func() time.Time

	mu    sync.Mutex
	names map[string]*attempts
}

// New returns a Tracker; non-positive arguments fall back to the defaults.
func New(maxAttempts int, duration time.Duration) *Tracker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Tracker{
		max:      maxAttempts,
		duration: duration,
		now:      time.Now,
		names:    make(map[string]*attempts),
	}
}

// SetClock replaces time.Now.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Check returns common.ErrTooManyAttempts while name is locked out. A
// lockout that has run its course is forgotten.
func (t *Tracker) Check(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.names[name]
	if !ok || a.count < t.max {
		return nil
	}
	left := t.duration - t.now().Sub(a.last)
	if left <= 0 {
		delete(t.names, name)
		return nil
	}
	return fmt.Errorf("%w: try again in %s", common.ErrTooManyAttempts, left.Round(time.Second))
}

// Record notes the outcome of an attempt. Success clears the counter.
func (t *Tracker) Record(name string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if success {
		delete(t.names, name)
		return
	}
	a, ok := t.names[name]
	if !ok {
		a = &attempts{}
		t.names[name] = a
	}
	a.count++
	a.last = t.now()
}
