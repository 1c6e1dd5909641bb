package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source used by the controllers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real implements Clock with the time package.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep waits for d unless the context is canceled first.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fake is a manually driven Clock. Sleep advances the fake time instantly.
type Fake struct {
	// mu protects current and sleeps.
	mu sync.Mutex
	// current is the virtual now.
	current time.Time
	// sleeps records every requested sleep in order.
	sleeps []time.Duration
	// onSleep, when set, runs after each advance with the new time.
	onSleep func(now time.Time)
}

// NewFake creates a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current
}

// Sleep advances the virtual time by d and returns immediately.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	if d > 0 {
		f.current = f.current.Add(d)
	}

	f.sleeps = append(f.sleeps, d)
	now, hook := f.current, f.onSleep
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}

	return ctx.Err()
}

// OnSleep registers a hook called after every Sleep.
func (f *Fake) OnSleep(hook func(now time.Time)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onSleep = hook
}

// Sleeps returns a copy of all recorded sleep durations.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]time.Duration(nil), f.sleeps...)
}
