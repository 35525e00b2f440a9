// Package clock provides the time source used by every benchmark.
//
// Benchmarks read the clock exactly twice per measurement (start and end),
// so a deterministic fake can pin elapsed times in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time. Implementations used for measurement
// must be monotonic: the system clock relies on the monotonic reading
// carried by time.Time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the process clock.
func System() Clock { return systemClock{} }

// Fake is a manually driven clock.
//
// Each call to Now returns the current time and then advances it by Step,
// so two consecutive readings are exactly Step apart. Step may be zero.
// Fake is safe for concurrent use.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFake returns a fake clock starting at start that advances by step
// after every reading.
func NewFake(start time.Time, step time.Duration) *Fake {
	return &Fake{now: start, step: step}
}

// Now returns the fake time and advances it by the configured step.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.step)
	return t
}

// Advance moves the clock forward by d without a reading.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// SetStep changes the per-reading advance.
func (f *Fake) SetStep(step time.Duration) {
	f.mu.Lock()
	f.step = step
	f.mu.Unlock()
}
