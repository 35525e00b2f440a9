package clock

import (
	"testing"
	"time"
)

func TestFakeStepsBetweenReadings(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start, 1500*time.Millisecond)

	t0 := f.Now()
	t1 := f.Now()

	if !t0.Equal(start) {
		t.Errorf("first reading = %v, want %v", t0, start)
	}
	if got := t1.Sub(t0); got != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got)
	}
}

func TestFakeAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0), 0)
	t0 := f.Now()
	f.Advance(time.Second)
	if got := f.Now().Sub(t0); got != time.Second {
		t.Errorf("elapsed after Advance = %v, want 1s", got)
	}

	f.SetStep(time.Millisecond)
	a := f.Now()
	b := f.Now()
	if got := b.Sub(a); got != time.Millisecond {
		t.Errorf("elapsed after SetStep = %v, want 1ms", got)
	}
}

func TestSystemIsMonotonic(t *testing.T) {
	c := System()
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Errorf("system clock went backwards: %v then %v", a, b)
	}
}
