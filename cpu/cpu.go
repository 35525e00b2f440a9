// Package cpu implements the arithmetic benchmark: an in-place O(n²)
// bubble sort over a buffer of pseudo-random integers.
//
// The buffer is owned by the caller. Run never retains it, so concurrent
// runs over distinct buffers are independent.
package cpu

import (
	"math/rand/v2"
	"time"

	"github.com/gogpu/ggbench/internal/clock"
)

// DefaultSize is the number of elements sorted by a standard run.
const DefaultSize = 10000

// Result is the outcome of one sort.
type Result struct {
	// Size is the number of elements sorted.
	Size int

	// Duration is the wall time spent sorting.
	Duration time.Duration
}

// Millis returns the duration in whole milliseconds.
func (r Result) Millis() int64 {
	return r.Duration.Milliseconds()
}

// Score returns the normalized score for this result. See Score.
func (r Result) Score() int {
	return Score(r.Size, r.Duration)
}

// NewWorkload allocates a fresh buffer of size pseudo-random integers.
// A nil rng uses a randomly seeded generator.
func NewWorkload(size int, rng *rand.Rand) []int32 {
	if size < 0 {
		size = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // benchmark data, not crypto
	}
	data := make([]int32, size)
	for i := range data {
		data[i] = rng.Int32()
	}
	return data
}

// Run sorts data ascending in place and reports how long it took.
// The pass count does not depend on the input order: a sorted buffer
// costs as many comparisons as a reversed one.
func Run(data []int32, clk clock.Clock) Result {
	if clk == nil {
		clk = clock.System()
	}
	start := clk.Now()
	bubbleSort(data)
	return Result{Size: len(data), Duration: clk.Now().Sub(start)}
}

func bubbleSort(a []int32) {
	n := len(a)
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-i-1; j++ {
			if a[j] > a[j+1] {
				a[j], a[j+1] = a[j+1], a[j]
			}
		}
	}
}

// Score converts a sort duration into a score where higher is better:
// size * 1000 / milliseconds. Durations under one millisecond (including
// zero and negative readings) count as one millisecond.
func Score(size int, d time.Duration) int {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return int(int64(size) * 1000 / ms)
}
