// Package memory implements the memory benchmark: a sequential write pass
// of pseudo-random integers followed by a sequential read pass over a
// caller-owned buffer.
package memory

import (
	"math/rand/v2"
	"time"

	"github.com/gogpu/ggbench/internal/clock"
)

// DefaultSize is the number of elements touched by a standard run.
const DefaultSize = 10000

// Result is the outcome of one write/read pass.
type Result struct {
	// Size is the number of elements written and read back.
	Size int

	// Duration is the wall time of both passes.
	Duration time.Duration

	// Checksum is the wrapping sum of every value read. It keeps the read
	// pass observable.
	Checksum int64
}

// Millis returns the duration in whole milliseconds.
func (r Result) Millis() int64 {
	return r.Duration.Milliseconds()
}

// Score returns the normalized score for this result. See Score.
func (r Result) Score() int {
	return Score(r.Size, r.Duration)
}

// NewBuffer allocates a fresh buffer of size elements holding their index.
func NewBuffer(size int) []int32 {
	if size < 0 {
		size = 0
	}
	buf := make([]int32, size)
	for i := range buf {
		buf[i] = int32(i) //nolint:gosec // index fits the benchmark sizes
	}
	return buf
}

// Run overwrites buf with values from rng, reads every element back and
// reports the elapsed time. A nil rng uses a randomly seeded generator.
func Run(buf []int32, rng *rand.Rand, clk clock.Clock) Result {
	if clk == nil {
		clk = clock.System()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // benchmark data, not crypto
	}

	start := clk.Now()
	for i := range buf {
		buf[i] = rng.Int32()
	}
	var sum int64
	for _, v := range buf {
		sum += int64(v)
	}
	d := clk.Now().Sub(start)

	return Result{Size: len(buf), Duration: d, Checksum: sum}
}

// Score converts a pass duration into a score where higher is better:
// size / milliseconds. A pass that completes in under one millisecond
// (zero included) is scored as if it took exactly one, so the fallback
// value for a zero reading is size itself.
func Score(size int, d time.Duration) int {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return int(int64(size) / ms)
}
