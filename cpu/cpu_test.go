package cpu

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/ggbench/internal/clock"
)

func TestRunSortsAscending(t *testing.T) {
	const k = 500

	sorted := make([]int32, k)
	for i := range sorted {
		sorted[i] = int32(i)
	}
	reversed := make([]int32, k)
	for i := range reversed {
		reversed[i] = int32(k - 1 - i)
	}
	random := NewWorkload(k, rand.New(rand.NewPCG(1, 2)))

	tests := []struct {
		name string
		data []int32
	}{
		{"already sorted", sorted},
		{"reverse sorted", reversed},
		{"random", random},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := slices.Clone(tt.data)
			slices.Sort(want)

			res := Run(tt.data, nil)
			if res.Duration < 0 {
				t.Errorf("Duration = %v, want >= 0", res.Duration)
			}
			if res.Size != k {
				t.Errorf("Size = %d, want %d", res.Size, k)
			}
			if !slices.IsSorted(tt.data) {
				t.Fatal("output is not sorted ascending")
			}
			if !slices.Equal(tt.data, want) {
				t.Error("output is not a permutation of the input")
			}
		})
	}
}

func TestRunResultIndependentOfInitialOrder(t *testing.T) {
	a := NewWorkload(300, rand.New(rand.NewPCG(7, 7)))
	b := slices.Clone(a)
	slices.Reverse(b)

	Run(a, nil)
	Run(b, nil)

	if !slices.Equal(a, b) {
		t.Error("sorting the same values in different orders gave different results")
	}
}

func TestRunEmptyAndSingle(t *testing.T) {
	for _, n := range []int{0, 1} {
		data := NewWorkload(n, rand.New(rand.NewPCG(3, 4)))
		res := Run(data, nil)
		if res.Size != n {
			t.Errorf("n=%d: Size = %d", n, res.Size)
		}
	}
}

func TestRunUsesClock(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0), 250*time.Millisecond)
	res := Run(NewWorkload(10, nil), fake)
	if res.Duration != 250*time.Millisecond {
		t.Errorf("Duration = %v, want 250ms", res.Duration)
	}
	if res.Millis() != 250 {
		t.Errorf("Millis = %d, want 250", res.Millis())
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		size int
		d    time.Duration
		want int
	}{
		{"one second", 1000, time.Second, 1000},
		{"faster is higher", 1000, 500 * time.Millisecond, 2000},
		{"zero duration clamps to 1ms", 1000, 0, 1000000},
		{"sub-millisecond clamps", 10, 300 * time.Microsecond, 10000},
		{"negative clamps", 10, -time.Second, 10000},
		{"empty", 0, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.size, tt.d); got != tt.want {
				t.Errorf("Score(%d, %v) = %d, want %d", tt.size, tt.d, got, tt.want)
			}
		})
	}
}

func BenchmarkBubbleSort1000(b *testing.B) {
	src := NewWorkload(1000, rand.New(rand.NewPCG(1, 1)))
	buf := make([]int32, len(src))
	for b.Loop() {
		copy(buf, src)
		bubbleSort(buf)
	}
}
