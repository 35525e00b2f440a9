package ggbench

import (
	"testing"
	"time"

	"github.com/gogpu/ggbench/cpu"
	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/gpu/gputest"
	"github.com/gogpu/ggbench/internal/clock"
	"github.com/gogpu/ggbench/memory"
)

func TestDefaultOptions(t *testing.T) {
	o := New().opts

	if o.clock == nil {
		t.Error("default clock is nil")
	}
	if o.platform != nil || o.platformName != "" {
		t.Error("default options pin a platform")
	}
	if o.cpuSize != cpu.DefaultSize || o.memorySize != memory.DefaultSize {
		t.Errorf("sizes = %d/%d, want %d/%d", o.cpuSize, o.memorySize, cpu.DefaultSize, memory.DefaultSize)
	}
	if o.gpuFrames != gpu.DefaultFrames || o.gpuWidth != gpu.DefaultWidth || o.gpuHeight != gpu.DefaultHeight {
		t.Errorf("gpu = %d frames %dx%d", o.gpuFrames, o.gpuWidth, o.gpuHeight)
	}
	if o.seeded {
		t.Error("default options are seeded")
	}
}

func TestOptionsApply(t *testing.T) {
	c := clock.NewFake(time.Time{}, time.Millisecond)
	p := gputest.New()

	o := New(
		WithClock(c),
		WithPlatform(p),
		WithPlatformName("software"),
		WithCPUSize(10),
		WithMemorySize(20),
		WithGPUFrames(30),
		WithGPUSize(40, 50),
		WithSeed(7),
	).opts

	if o.clock != c {
		t.Error("WithClock not applied")
	}
	if o.platform != p || o.platformName != "software" {
		t.Error("platform options not applied")
	}
	if o.cpuSize != 10 || o.memorySize != 20 {
		t.Errorf("sizes = %d/%d, want 10/20", o.cpuSize, o.memorySize)
	}
	if o.gpuFrames != 30 || o.gpuWidth != 40 || o.gpuHeight != 50 {
		t.Errorf("gpu = %d frames %dx%d, want 30 frames 40x50", o.gpuFrames, o.gpuWidth, o.gpuHeight)
	}
	if !o.seeded || o.seed != 7 {
		t.Errorf("seed = %d (seeded %v), want 7", o.seed, o.seeded)
	}
}

func TestWithClockNilKeepsDefault(t *testing.T) {
	if New(WithClock(nil)).opts.clock == nil {
		t.Error("WithClock(nil) cleared the clock")
	}
}

func TestSeededWorkloadsRepeat(t *testing.T) {
	a := New(WithSeed(3)).rng(CategoryCPU)
	b := New(WithSeed(3)).rng(CategoryCPU)
	for i := range 8 {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
	if New().rng(CategoryCPU) != nil {
		t.Error("unseeded suite returned a generator")
	}
}
