package ggbench

import (
	"github.com/gogpu/ggbench/cpu"
	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/internal/clock"
	"github.com/gogpu/ggbench/memory"
)

// Option configures a Suite during creation.
//
// Example:
//
//	// Default sizes on the best registered platform
//	s := ggbench.New()
//
//	// Short GPU run on a named platform
//	s := ggbench.New(ggbench.WithPlatformName("software"), ggbench.WithGPUFrames(300))
type Option func(*options)

// options holds optional configuration for Suite creation.
type options struct {
	clock clock.Clock

	platform     gpu.Platform
	platformName string

	cpuSize    int
	memorySize int

	gpuFrames int
	gpuWidth  int
	gpuHeight int

	seed   uint64
	seeded bool
}

// defaultOptions returns the default suite options.
func defaultOptions() options {
	return options{
		clock:      clock.System(),
		cpuSize:    cpu.DefaultSize,
		memorySize: memory.DefaultSize,
		gpuFrames:  gpu.DefaultFrames,
		gpuWidth:   gpu.DefaultWidth,
		gpuHeight:  gpu.DefaultHeight,
	}
}

// WithClock sets the clock that times every category. Tests pass a fake
// clock to get deterministic scores.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPlatform runs the GPU category on p instead of a registered platform.
func WithPlatform(p gpu.Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithPlatformName runs the GPU category on the registered platform with
// the given name. An empty name selects the highest-priority platform and
// falls back to the software rasterizer when it cannot be initialized.
func WithPlatformName(name string) Option {
	return func(o *options) {
		o.platformName = name
	}
}

// WithCPUSize sets the number of elements sorted by the CPU category.
func WithCPUSize(n int) Option {
	return func(o *options) {
		o.cpuSize = n
	}
}

// WithMemorySize sets the number of elements written and read by the
// memory category.
func WithMemorySize(n int) Option {
	return func(o *options) {
		o.memorySize = n
	}
}

// WithGPUFrames sets the number of frames rendered by the GPU category.
func WithGPUFrames(n int) Option {
	return func(o *options) {
		o.gpuFrames = n
	}
}

// WithGPUSize sets the pixel-buffer dimensions of the GPU category.
func WithGPUSize(width, height int) Option {
	return func(o *options) {
		o.gpuWidth = width
		o.gpuHeight = height
	}
}

// WithSeed makes the CPU and memory workloads reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}
