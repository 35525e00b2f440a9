package ggbench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/gogpu/ggbench/cpu"
	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/memory"

	// The software rasterizer is the GPU fallback and is always available.
	_ "github.com/gogpu/ggbench/gpu/software"
)

// Suite errors.
var (
	// ErrClosed is returned for runs requested after Close.
	ErrClosed = errors.New("ggbench: suite closed")

	// ErrPanic wraps a panic recovered at a category boundary.
	ErrPanic = errors.New("ggbench: benchmark panicked")

	// ErrInvalidSize is returned for a CPU or memory workload below one
	// element.
	ErrInvalidSize = errors.New("ggbench: workload size must be at least 1")
)

// seedMix decorrelates the two PCG words derived from one seed.
const seedMix = 0x9e3779b97f4a7c15

// Suite runs the CPU, memory and GPU benchmarks and collects their scores.
//
// Runs are serialized: a Suite executes at most one run at a time and
// RunAll blocks while another run is in progress.
type Suite struct {
	opts options

	// runMu serializes runs.
	runMu sync.Mutex

	// stateMu guards closed and the in-flight counter.
	stateMu sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New creates a suite.
func New(opts ...Option) *Suite {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Suite{opts: o}
}

// RunAll runs every category in order on the calling goroutine and returns
// the report. A failing category never stops the others. ctx is checked
// between categories: once it is done, the remaining categories are marked
// StatusSkipped.
func (s *Suite) RunAll(ctx context.Context) Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rep := newReport()
	for _, c := range Categories {
		if err := s.runnable(ctx); err != nil {
			rep.set(Result{Category: c, Status: StatusSkipped, Err: err})
			continue
		}
		rep.set(s.runCategory(c))
	}
	slogger().Info("benchmark run complete", "complete", rep.Complete())
	return rep
}

// Run runs a single category.
func (s *Suite) Run(ctx context.Context, c Category) Result {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.runnable(ctx); err != nil {
		return Result{Category: c, Status: StatusSkipped, Err: err}
	}
	return s.runCategory(c)
}

// Start runs RunAll on a new goroutine and delivers the report on the
// returned channel, which receives exactly one value and is then closed.
func (s *Suite) Start(ctx context.Context) <-chan Report {
	ch := make(chan Report, 1)

	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		rep := newReport()
		for _, c := range Categories {
			rep.set(Result{Category: c, Status: StatusSkipped, Err: ErrClosed})
		}
		ch <- rep
		close(ch)
		return ch
	}
	s.pending.Add(1)
	s.stateMu.Unlock()

	go func() {
		defer s.pending.Done()
		defer close(ch)
		ch <- s.RunAll(ctx)
	}()
	return ch
}

// Close rejects new runs and waits for runs started with Start to finish.
// A run in flight stops at its next category boundary and reports the rest
// as skipped. Close is safe to call more than once.
func (s *Suite) Close() error {
	s.stateMu.Lock()
	s.closed = true
	s.stateMu.Unlock()

	s.pending.Wait()
	return nil
}

func (s *Suite) runnable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// runCategory runs one category and converts every failure, panics
// included, into a result.
func (s *Suite) runCategory(c Category) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			res = Result{Category: c, Status: StatusError, Err: fmt.Errorf("%w: %s: %v", ErrPanic, c, v)}
		}
		s.logResult(res)
	}()

	switch c {
	case CategoryCPU:
		return s.runCPU()
	case CategoryMemory:
		return s.runMemory()
	case CategoryGPU:
		return s.runGPU()
	default:
		return Result{Category: c, Status: StatusError, Err: fmt.Errorf("ggbench: unknown category %d", c)}
	}
}

func (s *Suite) logResult(res Result) {
	switch res.Status {
	case StatusOK:
		slogger().Info("benchmark complete",
			"category", res.Category.String(),
			"score", res.Score,
			"duration", res.Duration)
	default:
		slogger().Warn("benchmark failed",
			"category", res.Category.String(),
			"status", res.Status.String(),
			"err", res.Err)
	}
}

// rng returns the generator for one workload. Each category gets its own
// stream so that the order of runs does not change the data.
func (s *Suite) rng(c Category) *rand.Rand {
	if !s.opts.seeded {
		return nil
	}
	seed := s.opts.seed + uint64(c)
	return rand.New(rand.NewPCG(seed, seed^seedMix)) //nolint:gosec // benchmark data, not crypto
}

func (s *Suite) runCPU() Result {
	n := s.opts.cpuSize
	if n < 1 {
		return Result{Category: CategoryCPU, Status: StatusError, Err: fmt.Errorf("%w: %d", ErrInvalidSize, n)}
	}
	slogger().Debug("cpu benchmark", "size", n)

	data := cpu.NewWorkload(n, s.rng(CategoryCPU))
	r := cpu.Run(data, s.opts.clock)
	return Result{
		Category: CategoryCPU,
		Status:   StatusOK,
		Score:    r.Score(),
		Size:     r.Size,
		Duration: r.Duration,
	}
}

func (s *Suite) runMemory() Result {
	n := s.opts.memorySize
	if n < 1 {
		return Result{Category: CategoryMemory, Status: StatusError, Err: fmt.Errorf("%w: %d", ErrInvalidSize, n)}
	}
	slogger().Debug("memory benchmark", "size", n)

	buf := memory.NewBuffer(n)
	r := memory.Run(buf, s.rng(CategoryMemory), s.opts.clock)
	return Result{
		Category: CategoryMemory,
		Status:   StatusOK,
		Score:    r.Score(),
		Size:     r.Size,
		Duration: r.Duration,
	}
}

func (s *Suite) runGPU() Result {
	res := Result{Category: CategoryGPU, Size: s.opts.gpuFrames}

	p, auto, err := s.platform()
	if err != nil {
		res.Status, res.Err = StatusUnavailable, err
		return res
	}
	slogger().Debug("gpu benchmark",
		"platform", p.Name(),
		"frames", s.opts.gpuFrames,
		"width", s.opts.gpuWidth,
		"height", s.opts.gpuHeight)

	m, err := s.measure(p)
	if err != nil && auto && errors.Is(err, gpu.ErrGraphicsInit) && p.Name() != gpu.PlatformSoftware {
		slogger().Warn("gpu platform unavailable, falling back to software",
			"platform", p.Name(),
			"err", err)
		if sw, lerr := gpu.LookupPlatform(gpu.PlatformSoftware); lerr == nil {
			m, err = s.measure(sw)
		}
	}

	if err != nil {
		res.Status, res.Err = classify(err), err
		return res
	}
	res.Status = StatusOK
	res.Device = m.Device.String()
	res.Score = m.Score
	res.Size = m.Frames
	res.Duration = m.Elapsed
	res.FPS = m.FPS
	return res
}

// platform resolves the GPU platform. auto reports whether it was chosen by
// priority rather than by the caller.
func (s *Suite) platform() (p gpu.Platform, auto bool, err error) {
	switch {
	case s.opts.platform != nil:
		return s.opts.platform, false, nil
	case s.opts.platformName != "":
		p, err = gpu.LookupPlatform(s.opts.platformName)
		return p, false, err
	default:
		p, err = gpu.DefaultPlatform()
		return p, true, err
	}
}

func (s *Suite) measure(p gpu.Platform) (gpu.Measurement, error) {
	o := gpu.NewOffscreen(p, gpu.WithRendererOptions(gpu.WithClock(s.opts.clock)))
	return o.Measure(s.opts.gpuFrames, s.opts.gpuWidth, s.opts.gpuHeight)
}

// classify maps a GPU failure onto a status. Initialization and shader
// failures fail closed; anything else is an error.
func classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, gpu.ErrGraphicsInit),
		errors.Is(err, gpu.ErrShaderCompile),
		errors.Is(err, gpu.ErrPlatformNotAvailable):
		return StatusUnavailable
	default:
		return StatusError
	}
}
