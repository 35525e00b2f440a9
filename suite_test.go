package ggbench

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/gpu/gputest"
	"github.com/gogpu/ggbench/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeSuite returns a suite with small workloads on p and a clock that
// advances 1.5 s per reading.
func fakeSuite(p gpu.Platform, opts ...Option) *Suite {
	base := []Option{
		WithClock(clock.NewFake(epoch, 1500*time.Millisecond)),
		WithPlatform(p),
		WithCPUSize(1000),
		WithMemorySize(10000),
		WithGPUFrames(300),
		WithSeed(1),
	}
	return New(append(base, opts...)...)
}

func TestRunAllEndToEnd(t *testing.T) {
	p := gputest.New()
	rep := fakeSuite(p).RunAll(context.Background())

	if !rep.Complete() {
		t.Fatalf("report not complete:\n%v", rep)
	}
	for _, r := range rep.Results() {
		if r.Status != StatusOK {
			t.Errorf("%v: status = %v, err = %v", r.Category, r.Status, r.Err)
		}
		if r.Score < 0 {
			t.Errorf("%v: negative score %d", r.Category, r.Score)
		}
	}

	cpuScore, memScore, gpuScore := rep.Scores()
	// 300 frames in 1.5 s is 200 fps, times the complexity factor 50.
	if gpuScore != 10000 {
		t.Errorf("gpu score = %d, want 10000", gpuScore)
	}
	if cpuScore != 1000*1000/1500 {
		t.Errorf("cpu score = %d, want %d", cpuScore, 1000*1000/1500)
	}
	if memScore != 10000/1500 {
		t.Errorf("memory score = %d, want %d", memScore, 10000/1500)
	}
	if rep.GPU.FPS != 200 {
		t.Errorf("gpu fps = %v, want 200", rep.GPU.FPS)
	}
	if !strings.Contains(rep.GPU.Device, "Fake Adapter") {
		t.Errorf("gpu device = %q", rep.GPU.Device)
	}
	if err := p.Balanced(); err != nil {
		t.Errorf("gpu resources not balanced: %v", err)
	}
}

func TestRunAllGPUFailures(t *testing.T) {
	tests := []struct {
		name    string
		p       *gputest.Platform
		status  Status
		wantErr error
	}{
		{"no display", gputest.New().FailAt(gputest.StepOpenDisplay), StatusUnavailable, gpu.ErrGraphicsInit},
		{"no context", gputest.New().FailAt(gputest.StepCreateContext), StatusUnavailable, gpu.ErrGraphicsInit},
		{"display panic", gputest.New().PanicAt(gputest.StepOpenDisplay), StatusUnavailable, gpu.ErrGraphicsInit},
		{"context panic", gputest.New().PanicAt(gputest.StepCreateContext), StatusUnavailable, gpu.ErrGraphicsInit},
		{"compile panic", gputest.New().PanicAt(gputest.StepCompile), StatusError, gpu.ErrDraw},
		{"shader", gputest.New().FailAt(gputest.StepCompile), StatusUnavailable, gpu.ErrShaderCompile},
		{"draw error", gputest.New().FailDrawAt(7), StatusError, gpu.ErrDraw},
		{"draw panic", gputest.New().PanicDrawAt(7), StatusError, gpu.ErrDraw},
		{"finish", gputest.New().FailAt(gputest.StepFinish), StatusError, gpu.ErrDraw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := fakeSuite(tt.p).RunAll(context.Background())

			if rep.GPU.Status != tt.status {
				t.Errorf("gpu status = %v, want %v", rep.GPU.Status, tt.status)
			}
			if !errors.Is(rep.GPU.Err, tt.wantErr) {
				t.Errorf("gpu err = %v, want %v", rep.GPU.Err, tt.wantErr)
			}
			if rep.GPU.Score != 0 {
				t.Errorf("gpu score = %d, want 0", rep.GPU.Score)
			}
			// The other categories are unaffected.
			if rep.CPU.Status != StatusOK || rep.Memory.Status != StatusOK {
				t.Errorf("cpu/memory status = %v/%v, want OK", rep.CPU.Status, rep.Memory.Status)
			}
			if !rep.Complete() {
				t.Error("a failed category still completes the report")
			}
			if err := tt.p.Balanced(); err != nil {
				t.Errorf("gpu resources not balanced: %v", err)
			}
		})
	}
}

// panicPlatform panics as soon as the suite asks for its name.
type panicPlatform struct{}

func (panicPlatform) Name() string                      { panic("broken platform") }
func (panicPlatform) OpenDisplay() (gpu.Display, error) { return nil, errors.New("unreachable") }

func TestRunAllRecoversCategoryPanic(t *testing.T) {
	rep := fakeSuite(panicPlatform{}).RunAll(context.Background())

	if rep.GPU.Status != StatusError || !errors.Is(rep.GPU.Err, ErrPanic) {
		t.Errorf("gpu = %v / %v, want Error / ErrPanic", rep.GPU.Status, rep.GPU.Err)
	}
	if rep.CPU.Status != StatusOK || rep.Memory.Status != StatusOK {
		t.Errorf("cpu/memory status = %v/%v, want OK", rep.CPU.Status, rep.Memory.Status)
	}
}

func TestRunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := gputest.New()
	rep := fakeSuite(p).RunAll(ctx)
	for _, r := range rep.Results() {
		if r.Status != StatusSkipped || !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%v = %v / %v, want Skipped / context.Canceled", r.Category, r.Status, r.Err)
		}
	}
	if rep.Complete() {
		t.Error("skipped report is complete")
	}
	if p.Counts().DisplaysOpened != 0 {
		t.Error("gpu ran after cancellation")
	}
}

func TestRunInvalidSizes(t *testing.T) {
	s := fakeSuite(gputest.New(), WithCPUSize(0), WithMemorySize(-1))
	for _, c := range []Category{CategoryCPU, CategoryMemory} {
		r := s.Run(context.Background(), c)
		if r.Status != StatusError || !errors.Is(r.Err, ErrInvalidSize) {
			t.Errorf("%v = %v / %v, want Error / ErrInvalidSize", c, r.Status, r.Err)
		}
	}
}

func TestPlatformSelection(t *testing.T) {
	t.Run("unknown name", func(t *testing.T) {
		s := New(WithPlatformName("no-such-platform"), WithGPUFrames(1))
		r := s.Run(context.Background(), CategoryGPU)
		if r.Status != StatusUnavailable || !errors.Is(r.Err, gpu.ErrPlatformNotAvailable) {
			t.Errorf("gpu = %v / %v, want Unavailable / ErrPlatformNotAvailable", r.Status, r.Err)
		}
	})

	t.Run("falls back to software", func(t *testing.T) {
		broken := gputest.New().FailAt(gputest.StepOpenDisplay)
		gpu.RegisterPlatform(gpu.PlatformWGPU, func() gpu.Platform { return broken })
		t.Cleanup(func() { gpu.UnregisterPlatform(gpu.PlatformWGPU) })

		s := New(WithGPUFrames(2), WithGPUSize(36, 64))
		r := s.Run(context.Background(), CategoryGPU)
		if r.Status != StatusOK {
			t.Fatalf("gpu = %v / %v, want OK", r.Status, r.Err)
		}
		if !strings.Contains(r.Device, gpu.PlatformSoftware) {
			t.Errorf("device = %q, want the software platform", r.Device)
		}
		if broken.Counts().DisplaysOpened != 0 {
			t.Error("broken platform opened a display")
		}
	})

	t.Run("falls back after a driver panic", func(t *testing.T) {
		broken := gputest.New().PanicAt(gputest.StepCreateContext)
		gpu.RegisterPlatform(gpu.PlatformWGPU, func() gpu.Platform { return broken })
		t.Cleanup(func() { gpu.UnregisterPlatform(gpu.PlatformWGPU) })

		s := New(WithGPUFrames(2), WithGPUSize(36, 64))
		r := s.Run(context.Background(), CategoryGPU)
		if r.Status != StatusOK {
			t.Fatalf("gpu = %v / %v, want OK", r.Status, r.Err)
		}
		if !strings.Contains(r.Device, gpu.PlatformSoftware) {
			t.Errorf("device = %q, want the software platform", r.Device)
		}
		if err := broken.Balanced(); err != nil {
			t.Errorf("broken platform not balanced: %v", err)
		}
	})

	t.Run("named platform does not fall back", func(t *testing.T) {
		broken := gputest.New().FailAt(gputest.StepOpenDisplay)
		gpu.RegisterPlatform(gpu.PlatformWGPU, func() gpu.Platform { return broken })
		t.Cleanup(func() { gpu.UnregisterPlatform(gpu.PlatformWGPU) })

		s := New(WithPlatformName(gpu.PlatformWGPU), WithGPUFrames(2), WithGPUSize(36, 64))
		r := s.Run(context.Background(), CategoryGPU)
		if r.Status != StatusUnavailable || !errors.Is(r.Err, gpu.ErrGraphicsInit) {
			t.Errorf("gpu = %v / %v, want Unavailable / ErrGraphicsInit", r.Status, r.Err)
		}
	})
}

func TestStart(t *testing.T) {
	s := fakeSuite(gputest.New())

	ch := s.Start(context.Background())
	rep, ok := <-ch
	if !ok {
		t.Fatal("channel closed without a report")
	}
	if rep.GPU.Score != 10000 {
		t.Errorf("gpu score = %d, want 10000", rep.GPU.Score)
	}
	if _, ok := <-ch; ok {
		t.Error("channel delivered a second report")
	}
}

func TestCloseWaitsAndRejects(t *testing.T) {
	s := fakeSuite(gputest.New())

	ch := s.Start(context.Background())
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// The in-flight run finished before Close returned.
	select {
	case <-ch:
	default:
		t.Fatal("Close returned before the in-flight run delivered")
	}

	rep := <-s.Start(context.Background())
	for _, r := range rep.Results() {
		if r.Status != StatusSkipped || !errors.Is(r.Err, ErrClosed) {
			t.Errorf("%v after Close = %v / %v, want Skipped / ErrClosed", r.Category, r.Status, r.Err)
		}
	}
	if r := s.Run(context.Background(), CategoryCPU); !errors.Is(r.Err, ErrClosed) {
		t.Errorf("Run after Close err = %v, want ErrClosed", r.Err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{gpu.ErrGraphicsInit, StatusUnavailable},
		{gpu.ErrShaderCompile, StatusUnavailable},
		{gpu.ErrPlatformNotAvailable, StatusUnavailable},
		{gpu.ErrDraw, StatusError},
		{gpu.ErrInvalidFrameCount, StatusError},
		{errors.New("other"), StatusError},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
