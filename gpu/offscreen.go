package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Default offscreen run parameters.
const (
	DefaultFrames = 1000
	DefaultWidth  = 720
	DefaultHeight = 1280
)

// OffscreenOption configures an Offscreen runner.
type OffscreenOption func(*offscreenOptions)

type offscreenOptions struct {
	renderer []RendererOption
	config   ConfigSpec
}

// WithRendererOptions passes options to the scene renderer of each run.
func WithRendererOptions(opts ...RendererOption) OffscreenOption {
	return func(o *offscreenOptions) {
		o.renderer = append(o.renderer, opts...)
	}
}

// WithConfig overrides the framebuffer attributes requested from the display.
func WithConfig(spec ConfigSpec) OffscreenOption {
	return func(o *offscreenOptions) {
		o.config = spec
	}
}

// Offscreen scores the scene renderer on a pixel-buffer surface with no
// window behind it. Each Run owns its own display, context and surface.
type Offscreen struct {
	platform Platform
	opts     offscreenOptions
}

// NewOffscreen creates an offscreen runner on the given platform.
func NewOffscreen(p Platform, opts ...OffscreenOption) *Offscreen {
	o := offscreenOptions{config: PbufferConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Offscreen{platform: p, opts: o}
}

// Measurement is the outcome of one offscreen run.
type Measurement struct {
	Frames  int
	Elapsed time.Duration
	FPS     float64
	Score   int
	Device  PlatformInfo
}

// Run renders targetFrames frames into a width x height pixel buffer and
// returns the score. See Measure.
func (o *Offscreen) Run(targetFrames, width, height int) (int, error) {
	m, err := o.Measure(targetFrames, width, height)
	return m.Score, err
}

// Measure renders targetFrames frames into a width x height pixel buffer,
// waiting for the device to finish each frame, and returns the measurement.
//
// Failures to acquire the display, config, context or surface wrap
// ErrGraphicsInit, and so do panics raised before the context is current; a
// program that does not compile wraps ErrShaderCompile; failures inside the
// frame loop and later panics wrap ErrDraw. In all these cases
// the score is 0 and everything acquired so far has been released.
func (o *Offscreen) Measure(targetFrames, width, height int) (m Measurement, err error) {
	if targetFrames < 1 {
		return Measurement{}, fmt.Errorf("%w: %d", ErrInvalidFrameCount, targetFrames)
	}
	if width <= 0 || height <= 0 {
		return Measurement{}, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	if o.platform == nil {
		return Measurement{}, fmt.Errorf("%w: no platform", ErrGraphicsInit)
	}

	// The context is bound to this OS thread until teardown.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var res offscreenResources
	defer func() {
		if terr := res.release(); terr != nil {
			slogger().Warn("offscreen teardown", "platform", o.platform.Name(), "err", terr)
		}
	}()
	// A panic before the context is current is a bring-up failure.
	defer func() {
		if v := recover(); v != nil {
			m = Measurement{}
			if res.current {
				err = fmt.Errorf("%w: panic: %v", ErrDraw, v)
			} else {
				err = fmt.Errorf("%w: panic: %v", ErrGraphicsInit, v)
			}
		}
	}()

	display, err := o.platform.OpenDisplay()
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: open display: %w", ErrGraphicsInit, err)
	}
	res.display = display
	m.Device = display.Info()

	cfg, err := display.ChooseConfig(o.opts.config)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: choose config: %w", ErrGraphicsInit, err)
	}
	ctx, err := display.CreateContext(cfg)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: create context: %w", ErrGraphicsInit, err)
	}
	res.context = ctx
	surface, err := display.CreatePbufferSurface(cfg, width, height)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: create surface: %w", ErrGraphicsInit, err)
	}
	res.surface = surface
	if err := display.MakeCurrent(surface, ctx); err != nil {
		return Measurement{}, fmt.Errorf("%w: make current: %w", ErrGraphicsInit, err)
	}
	res.current = true

	slogger().Debug("offscreen context ready",
		"device", m.Device.String(),
		"frames", targetFrames,
		"width", width,
		"height", height)

	r := NewSceneRenderer(targetFrames, o.opts.renderer...)
	res.renderer = r
	if err := r.OnContextReady(ctx); err != nil {
		return Measurement{}, err
	}
	if err := r.OnViewportChanged(width, height); err != nil {
		return Measurement{}, err
	}

	for i := 0; i < targetFrames; i++ {
		if err := r.OnDrawFrame(); err != nil {
			return Measurement{}, err
		}
		if err := ctx.Finish(); err != nil {
			return Measurement{}, fmt.Errorf("%w: finish frame %d: %w", ErrDraw, i, err)
		}
	}

	m.Frames = r.Frames()
	m.Elapsed = r.Elapsed()
	m.FPS = r.FPS()
	m.Score = r.Score()
	return m, nil
}

// offscreenResources tracks what a run has acquired so that one routine can
// release it in reverse order on every exit path.
type offscreenResources struct {
	display  Display
	context  Context
	surface  Surface
	current  bool
	renderer *SceneRenderer
}

func (r *offscreenResources) release() error {
	if r.display == nil {
		return nil
	}
	var errs []error
	if r.renderer != nil && r.current {
		r.renderer.Release()
	}
	if r.current {
		if err := r.display.ReleaseCurrent(); err != nil {
			errs = append(errs, fmt.Errorf("release current: %w", err))
		}
	}
	if r.surface != nil {
		if err := r.display.DestroySurface(r.surface); err != nil {
			errs = append(errs, fmt.Errorf("destroy surface: %w", err))
		}
	}
	if r.context != nil {
		if err := r.display.DestroyContext(r.context); err != nil {
			errs = append(errs, fmt.Errorf("destroy context: %w", err))
		}
	}
	if err := r.display.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate: %w", err))
	}
	*r = offscreenResources{}
	return errors.Join(errs...)
}
