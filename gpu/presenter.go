package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
)

// DefaultFrameInterval paces presented frames at roughly 60 Hz.
const DefaultFrameInterval = time.Second / 60

// PresenterOption configures a Presenter.
type PresenterOption func(*presenterOptions)

type presenterOptions struct {
	interval  time.Duration
	maxFrames int
	snapshot  bool
}

// WithFrameInterval sets the time between presented frames.
func WithFrameInterval(d time.Duration) PresenterOption {
	return func(o *presenterOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithMaxFrames stops the presenter after n frames. Zero means until the
// context passed to Run is done.
func WithMaxFrames(n int) PresenterOption {
	return func(o *presenterOptions) {
		o.maxFrames = max(n, 0)
	}
}

// WithSnapshot makes the presenter read back the last frame before it tears
// the surface down. The image is available from LastFrame.
func WithSnapshot() PresenterOption {
	return func(o *presenterOptions) {
		o.snapshot = true
	}
}

// Presenter drives a SurfaceRenderer on a persistent surface sized from a
// window provider. It owns its display, context and surface and renders on
// its own locked OS thread.
type Presenter struct {
	platform Platform
	window   gpucontext.WindowProvider
	renderer SurfaceRenderer
	opts     presenterOptions

	mu     sync.Mutex
	frames int
	last   *image.RGBA
}

// NewPresenter creates a presenter. The window may be nil, in which case a
// headless 720x1280 window is assumed.
func NewPresenter(p Platform, window gpucontext.WindowProvider, r SurfaceRenderer, opts ...PresenterOption) *Presenter {
	o := presenterOptions{interval: DefaultFrameInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if window == nil {
		window = gpucontext.NullWindowProvider{W: DefaultWidth, H: DefaultHeight}
	}
	return &Presenter{platform: p, window: window, renderer: r, opts: o}
}

// Frames returns the number of frames presented so far.
func (p *Presenter) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// LastFrame returns the snapshot taken at shutdown, or nil.
func (p *Presenter) LastFrame() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// physicalSize converts the window size from logical points to pixels.
func physicalSize(w gpucontext.WindowProvider) (int, int) {
	lw, lh := w.Size()
	scale := w.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	return int(math.Round(float64(lw) * scale)), int(math.Round(float64(lh) * scale))
}

// Run presents frames until ctx is done or the frame limit is reached. The
// renderer is notified through OnSurfaceDestroyed before the surface is
// destroyed, on every exit path.
func (p *Presenter) Run(ctx context.Context) (err error) {
	if p.platform == nil {
		return fmt.Errorf("%w: no platform", ErrGraphicsInit)
	}
	width, height := physicalSize(p.window)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidViewport, width, height)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var (
		display Display
		cfg     Config
		glctx   Context
		surface Surface
		current bool
		created bool
	)
	defer func() {
		if v := recover(); v != nil {
			if current {
				err = fmt.Errorf("%w: panic: %v", ErrDraw, v)
			} else {
				err = fmt.Errorf("%w: panic: %v", ErrGraphicsInit, v)
			}
		}
		if display == nil {
			return
		}
		var errs []error
		if current && created {
			if p.opts.snapshot {
				p.takeSnapshot(glctx, surface)
			}
			p.renderer.OnSurfaceDestroyed()
		}
		if current {
			errs = append(errs, display.ReleaseCurrent())
		}
		if surface != nil {
			errs = append(errs, display.DestroySurface(surface))
		}
		if glctx != nil {
			errs = append(errs, display.DestroyContext(glctx))
		}
		errs = append(errs, display.Terminate())
		if terr := errors.Join(errs...); terr != nil {
			slogger().Warn("presenter teardown", "err", terr)
		}
	}()

	if display, err = p.platform.OpenDisplay(); err != nil {
		return fmt.Errorf("%w: open display: %w", ErrGraphicsInit, err)
	}
	if cfg, err = display.ChooseConfig(WindowConfig()); err != nil {
		return fmt.Errorf("%w: choose config: %w", ErrGraphicsInit, err)
	}
	if glctx, err = display.CreateContext(cfg); err != nil {
		return fmt.Errorf("%w: create context: %w", ErrGraphicsInit, err)
	}
	if surface, err = display.CreatePbufferSurface(cfg, width, height); err != nil {
		return fmt.Errorf("%w: create surface: %w", ErrGraphicsInit, err)
	}
	if err = display.MakeCurrent(surface, glctx); err != nil {
		return fmt.Errorf("%w: make current: %w", ErrGraphicsInit, err)
	}
	current = true

	created = true
	if err = p.renderer.OnSurfaceCreated(glctx); err != nil {
		return err
	}
	if err = p.renderer.OnSurfaceChanged(width, height); err != nil {
		return err
	}
	slogger().Info("presenter started", "device", display.Info().String(), "width", width, "height", height)

	ticker := time.NewTicker(p.opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if w, h := physicalSize(p.window); (w != width || h != height) && w > 0 && h > 0 {
			next, err := display.CreatePbufferSurface(cfg, w, h)
			if err != nil {
				return fmt.Errorf("%w: resize surface: %w", ErrGraphicsInit, err)
			}
			if err := display.MakeCurrent(next, glctx); err != nil {
				_ = display.DestroySurface(next)
				return fmt.Errorf("%w: make current: %w", ErrGraphicsInit, err)
			}
			if err := display.DestroySurface(surface); err != nil {
				slogger().Warn("destroy resized surface", "err", err)
			}
			surface = next
			width, height = w, h
			if err := p.renderer.OnSurfaceChanged(width, height); err != nil {
				return err
			}
		}

		if err := p.renderer.OnDrawFrame(); err != nil {
			return err
		}
		if err := glctx.Flush(); err != nil {
			return fmt.Errorf("%w: flush: %w", ErrDraw, err)
		}

		p.mu.Lock()
		p.frames++
		done := p.opts.maxFrames > 0 && p.frames >= p.opts.maxFrames
		p.mu.Unlock()
		if done {
			return nil
		}
	}
}

func (p *Presenter) takeSnapshot(ctx Context, s Surface) {
	snap, ok := s.(Snapshotter)
	if !ok {
		return
	}
	if err := ctx.Finish(); err != nil {
		slogger().Warn("presenter snapshot", "err", err)
		return
	}
	img, err := snap.Snapshot()
	if err != nil {
		slogger().Warn("presenter snapshot", "err", err)
		return
	}
	p.mu.Lock()
	p.last = img
	p.mu.Unlock()
}
