package gpu

import "sync"

// SurfaceRenderer receives the lifecycle callbacks of a presented surface.
// All callbacks arrive on the presenting thread with the context current.
type SurfaceRenderer interface {
	OnSurfaceCreated(ctx Context) error
	OnSurfaceChanged(width, height int) error
	OnDrawFrame() error
	// OnSurfaceDestroyed is called before the context and surface go away.
	OnSurfaceDestroyed()
}

// LiveAdapter attaches an unbounded SceneRenderer to a presented surface for
// visualization. It never produces a score and shares nothing with offscreen
// runs, so both can proceed at the same time.
//
// Detach may be called from any goroutine; once it returns no further
// callback reaches the renderer.
type LiveAdapter struct {
	mu       sync.Mutex
	renderer *SceneRenderer
	attached bool
	detached bool
}

// NewLiveAdapter creates an adapter around a new unbounded scene renderer.
func NewLiveAdapter(opts ...RendererOption) *LiveAdapter {
	return &LiveAdapter{renderer: NewSceneRenderer(Unbounded, opts...)}
}

// OnSurfaceCreated forwards the new context to the renderer.
func (a *LiveAdapter) OnSurfaceCreated(ctx Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return nil
	}
	a.attached = true
	return a.renderer.OnContextReady(ctx)
}

// OnSurfaceChanged forwards the new surface size to the renderer.
func (a *LiveAdapter) OnSurfaceChanged(width, height int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return nil
	}
	return a.renderer.OnViewportChanged(width, height)
}

// OnDrawFrame forwards a frame to the renderer.
func (a *LiveAdapter) OnDrawFrame() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return nil
	}
	return a.renderer.OnDrawFrame()
}

// OnSurfaceDestroyed releases the renderer's resources while the context is
// still current, then detaches.
func (a *LiveAdapter) OnSurfaceDestroyed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.renderer.Release()
	a.attached = false
	a.detached = true
}

// Detach stops forwarding callbacks. It is safe to call before any surface
// was attached and more than once. GPU resources are released by the
// presenting thread in OnSurfaceDestroyed, since only it has the context
// current.
func (a *LiveAdapter) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}
	a.detached = true
	slogger().Debug("live adapter detached", "frames", a.renderer.Frames(), "attached", a.attached)
}

// Attached reports whether a surface has been attached and the adapter is
// still forwarding.
func (a *LiveAdapter) Attached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached && !a.detached
}

// Frames returns the number of frames the renderer has drawn.
func (a *LiveAdapter) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderer.Frames()
}
