package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/ggbench/internal/clock"
)

// Unbounded is the frame target of a renderer that never completes.
const Unbounded = math.MaxInt

// RendererOption configures a SceneRenderer.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	clock  clock.Clock
	shader ShaderSource
}

func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		clock:  clock.System(),
		shader: SceneShader(),
	}
}

// WithClock sets the clock used to time the run.
func WithClock(c clock.Clock) RendererOption {
	return func(o *rendererOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithShader replaces the scene program. The source must provide the
// position and uv attributes and the mvp and light_pos uniforms.
func WithShader(src ShaderSource) RendererOption {
	return func(o *rendererOptions) {
		o.shader = src
	}
}

// SceneRenderer draws five textured, lit cubes per frame and turns the frame
// rate reached over targetFrames frames into a score.
//
// The renderer is driven by a single rendering thread through OnContextReady,
// OnViewportChanged and OnDrawFrame and is not safe for concurrent use.
type SceneRenderer struct {
	opts   rendererOptions
	target int

	ctx      Context
	ready    bool
	program  Program
	geometry Geometry
	locMVP   int
	locLight int

	projection Mat4
	view       Mat4
	viewport   bool

	start    time.Time
	elapsed  time.Duration
	frames   int
	score    int
	complete bool
}

// NewSceneRenderer creates a renderer that completes after targetFrames
// frames. Use Unbounded for a renderer that draws forever.
func NewSceneRenderer(targetFrames int, opts ...RendererOption) *SceneRenderer {
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SceneRenderer{
		opts:   o,
		target: targetFrames,
		view:   viewMatrix(),
	}
}

// OnContextReady prepares the renderer for drawing into ctx: it sets the
// fixed render state, uploads the cube, compiles the program, resolves its
// locations and restarts the clock.
//
// Calling it again with a new context forgets the resources of the previous
// one, which are assumed to have died with it.
func (r *SceneRenderer) OnContextReady(ctx Context) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrGraphicsInit)
	}
	if ctx == r.ctx {
		r.Release()
	}
	r.ready = false
	r.program = nil
	r.geometry = nil
	// Resources are tracked as soon as they exist so that Release reaches
	// them even if a later step panics.
	r.ctx = ctx

	ctx.ClearColor(Black)
	ctx.EnableDepthTest()

	vertices, indices := CubeGeometry()
	geometry, err := ctx.CreateGeometry(vertices, indices)
	if err != nil {
		r.ctx = nil
		return fmt.Errorf("%w: create geometry: %w", ErrGraphicsInit, err)
	}
	r.geometry = geometry

	program, err := ctx.CompileProgram(r.opts.shader)
	if err != nil {
		r.Release()
		return fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	r.program = program

	layout := program.Layout()
	missing := func(kind, name string) error {
		r.Release()
		return fmt.Errorf("%w: %s has no %s %q", ErrShaderCompile, layout.Label, kind, name)
	}
	for _, name := range []string{AttribPosition, AttribUV} {
		if layout.AttribLocation(name) < 0 {
			return missing("attribute", name)
		}
	}
	locMVP := layout.UniformLocation(UniformMVP)
	if locMVP < 0 {
		return missing("uniform", UniformMVP)
	}
	locLight := layout.UniformLocation(UniformLight)
	if locLight < 0 {
		return missing("uniform", UniformLight)
	}

	r.locMVP = locMVP
	r.locLight = locLight
	r.ready = true

	r.frames = 0
	r.score = 0
	r.elapsed = 0
	r.complete = false
	r.start = r.opts.clock.Now()

	slogger().Debug("scene renderer ready", "program", layout.Label, "target", r.target)
	return nil
}

// OnViewportChanged sets the viewport and the projection for a drawable of
// the given size.
func (r *SceneRenderer) OnViewportChanged(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	if r.ctx != nil {
		r.ctx.Viewport(0, 0, width, height)
	}
	r.projection = projectionFor(width, height)
	r.viewport = true
	return nil
}

// OnDrawFrame renders one frame. Once the target has been reached it does
// nothing. The frame that reaches the target computes the score.
func (r *SceneRenderer) OnDrawFrame() error {
	if r.complete {
		return nil
	}
	if !r.ready || !r.viewport {
		return ErrNotReady
	}

	ctx := r.ctx
	ctx.Clear()
	ctx.UseProgram(r.program)

	light := lightPosition(r.frames)
	vp := r.projection.Multiply(r.view)
	for i := 0; i < ObjectCount; i++ {
		mvp := vp.Multiply(objectModel(i, r.frames))
		ctx.UniformMatrix4(r.locMVP, mvp)
		ctx.Uniform3(r.locLight, light)
		if err := ctx.DrawElements(r.geometry); err != nil {
			return fmt.Errorf("%w: frame %d object %d: %w", ErrDraw, r.frames, i, err)
		}
	}

	r.frames++
	if l := slogger(); l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("rendered frame", "frame", r.frames)
	}

	if r.frames >= r.target {
		r.finish()
	}
	return nil
}

func (r *SceneRenderer) finish() {
	r.elapsed = r.opts.clock.Now().Sub(r.start)
	r.score = frameScore(r.frames, r.elapsed)
	r.complete = true
	slogger().Info("gpu benchmark complete",
		"frames", r.frames,
		"elapsed", r.elapsed,
		"fps", r.FPS(),
		"score", r.score)
}

// frameScore converts a frame count over an elapsed time into a score.
// A non-positive elapsed time scores 0.
func frameScore(frames int, elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	fps := float64(frames) / elapsed.Seconds()
	return int(math.Floor(fps * ComplexityFactor))
}

// Score returns 0 until the target frame has been drawn, then the final
// score.
func (r *SceneRenderer) Score() int { return r.score }

// FPS returns the measured frame rate, or 0 before completion.
func (r *SceneRenderer) FPS() float64 {
	if !r.complete || r.elapsed <= 0 {
		return 0
	}
	return float64(r.frames) / r.elapsed.Seconds()
}

// Elapsed returns the time between OnContextReady and the target frame.
func (r *SceneRenderer) Elapsed() time.Duration { return r.elapsed }

// Frames returns the number of frames drawn since OnContextReady.
func (r *SceneRenderer) Frames() int { return r.frames }

// Complete reports whether the target frame has been drawn.
func (r *SceneRenderer) Complete() bool { return r.complete }

// Ready reports whether the renderer holds a context with a usable program.
func (r *SceneRenderer) Ready() bool { return r.ready }

// Release deletes the program and geometry. The context must still be
// current. Release is idempotent.
func (r *SceneRenderer) Release() {
	if r.ctx == nil {
		return
	}
	if r.program != nil {
		r.ctx.DeleteProgram(r.program)
		r.program = nil
	}
	if r.geometry != nil {
		r.ctx.DeleteGeometry(r.geometry)
		r.geometry = nil
	}
	r.ctx = nil
	r.ready = false
}
