// Package gputest provides a counting fake graphics platform for tests.
//
// The fake records every create, destroy and bind call so that tests can
// check that each exit path releases what it acquired, and it can inject a
// failure or a panic at any step of the bring-up sequence or the frame loop.
//
//	p := gputest.New().FailAt(gputest.StepCreateSurface)
//	_, err := gpu.NewOffscreen(p).Run(10, 64, 64)
//	// errors.Is(err, gpu.ErrGraphicsInit) and p.Balanced() == nil
package gputest

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/gpucontext"
)

// Name is the platform name of the fake.
const Name = "fake"

// ErrInjected is returned by a step configured to fail.
var ErrInjected = errors.New("gputest: injected failure")

// Step identifies an operation that can be made to fail.
type Step string

// Steps of the bring-up sequence and the frame loop.
const (
	StepOpenDisplay    Step = "open-display"
	StepChooseConfig   Step = "choose-config"
	StepCreateContext  Step = "create-context"
	StepCreateSurface  Step = "create-surface"
	StepMakeCurrent    Step = "make-current"
	StepCreateGeometry Step = "create-geometry"
	StepCompile        Step = "compile"
	StepFinish         Step = "finish"
)

// Counts is a snapshot of the calls recorded by a Platform.
type Counts struct {
	DisplaysOpened     int
	DisplaysTerminated int
	Contexts           int
	ContextsDestroyed  int
	Surfaces           int
	SurfacesDestroyed  int
	MakeCurrent        int
	ReleaseCurrent     int
	Programs           int
	ProgramsDeleted    int
	Geometries         int
	GeometriesDeleted  int

	Clears   int
	Draws    int
	Uniforms int
	Flushes  int
	Finishes int

	// Current is the number of displays that still have a context bound.
	Current int

	// Violations lists misuse detected by the fake, such as drawing without
	// a current context or binding two contexts on one display.
	Violations []string
}

// Platform is a fake gpu.Platform. It is safe for concurrent use.
type Platform struct {
	mu       sync.Mutex
	fail     map[Step]bool
	panics   map[Step]bool
	failDraw int
	panicAt  int
	counts   Counts
	displays []*display
	nextID   int
}

// New returns a fake platform on which every step succeeds.
func New() *Platform {
	return &Platform{fail: make(map[Step]bool), panics: make(map[Step]bool)}
}

// FailAt makes step return ErrInjected. It returns p for chaining.
func (p *Platform) FailAt(step Step) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[step] = true
	return p
}

// PanicAt makes step panic, the way a broken driver does. It returns p for
// chaining.
func (p *Platform) PanicAt(step Step) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panics[step] = true
	return p
}

// FailDrawAt makes the n-th DrawElements call (1-based) return ErrInjected.
func (p *Platform) FailDrawAt(n int) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failDraw = n
	return p
}

// PanicDrawAt makes the n-th DrawElements call (1-based) panic.
func (p *Platform) PanicDrawAt(n int) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panicAt = n
	return p
}

// Name implements gpu.Platform.
func (p *Platform) Name() string { return Name }

// Counts returns a snapshot of the recorded calls.
func (p *Platform) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.counts
	c.Violations = append([]string(nil), p.counts.Violations...)
	c.Current = 0
	for _, d := range p.displays {
		if d.current != nil {
			c.Current++
		}
	}
	return c
}

// Balanced returns an error describing every resource that was acquired
// but not released, every binding left current, and every violation.
func (p *Platform) Balanced() error {
	c := p.Counts()
	var errs []error
	pair := func(what string, created, destroyed int) {
		if created != destroyed {
			errs = append(errs, fmt.Errorf("%s: %d created, %d destroyed", what, created, destroyed))
		}
	}
	pair("displays", c.DisplaysOpened, c.DisplaysTerminated)
	pair("contexts", c.Contexts, c.ContextsDestroyed)
	pair("surfaces", c.Surfaces, c.SurfacesDestroyed)
	pair("programs", c.Programs, c.ProgramsDeleted)
	pair("geometries", c.Geometries, c.GeometriesDeleted)
	if c.Current != 0 {
		errs = append(errs, fmt.Errorf("%d displays still have a current context", c.Current))
	}
	for _, v := range c.Violations {
		errs = append(errs, errors.New(v))
	}
	return errors.Join(errs...)
}

func (p *Platform) failing(step Step) error {
	if p.panics[step] {
		panic(fmt.Sprintf("gputest: injected panic at %s", step))
	}
	if p.fail[step] {
		return fmt.Errorf("%w at %s", ErrInjected, step)
	}
	return nil
}

func (p *Platform) violation(format string, args ...any) {
	p.counts.Violations = append(p.counts.Violations, fmt.Sprintf(format, args...))
}

// OpenDisplay implements gpu.Platform.
func (p *Platform) OpenDisplay() (gpu.Display, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing(StepOpenDisplay); err != nil {
		return nil, err
	}
	p.counts.DisplaysOpened++
	d := &display{p: p}
	p.displays = append(p.displays, d)
	return d, nil
}

type config struct {
	d    *display
	spec gpu.ConfigSpec
}

func (c *config) Spec() gpu.ConfigSpec { return c.spec }

type display struct {
	p          *Platform
	terminated bool
	current    *context
}

func (d *display) Info() gpu.PlatformInfo {
	return gpu.PlatformInfo{
		Platform: Name,
		Adapter:  gpucontext.AdapterInfo{Name: "Fake Adapter", Type: gpucontext.AdapterTypeSoftware},
	}
}

func (d *display) ChooseConfig(spec gpu.ConfigSpec) (gpu.Config, error) {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	if err := d.p.failing(StepChooseConfig); err != nil {
		return nil, err
	}
	if d.terminated {
		return nil, gpu.ErrDisplayTerminated
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &config{d: d, spec: spec}, nil
}

func (d *display) CreateContext(cfg gpu.Config) (gpu.Context, error) {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	if err := d.p.failing(StepCreateContext); err != nil {
		return nil, err
	}
	if c, ok := cfg.(*config); !ok || c.d != d {
		return nil, gpu.ErrForeignResource
	}
	d.p.counts.Contexts++
	d.p.nextID++
	return &context{d: d, id: d.p.nextID}, nil
}

func (d *display) CreatePbufferSurface(cfg gpu.Config, width, height int) (gpu.Surface, error) {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	if err := d.p.failing(StepCreateSurface); err != nil {
		return nil, err
	}
	if c, ok := cfg.(*config); !ok || c.d != d {
		return nil, gpu.ErrForeignResource
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", gpu.ErrInvalidViewport, width, height)
	}
	d.p.counts.Surfaces++
	return &surface{d: d, w: width, h: height}, nil
}

func (d *display) MakeCurrent(s gpu.Surface, c gpu.Context) error {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	if err := d.p.failing(StepMakeCurrent); err != nil {
		return err
	}
	surf, ok := s.(*surface)
	ctx, ok2 := c.(*context)
	if !ok || !ok2 || surf.d != d || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if surf.destroyed || ctx.destroyed {
		d.p.violation("make current with a destroyed resource")
		return fmt.Errorf("gputest: destroyed resource")
	}
	if d.current != nil && d.current != ctx {
		d.p.violation("context %d made current while context %d is current", ctx.id, d.current.id)
	}
	d.p.counts.MakeCurrent++
	d.current = ctx
	ctx.target = surf
	return nil
}

func (d *display) ReleaseCurrent() error {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	d.p.counts.ReleaseCurrent++
	if d.current != nil {
		d.current.target = nil
		d.current = nil
	}
	return nil
}

func (d *display) DestroySurface(s gpu.Surface) error {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	surf, ok := s.(*surface)
	if !ok || surf.d != d {
		return gpu.ErrForeignResource
	}
	if surf.destroyed {
		d.p.violation("surface destroyed twice")
		return nil
	}
	surf.destroyed = true
	d.p.counts.SurfacesDestroyed++
	return nil
}

func (d *display) DestroyContext(c gpu.Context) error {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	ctx, ok := c.(*context)
	if !ok || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if ctx.destroyed {
		d.p.violation("context destroyed twice")
		return nil
	}
	if d.current == ctx {
		d.p.violation("context %d destroyed while current", ctx.id)
	}
	ctx.destroyed = true
	d.p.counts.ContextsDestroyed++
	return nil
}

func (d *display) Terminate() error {
	d.p.mu.Lock()
	defer d.p.mu.Unlock()
	if d.terminated {
		d.p.violation("display terminated twice")
		return nil
	}
	if d.current != nil {
		d.p.violation("display terminated with context %d current", d.current.id)
		d.current = nil
	}
	d.terminated = true
	d.p.counts.DisplaysTerminated++
	return nil
}

type surface struct {
	d         *display
	w, h      int
	destroyed bool
	clear     gpu.Color
}

func (s *surface) Size() (int, int) { return s.w, s.h }

// Snapshot returns the surface filled with the last clear color.
func (s *surface) Snapshot() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	c := color.RGBA{
		R: uint8(s.clear.R * 255),
		G: uint8(s.clear.G * 255),
		B: uint8(s.clear.B * 255),
		A: uint8(s.clear.A * 255),
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

type program struct {
	layout  *gpu.ProgramLayout
	deleted bool
}

func (p *program) Layout() *gpu.ProgramLayout { return p.layout }

type geometry struct {
	indices int
	deleted bool
}

func (g *geometry) IndexCount() int { return g.indices }

type context struct {
	d         *display
	id        int
	target    *surface
	destroyed bool

	clear     gpu.Color
	depthTest bool
	program   *program
}

func (c *context) EnableDepthTest() { c.depthTest = true }

func (c *context) ClearColor(col gpu.Color) { c.clear = col }

func (c *context) Viewport(x, y, width, height int) {}

func (c *context) CompileProgram(src gpu.ShaderSource) (gpu.Program, error) {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	if err := c.d.p.failing(StepCompile); err != nil {
		return nil, err
	}
	layout, err := gpu.ReflectProgram(src)
	if err != nil {
		return nil, err
	}
	c.d.p.counts.Programs++
	return &program{layout: layout}, nil
}

func (c *context) DeleteProgram(p gpu.Program) {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	prog, ok := p.(*program)
	if !ok || prog.deleted {
		c.d.p.violation("delete of an unknown or deleted program")
		return
	}
	prog.deleted = true
	c.d.p.counts.ProgramsDeleted++
}

func (c *context) CreateGeometry(vertices []float32, indices []uint16) (gpu.Geometry, error) {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	if err := c.d.p.failing(StepCreateGeometry); err != nil {
		return nil, err
	}
	if len(vertices)%(gpu.VertexStride/4) != 0 {
		return nil, fmt.Errorf("gputest: %d floats is not a whole number of vertices", len(vertices))
	}
	c.d.p.counts.Geometries++
	return &geometry{indices: len(indices)}, nil
}

func (c *context) DeleteGeometry(g gpu.Geometry) {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	geom, ok := g.(*geometry)
	if !ok || geom.deleted {
		c.d.p.violation("delete of an unknown or deleted geometry")
		return
	}
	geom.deleted = true
	c.d.p.counts.GeometriesDeleted++
}

func (c *context) Clear() {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	c.d.p.counts.Clears++
	if c.target != nil {
		c.target.clear = c.clear
	}
}

func (c *context) UseProgram(p gpu.Program) {
	prog, _ := p.(*program)
	c.program = prog
}

func (c *context) UniformMatrix4(location int, m gpu.Mat4) { c.uniform() }

func (c *context) Uniform3(location int, v gpu.Vec3) { c.uniform() }

func (c *context) uniform() {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	c.d.p.counts.Uniforms++
}

func (c *context) DrawElements(g gpu.Geometry) error {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	p := c.d.p
	if c.target == nil || c.d.current != c {
		p.violation("draw on context %d while not current", c.id)
		return gpu.ErrNotCurrent
	}
	if c.program == nil || c.program.deleted {
		p.violation("draw without a live program")
		return fmt.Errorf("gputest: no program bound")
	}
	if geom, ok := g.(*geometry); !ok || geom.deleted {
		p.violation("draw with an unknown or deleted geometry")
		return fmt.Errorf("gputest: bad geometry")
	}
	p.counts.Draws++
	if p.panicAt > 0 && p.counts.Draws == p.panicAt {
		panic(fmt.Sprintf("gputest: injected panic at draw %d", p.counts.Draws))
	}
	if p.failDraw > 0 && p.counts.Draws == p.failDraw {
		return fmt.Errorf("%w at draw %d", ErrInjected, p.counts.Draws)
	}
	return nil
}

func (c *context) Flush() error {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	c.d.p.counts.Flushes++
	return nil
}

func (c *context) Finish() error {
	c.d.p.mu.Lock()
	defer c.d.p.mu.Unlock()
	if err := c.d.p.failing(StepFinish); err != nil {
		return err
	}
	c.d.p.counts.Finishes++
	return nil
}
