// Package software implements gpu.Platform with a CPU rasterizer.
//
// The software platform needs no graphics driver, so it is always available
// and serves as the fallback when no GPU adapter can be opened. Programs are
// validated and reflected with naga exactly like on the GPU platforms, and
// the scene program is executed natively: vertex transform and lighting per
// vertex, then perspective-correct checker shading per pixel with a 16-bit
// depth test.
//
// Importing the package registers the platform:
//
//	import _ "github.com/gogpu/ggbench/gpu/software"
package software

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/gpucontext"
)

func init() {
	gpu.RegisterPlatform(gpu.PlatformSoftware, func() gpu.Platform { return New() })
}

// MaxDepthBits is the depth precision of software surfaces.
const MaxDepthBits = 16

// Platform is the CPU rasterizer platform.
type Platform struct{}

// New returns the software platform.
func New() *Platform { return &Platform{} }

// Name implements gpu.Platform.
func (*Platform) Name() string { return gpu.PlatformSoftware }

// OpenDisplay implements gpu.Platform.
func (*Platform) OpenDisplay() (gpu.Display, error) {
	return &display{
		surfaces: make(map[*surface]struct{}),
		contexts: make(map[*context]struct{}),
	}, nil
}

type config struct {
	d    *display
	spec gpu.ConfigSpec
}

func (c *config) Spec() gpu.ConfigSpec { return c.spec }

type display struct {
	mu         sync.Mutex
	terminated bool
	current    *context
	surfaces   map[*surface]struct{}
	contexts   map[*context]struct{}
}

func (d *display) Info() gpu.PlatformInfo {
	return gpu.PlatformInfo{
		Platform: gpu.PlatformSoftware,
		Adapter: gpucontext.AdapterInfo{
			Name: "ggbench software rasterizer",
			Type: gpucontext.AdapterTypeSoftware,
		},
	}
}

func (d *display) ChooseConfig(spec gpu.ConfigSpec) (gpu.Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return nil, gpu.ErrDisplayTerminated
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.DepthBits > MaxDepthBits {
		return nil, fmt.Errorf("%w: software depth is limited to %d bits", gpu.ErrNoMatchingConfig, MaxDepthBits)
	}
	return &config{d: d, spec: spec}, nil
}

func (d *display) config(cfg gpu.Config) (*config, error) {
	c, ok := cfg.(*config)
	if !ok || c.d != d {
		return nil, gpu.ErrForeignResource
	}
	return c, nil
}

func (d *display) CreateContext(cfg gpu.Config) (gpu.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return nil, gpu.ErrDisplayTerminated
	}
	if _, err := d.config(cfg); err != nil {
		return nil, err
	}
	c := newContext(d)
	d.contexts[c] = struct{}{}
	return c, nil
}

func (d *display) CreatePbufferSurface(cfg gpu.Config, width, height int) (gpu.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return nil, gpu.ErrDisplayTerminated
	}
	c, err := d.config(cfg)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", gpu.ErrInvalidViewport, width, height)
	}
	s := newSurface(d, width, height, c.spec.DepthBits > 0)
	d.surfaces[s] = struct{}{}
	return s, nil
}

func (d *display) MakeCurrent(s gpu.Surface, c gpu.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return gpu.ErrDisplayTerminated
	}
	surf, ok := s.(*surface)
	if !ok || surf.d != d {
		return gpu.ErrForeignResource
	}
	ctx, ok := c.(*context)
	if !ok || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if _, live := d.surfaces[surf]; !live {
		return fmt.Errorf("software: surface destroyed")
	}
	if _, live := d.contexts[ctx]; !live {
		return fmt.Errorf("software: context destroyed")
	}
	if d.current != nil && d.current != ctx {
		d.current.target = nil
	}
	ctx.bind(surf)
	d.current = ctx
	return nil
}

func (d *display) ReleaseCurrent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.target = nil
		d.current = nil
	}
	return nil
}

func (d *display) DestroySurface(s gpu.Surface) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	surf, ok := s.(*surface)
	if !ok || surf.d != d {
		return gpu.ErrForeignResource
	}
	if _, live := d.surfaces[surf]; !live {
		return fmt.Errorf("software: surface already destroyed")
	}
	if d.current != nil && d.current.target == surf {
		d.current.target = nil
	}
	delete(d.surfaces, surf)
	surf.release()
	return nil
}

func (d *display) DestroyContext(c gpu.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, ok := c.(*context)
	if !ok || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if _, live := d.contexts[ctx]; !live {
		return fmt.Errorf("software: context already destroyed")
	}
	if d.current == ctx {
		d.current = nil
	}
	delete(d.contexts, ctx)
	ctx.target = nil
	return nil
}

func (d *display) Terminate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return nil
	}
	for s := range d.surfaces {
		s.release()
	}
	clear(d.surfaces)
	clear(d.contexts)
	d.current = nil
	d.terminated = true
	return nil
}

// surface is an RGBA8 color buffer with an optional 16-bit depth buffer.
// Row 0 is the top of the image.
type surface struct {
	d     *display
	w, h  int
	color []byte
	depth []uint16
}

func newSurface(d *display, w, h int, depth bool) *surface {
	s := &surface{d: d, w: w, h: h, color: make([]byte, w*h*4)}
	if depth {
		s.depth = make([]uint16, w*h)
	}
	return s
}

func (s *surface) release() {
	s.color = nil
	s.depth = nil
}

// Size implements gpu.Surface.
func (s *surface) Size() (int, int) { return s.w, s.h }

// Snapshot implements gpu.Snapshotter.
func (s *surface) Snapshot() (*image.RGBA, error) {
	if s.color == nil {
		return nil, fmt.Errorf("software: surface destroyed")
	}
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	copy(img.Pix, s.color)
	return img, nil
}
