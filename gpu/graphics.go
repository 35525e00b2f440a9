package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
)

// SurfaceType selects the kind of drawable a config is chosen for.
type SurfaceType int

const (
	// SurfacePbuffer is an offscreen pixel buffer with no window behind it.
	SurfacePbuffer SurfaceType = iota
	// SurfaceWindow is a presented surface driven by a Presenter.
	SurfaceWindow
)

// String returns the surface type name.
func (t SurfaceType) String() string {
	switch t {
	case SurfacePbuffer:
		return "pbuffer"
	case SurfaceWindow:
		return "window"
	default:
		return fmt.Sprintf("SurfaceType(%d)", int(t))
	}
}

// ConfigSpec lists the framebuffer attributes requested from ChooseConfig.
type ConfigSpec struct {
	RedBits, GreenBits, BlueBits, AlphaBits int
	DepthBits                               int
	Surface                                 SurfaceType
}

// PbufferConfig returns the attributes of the benchmark surface:
// RGBA 8/8/8/8 with a 16-bit depth buffer, pixel-buffer capable.
func PbufferConfig() ConfigSpec {
	return ConfigSpec{
		RedBits: 8, GreenBits: 8, BlueBits: 8, AlphaBits: 8,
		DepthBits: 16,
		Surface:   SurfacePbuffer,
	}
}

// WindowConfig returns the attributes used for a presented live surface.
func WindowConfig() ConfigSpec {
	c := PbufferConfig()
	c.Surface = SurfaceWindow
	return c
}

// Validate reports whether the spec can be satisfied by an 8-bit RGBA target.
func (c ConfigSpec) Validate() error {
	for _, bits := range []int{c.RedBits, c.GreenBits, c.BlueBits, c.AlphaBits} {
		if bits < 0 || bits > 8 {
			return fmt.Errorf("%w: %d-bit color channel", ErrNoMatchingConfig, bits)
		}
	}
	if c.DepthBits < 0 || c.DepthBits > 32 {
		return fmt.Errorf("%w: %d-bit depth", ErrNoMatchingConfig, c.DepthBits)
	}
	return nil
}

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Black is the scene clear color.
var Black = Color{A: 1}

// PlatformInfo describes the device behind an open display.
type PlatformInfo struct {
	// Platform is the registered platform name.
	Platform string
	// Adapter describes the physical adapter.
	Adapter gpucontext.AdapterInfo
	// Backend is the native graphics API, empty for CPU platforms.
	Backend string
}

// String returns a human-readable description of the device.
func (i PlatformInfo) String() string {
	if i.Backend == "" {
		return fmt.Sprintf("%s (%s, %s)", i.Adapter.Name, i.Adapter.Type, i.Platform)
	}
	return fmt.Sprintf("%s (%s, %s/%s)", i.Adapter.Name, i.Adapter.Type, i.Platform, i.Backend)
}

// Platform opens displays on one graphics implementation.
type Platform interface {
	// Name returns the registry name of the platform.
	Name() string

	// OpenDisplay connects to the default display and initializes it.
	OpenDisplay() (Display, error)
}

// Config is an opaque framebuffer configuration chosen by a display.
type Config interface {
	Spec() ConfigSpec
}

// Display is an initialized connection to a graphics device.
//
// A context is current on at most one thread at a time. Callers that bind a
// context must do so from a goroutine locked to its OS thread and must call
// ReleaseCurrent before unlocking it.
type Display interface {
	Info() PlatformInfo

	ChooseConfig(spec ConfigSpec) (Config, error)
	CreateContext(cfg Config) (Context, error)
	CreatePbufferSurface(cfg Config, width, height int) (Surface, error)

	// MakeCurrent binds the context to the surface for the calling thread.
	MakeCurrent(s Surface, c Context) error
	// ReleaseCurrent unbinds whatever context is current.
	ReleaseCurrent() error

	DestroySurface(s Surface) error
	DestroyContext(c Context) error

	// Terminate releases the display. Resources not destroyed before are
	// released with it.
	Terminate() error
}

// Surface is a drawable bound to a context by MakeCurrent.
type Surface interface {
	Size() (width, height int)
}

// Snapshotter is implemented by surfaces that can read back their color
// buffer. The caller's context must be current.
type Snapshotter interface {
	Snapshot() (*image.RGBA, error)
}

// Program is a compiled and linked vertex/fragment shader pair.
type Program interface {
	Layout() *ProgramLayout
}

// Geometry is an uploaded vertex and index buffer pair.
type Geometry interface {
	IndexCount() int
}

// Context is a rendering context. All calls except Flush and Finish record
// state or commands; Flush submits them and Finish additionally blocks until
// the device has executed them.
//
// Vertex data passed to CreateGeometry is interleaved position (xyz) and
// texture coordinate (uv) floats, VertexStride bytes per vertex. Uniform
// locations are byte offsets inside the program's uniform block as reported
// by ProgramLayout.UniformLocation.
type Context interface {
	EnableDepthTest()
	ClearColor(c Color)
	Viewport(x, y, width, height int)

	CompileProgram(src ShaderSource) (Program, error)
	DeleteProgram(p Program)
	CreateGeometry(vertices []float32, indices []uint16) (Geometry, error)
	DeleteGeometry(g Geometry)

	// Clear clears the color and depth buffers.
	Clear()
	UseProgram(p Program)
	UniformMatrix4(location int, m Mat4)
	Uniform3(location int, v Vec3)
	DrawElements(g Geometry) error

	Flush() error
	Finish() error
}
