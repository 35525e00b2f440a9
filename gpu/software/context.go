package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/ggbench/gpu"
)

type program struct {
	layout   *gpu.ProgramLayout
	uniforms []byte
	deleted  bool
}

func (p *program) Layout() *gpu.ProgramLayout { return p.layout }

func (p *program) mat4(location int) gpu.Mat4 {
	var m gpu.Mat4
	if location < 0 || location+gpu.Mat4Size > len(p.uniforms) {
		return m
	}
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.uniforms[location+i*4:]))
	}
	return m
}

func (p *program) vec3(location int) gpu.Vec3 {
	if location < 0 || location+12 > len(p.uniforms) {
		return gpu.Vec3{}
	}
	b := p.uniforms[location:]
	return gpu.Vec3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

type geometry struct {
	vertices []float32
	indices  []uint16
	deleted  bool
}

func (g *geometry) IndexCount() int { return len(g.indices) }

// context holds GL-style render state. Draw calls rasterize immediately into
// the bound surface, so Flush and Finish have nothing left to wait for.
type context struct {
	d      *display
	target *surface

	clear     gpu.Color
	depthTest bool
	viewport  viewport
	viewSet   bool
	program   *program

	// scratch holds the per-vertex stage outputs of the current draw.
	scratch []varying
}

type viewport struct {
	x, y, w, h int
}

func newContext(d *display) *context {
	return &context{d: d, clear: gpu.Color{}}
}

// bind attaches the surface. The first bind sets the viewport to the
// surface size, like eglMakeCurrent does.
func (c *context) bind(s *surface) {
	c.target = s
	if !c.viewSet {
		c.viewport = viewport{0, 0, s.w, s.h}
		c.viewSet = true
	}
}

func (c *context) EnableDepthTest() { c.depthTest = true }

func (c *context) ClearColor(col gpu.Color) { c.clear = col }

func (c *context) Viewport(x, y, width, height int) {
	c.viewport = viewport{x, y, width, height}
	c.viewSet = true
}

func (c *context) CompileProgram(src gpu.ShaderSource) (gpu.Program, error) {
	layout, err := gpu.ReflectProgram(src)
	if err != nil {
		return nil, err
	}
	return &program{layout: layout, uniforms: make([]byte, layout.UniformSize)}, nil
}

func (c *context) DeleteProgram(p gpu.Program) {
	if prog, ok := p.(*program); ok {
		prog.deleted = true
		prog.uniforms = nil
		if c.program == prog {
			c.program = nil
		}
	}
}

func (c *context) CreateGeometry(vertices []float32, indices []uint16) (gpu.Geometry, error) {
	const floats = gpu.VertexStride / 4
	if len(vertices) == 0 || len(vertices)%floats != 0 {
		return nil, fmt.Errorf("software: %d floats is not a whole number of vertices", len(vertices))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("software: %d indices is not a whole number of triangles", len(indices))
	}
	count := len(vertices) / floats
	for i, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("software: index %d at %d out of range for %d vertices", idx, i, count)
		}
	}
	return &geometry{
		vertices: append([]float32(nil), vertices...),
		indices:  append([]uint16(nil), indices...),
	}, nil
}

func (c *context) DeleteGeometry(g gpu.Geometry) {
	if geom, ok := g.(*geometry); ok {
		geom.deleted = true
		geom.vertices = nil
		geom.indices = nil
	}
}

func (c *context) Clear() {
	s := c.target
	if s == nil || s.color == nil {
		return
	}
	r, g, b, a := toByte(c.clear.R), toByte(c.clear.G), toByte(c.clear.B), toByte(c.clear.A)
	px := s.color
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, b, a
	}
	for i := range s.depth {
		s.depth[i] = math.MaxUint16
	}
}

func (c *context) UseProgram(p gpu.Program) {
	prog, _ := p.(*program)
	c.program = prog
}

func (c *context) UniformMatrix4(location int, m gpu.Mat4) {
	if p := c.program; p != nil && location >= 0 && location+gpu.Mat4Size <= len(p.uniforms) {
		m.PutBytes(p.uniforms[location:])
	}
}

func (c *context) Uniform3(location int, v gpu.Vec3) {
	if p := c.program; p != nil && location >= 0 && location+12 <= len(p.uniforms) {
		v.PutBytes(p.uniforms[location:])
	}
}

func (c *context) DrawElements(g gpu.Geometry) error {
	if c.target == nil || c.target.color == nil {
		return gpu.ErrNotCurrent
	}
	p := c.program
	if p == nil || p.deleted {
		return fmt.Errorf("software: no program in use")
	}
	geom, ok := g.(*geometry)
	if !ok || geom.deleted {
		return fmt.Errorf("software: invalid geometry")
	}
	c.draw(p, geom)
	return nil
}

func (c *context) Flush() error {
	if c.target == nil {
		return gpu.ErrNotCurrent
	}
	return nil
}

func (c *context) Finish() error {
	return c.Flush()
}

func toByte(v float32) byte {
	return byte(clampf(v, 0, 1)*255 + 0.5)
}
