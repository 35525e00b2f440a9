//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/gputypes"
	webgpu "github.com/gogpu/wgpu"
)

// Attribute formats of the interleaved vertex layout.
const (
	positionFormat = gputypes.VertexFormatFloat32x3
	uvFormat       = gputypes.VertexFormatFloat32x2
	uvOffset       = 12
)

// initialUniformCapacity covers one frame of the scene without growing.
const initialUniformCapacity = 8 * 256

type program struct {
	c      *deviceContext
	layout *gpu.ProgramLayout

	module         *webgpu.ShaderModule
	bindLayout     *webgpu.BindGroupLayout
	pipelineLayout *webgpu.PipelineLayout
	// pipelines are created on first use, indexed by depth test state.
	pipelines [2]*webgpu.RenderPipeline

	// bindGroup binds the context uniform buffer of generation bindGen.
	bindGroup *webgpu.BindGroup
	bindGen   int

	uniforms []byte
	deleted  bool
}

func (p *program) Layout() *gpu.ProgramLayout { return p.layout }

func (p *program) release() {
	for i, pl := range p.pipelines {
		if pl != nil {
			pl.Release()
			p.pipelines[i] = nil
		}
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.bindLayout != nil {
		p.bindLayout.Release()
		p.bindLayout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
	p.uniforms = nil
	p.deleted = true
}

// pipeline returns the render pipeline for the given depth test state.
func (p *program) pipeline(depthTest bool) (*webgpu.RenderPipeline, error) {
	i := 0
	if depthTest {
		i = 1
	}
	if pl := p.pipelines[i]; pl != nil {
		return pl, nil
	}

	var depth *webgpu.DepthStencilState
	if cfg := p.c.cfg; cfg.hasZ {
		depth = &webgpu.DepthStencilState{
			Format:            cfg.depth,
			DepthWriteEnabled: depthTest,
			DepthCompare:      gputypes.CompareFunctionAlways,
		}
		if depthTest {
			depth.DepthCompare = gputypes.CompareFunctionLess
		}
	}

	l := p.layout
	pl, err := p.c.device.CreateRenderPipeline(&webgpu.RenderPipelineDescriptor{
		Label:  l.Label,
		Layout: p.pipelineLayout,
		Vertex: webgpu.VertexState{
			Module:     p.module,
			EntryPoint: l.VertexEntry,
			Buffers: []webgpu.VertexBufferLayout{{
				ArrayStride: gpu.VertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  vertexAttributes(l),
			}},
		},
		Primitive:    webgpu.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		DepthStencil: depth,
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &webgpu.FragmentState{
			Module:     p.module,
			EntryPoint: l.FragmentEntry,
			Targets: []webgpu.ColorTargetState{{
				Format:    ColorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: create pipeline: %w", l.Label, err)
	}
	p.pipelines[i] = pl
	return pl, nil
}

// vertexAttributes maps the interleaved vertex layout onto the attribute
// locations the program declares. Attributes it does not read are skipped.
func vertexAttributes(l *gpu.ProgramLayout) []gputypes.VertexAttribute {
	var attrs []gputypes.VertexAttribute
	if loc := l.AttribLocation(gpu.AttribPosition); loc >= 0 {
		attrs = append(attrs, gputypes.VertexAttribute{Format: positionFormat, Offset: 0, ShaderLocation: uint32(loc)})
	}
	if loc := l.AttribLocation(gpu.AttribUV); loc >= 0 {
		attrs = append(attrs, gputypes.VertexAttribute{Format: uvFormat, Offset: uvOffset, ShaderLocation: uint32(loc)})
	}
	return attrs
}

// bind returns a bind group over the current uniform buffer of the context.
func (p *program) bind() (*webgpu.BindGroup, error) {
	c := p.c
	if p.bindGroup != nil && p.bindGen == c.uniformGen {
		return p.bindGroup, nil
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	bg, err := c.device.CreateBindGroup(&webgpu.BindGroupDescriptor{
		Label:  p.layout.Label,
		Layout: p.bindLayout,
		Entries: []webgpu.BindGroupEntry{{
			Binding: p.layout.UniformBinding,
			Buffer:  c.uniformBuf,
			Size:    uint64(p.layout.UniformSize),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s: create bind group: %w", p.layout.Label, err)
	}
	p.bindGroup, p.bindGen = bg, c.uniformGen
	return bg, nil
}

type geometry struct {
	vertices *webgpu.Buffer
	indices  *webgpu.Buffer
	count    int
	deleted  bool
}

func (g *geometry) IndexCount() int { return g.count }

func (g *geometry) release() {
	if g.vertices != nil {
		g.vertices.Release()
		g.vertices = nil
	}
	if g.indices != nil {
		g.indices.Release()
		g.indices = nil
	}
	g.deleted = true
}

// drawCall is a recorded DrawElements with its uniform block snapshot at
// offset in the frame uniform buffer.
type drawCall struct {
	p      *program
	g      *geometry
	depth  bool
	offset uint32
}

type viewport struct {
	x, y, w, h int
}

// deviceContext records GL-style calls and replays them as one render pass
// per Flush. Uniform blocks are packed at dynamic offsets into a single
// uniform buffer, so every draw sees the values set before it.
type deviceContext struct {
	d      *display
	cfg    *config
	device *webgpu.Device
	queue  *webgpu.Queue
	target *surface

	clearColor gpu.Color
	depthTest  bool
	viewport   viewport
	viewSet    bool
	program    *program

	// Pending frame.
	cleared     bool
	clearValue  gpu.Color
	draws       []drawCall
	uniformData []byte

	uniformBuf    *webgpu.Buffer
	uniformCap    uint64
	uniformGen    int
	uniformStride uint32

	programs   map[*program]struct{}
	geometries map[*geometry]struct{}
}

func newContext(d *display, cfg *config, device *webgpu.Device) *deviceContext {
	stride := device.Limits().MinUniformBufferOffsetAlignment
	if stride == 0 {
		stride = 256
	}
	return &deviceContext{
		d:             d,
		cfg:           cfg,
		device:        device,
		queue:         device.Queue(),
		uniformStride: stride,
		programs:      make(map[*program]struct{}),
		geometries:    make(map[*geometry]struct{}),
	}
}

// bind attaches the surface. The first bind sets the viewport to the
// surface size.
func (c *deviceContext) bind(s *surface) {
	if c.target != s {
		c.discard()
	}
	c.target = s
	if !c.viewSet {
		c.viewport = viewport{0, 0, s.w, s.h}
		c.viewSet = true
	}
}

func (c *deviceContext) unbind() {
	c.discard()
	c.target = nil
}

// discard drops the pending frame.
func (c *deviceContext) discard() {
	c.cleared = false
	c.draws = c.draws[:0]
	c.uniformData = c.uniformData[:0]
}

// release frees the device and everything created on it.
func (c *deviceContext) release() {
	c.unbind()
	for p := range c.programs {
		p.release()
	}
	for g := range c.geometries {
		g.release()
	}
	clear(c.programs)
	clear(c.geometries)
	if c.uniformBuf != nil {
		c.uniformBuf.Release()
		c.uniformBuf = nil
	}
	c.program = nil
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
}

func (c *deviceContext) EnableDepthTest() { c.depthTest = true }

func (c *deviceContext) ClearColor(col gpu.Color) { c.clearColor = col }

func (c *deviceContext) Viewport(x, y, width, height int) {
	c.viewport = viewport{x, y, width, height}
	c.viewSet = true
}

func (c *deviceContext) CompileProgram(src gpu.ShaderSource) (gpu.Program, error) {
	layout, err := gpu.ReflectProgram(src)
	if err != nil {
		return nil, err
	}
	p := &program{c: c, layout: layout, uniforms: make([]byte, layout.UniformSize)}
	if err := c.buildProgram(p, src); err != nil {
		p.release()
		return nil, err
	}
	c.programs[p] = struct{}{}
	return p, nil
}

func (c *deviceContext) buildProgram(p *program, src gpu.ShaderSource) error {
	var err error
	l := p.layout
	p.module, err = c.device.CreateShaderModule(&webgpu.ShaderModuleDescriptor{
		Label: l.Label,
		WGSL:  src.Code,
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s: create shader module: %w", l.Label, err)
	}
	p.bindLayout, err = c.device.CreateBindGroupLayout(&webgpu.BindGroupLayoutDescriptor{
		Label: l.Label,
		Entries: []webgpu.BindGroupLayoutEntry{{
			Binding:    l.UniformBinding,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   uint64(l.UniformSize),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s: create bind group layout: %w", l.Label, err)
	}
	p.pipelineLayout, err = c.device.CreatePipelineLayout(&webgpu.PipelineLayoutDescriptor{
		Label:            l.Label,
		BindGroupLayouts: []*webgpu.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: %s: create pipeline layout: %w", l.Label, err)
	}
	// Build the pipeline for the current depth state now so that link errors
	// surface from CompileProgram.
	_, err = p.pipeline(c.depthTest)
	return err
}

func (c *deviceContext) DeleteProgram(gp gpu.Program) {
	p, ok := gp.(*program)
	if !ok || p.c != c || p.deleted {
		return
	}
	c.draws = dropDraws(c.draws, func(d drawCall) bool { return d.p == p })
	if c.program == p {
		c.program = nil
	}
	delete(c.programs, p)
	p.release()
}

func (c *deviceContext) CreateGeometry(vertices []float32, indices []uint16) (gpu.Geometry, error) {
	const floats = gpu.VertexStride / 4
	if len(vertices) == 0 || len(vertices)%floats != 0 {
		return nil, fmt.Errorf("wgpu: %d floats is not a whole number of vertices", len(vertices))
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("wgpu: %d indices is not a whole number of triangles", len(indices))
	}
	count := len(vertices) / floats
	for i, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("wgpu: index %d at %d out of range for %d vertices", idx, i, count)
		}
	}

	vb := make([]byte, len(vertices)*4)
	for i, f := range vertices {
		binary.LittleEndian.PutUint32(vb[i*4:], math.Float32bits(f))
	}
	// Buffer writes must be a multiple of 4 bytes.
	ib := make([]byte, align(uint32(len(indices)*2), 4))
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(ib[i*2:], idx)
	}

	g := &geometry{count: len(indices)}
	var err error
	if g.vertices, err = c.upload("ggbench-vertices", webgpu.BufferUsageVertex, vb); err != nil {
		g.release()
		return nil, err
	}
	if g.indices, err = c.upload("ggbench-indices", webgpu.BufferUsageIndex, ib); err != nil {
		g.release()
		return nil, err
	}
	c.geometries[g] = struct{}{}
	return g, nil
}

func (c *deviceContext) upload(label string, usage webgpu.BufferUsage, data []byte) (*webgpu.Buffer, error) {
	buf, err := c.device.CreateBuffer(&webgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | webgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	if err := c.queue.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, fmt.Errorf("wgpu: write %s: %w", label, err)
	}
	return buf, nil
}

func (c *deviceContext) DeleteGeometry(gg gpu.Geometry) {
	g, ok := gg.(*geometry)
	if !ok || g.deleted {
		return
	}
	if _, own := c.geometries[g]; !own {
		return
	}
	c.draws = dropDraws(c.draws, func(d drawCall) bool { return d.g == g })
	delete(c.geometries, g)
	g.release()
}

// Clear starts a new frame. Draws recorded since the last Flush are dropped
// since the clear would overwrite them.
func (c *deviceContext) Clear() {
	if c.target == nil {
		return
	}
	c.discard()
	c.cleared = true
	c.clearValue = c.clearColor
}

func (c *deviceContext) UseProgram(gp gpu.Program) {
	p, _ := gp.(*program)
	c.program = p
}

func (c *deviceContext) UniformMatrix4(location int, m gpu.Mat4) {
	if p := c.program; p != nil && location >= 0 && location+gpu.Mat4Size <= len(p.uniforms) {
		m.PutBytes(p.uniforms[location:])
	}
}

func (c *deviceContext) Uniform3(location int, v gpu.Vec3) {
	if p := c.program; p != nil && location >= 0 && location+12 <= len(p.uniforms) {
		v.PutBytes(p.uniforms[location:])
	}
}

func (c *deviceContext) DrawElements(gg gpu.Geometry) error {
	if c.target == nil {
		return gpu.ErrNotCurrent
	}
	p := c.program
	if p == nil || p.deleted {
		return errors.New("wgpu: no program in use")
	}
	g, ok := gg.(*geometry)
	if !ok || g.deleted {
		return errors.New("wgpu: invalid geometry")
	}
	depth := c.depthTest && c.cfg.hasZ
	if _, err := p.pipeline(depth); err != nil {
		return err
	}

	offset := len(c.uniformData)
	c.uniformData = append(c.uniformData, p.uniforms...)
	padded := int(align(uint32(len(c.uniformData)), c.uniformStride))
	c.uniformData = append(c.uniformData, make([]byte, padded-len(c.uniformData))...)

	c.draws = append(c.draws, drawCall{p: p, g: g, depth: depth, offset: uint32(offset)})
	return nil
}

// ensureUniforms grows the uniform buffer to hold size bytes. Growing bumps
// the generation so programs rebuild their bind groups.
func (c *deviceContext) ensureUniforms(size uint64) error {
	if c.uniformBuf != nil && c.uniformCap >= size {
		return nil
	}
	capacity := max(size, 2*c.uniformCap, initialUniformCapacity)
	buf, err := c.device.CreateBuffer(&webgpu.BufferDescriptor{
		Label: "ggbench-uniforms",
		Size:  capacity,
		Usage: webgpu.BufferUsageUniform | webgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform buffer: %w", err)
	}
	if c.uniformBuf != nil {
		c.uniformBuf.Release()
	}
	c.uniformBuf, c.uniformCap = buf, capacity
	c.uniformGen++
	return nil
}

// Flush encodes the pending frame into one render pass and submits it.
func (c *deviceContext) Flush() error {
	s := c.target
	if s == nil {
		return gpu.ErrNotCurrent
	}
	if !c.cleared && len(c.draws) == 0 {
		return nil
	}
	defer c.discard()

	if len(c.draws) > 0 {
		if err := c.ensureUniforms(uint64(len(c.uniformData))); err != nil {
			return err
		}
		if err := c.queue.WriteBuffer(c.uniformBuf, 0, c.uniformData); err != nil {
			return fmt.Errorf("wgpu: write uniforms: %w", err)
		}
	}

	type boundDraw struct {
		drawCall
		pipeline *webgpu.RenderPipeline
		group    *webgpu.BindGroup
	}
	bound := make([]boundDraw, 0, len(c.draws))
	for _, d := range c.draws {
		pl, err := d.p.pipeline(d.depth)
		if err != nil {
			return err
		}
		bg, err := d.p.bind()
		if err != nil {
			return err
		}
		bound = append(bound, boundDraw{drawCall: d, pipeline: pl, group: bg})
	}

	encoder, err := c.device.CreateCommandEncoder(&webgpu.CommandEncoderDescriptor{Label: "ggbench-frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	pass, err := encoder.BeginRenderPass(c.passDescriptor(s))
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: begin render pass: %w", err)
	}

	// WebGPU viewports are top-left based, GL viewports bottom-left.
	vp := c.viewport
	pass.SetViewport(float32(vp.x), float32(s.h-vp.y-vp.h), float32(vp.w), float32(vp.h), 0, 1)
	for _, d := range bound {
		pass.SetPipeline(d.pipeline)
		pass.SetBindGroup(d.p.layout.UniformGroup, d.group, []uint32{d.offset})
		pass.SetVertexBuffer(0, d.g.vertices, 0)
		pass.SetIndexBuffer(d.g.indices, gputypes.IndexFormatUint16, 0)
		pass.DrawIndexed(uint32(d.g.count), 1, 0, 0, 0)
	}
	if err := pass.End(); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: end render pass: %w", err)
	}

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("wgpu: finish encoder: %w", err)
	}
	if _, err := c.queue.Submit(cmd); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return nil
}

func (c *deviceContext) passDescriptor(s *surface) *webgpu.RenderPassDescriptor {
	load := gputypes.LoadOpLoad
	if c.cleared {
		load = gputypes.LoadOpClear
	}
	cv := c.clearValue
	desc := &webgpu.RenderPassDescriptor{
		Label: "ggbench-frame",
		ColorAttachments: []webgpu.RenderPassColorAttachment{{
			View:       s.colorView,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(cv.R), G: float64(cv.G), B: float64(cv.B), A: float64(cv.A)},
		}},
	}
	if s.depthView != nil {
		desc.DepthStencilAttachment = &webgpu.RenderPassDepthStencilAttachment{
			View:            s.depthView,
			DepthLoadOp:     load,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1,
		}
	}
	return desc
}

// Finish flushes and blocks until the device is idle.
func (c *deviceContext) Finish() error {
	if err := c.Flush(); err != nil {
		return err
	}
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}
	return nil
}

func dropDraws(draws []drawCall, drop func(drawCall) bool) []drawCall {
	out := draws[:0]
	for _, d := range draws {
		if !drop(d) {
			out = append(out, d)
		}
	}
	return out
}
