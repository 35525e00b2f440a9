//go:build !nogpu

package wgpu

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	webgpu "github.com/gogpu/wgpu"

	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	gpu.RegisterPlatform(gpu.PlatformWGPU, func() gpu.Platform { return New() })
}

// ColorFormat is the format of every color attachment.
const ColorFormat = gputypes.TextureFormatRGBA8Unorm

// readbackTimeout bounds the wait for a mapped snapshot buffer.
const readbackTimeout = 5 * time.Second

// copyRowAlignment is the bytesPerRow alignment of texture to buffer copies.
const copyRowAlignment = 256

// Option configures the platform.
type Option func(*Platform)

// WithBackends restricts the native graphics APIs the instance may use.
func WithBackends(b webgpu.Backends) Option {
	return func(p *Platform) { p.backends = b }
}

// WithFallbackAdapter forces the software adapter.
func WithFallbackAdapter() Option {
	return func(p *Platform) { p.fallback = true }
}

// Platform is the WebGPU platform.
type Platform struct {
	backends webgpu.Backends
	fallback bool
}

// New returns the WebGPU platform. All backends are enabled by default.
func New(opts ...Option) *Platform {
	p := &Platform{backends: webgpu.BackendsAll}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements gpu.Platform.
func (*Platform) Name() string { return gpu.PlatformWGPU }

// OpenDisplay creates a WebGPU instance and probes for an adapter so that a
// machine without one fails here rather than at ChooseConfig.
func (p *Platform) OpenDisplay() (gpu.Display, error) {
	instance, err := webgpu.CreateInstance(&webgpu.InstanceDescriptor{Backends: p.backends})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", gpu.ErrPlatformNotAvailable, err)
	}
	adapter, err := instance.RequestAdapter(p.adapterOptions())
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", gpu.ErrPlatformNotAvailable, err)
	}
	d := &display{
		p:        p,
		instance: instance,
		info:     adapter.Info(),
		configs:  make(map[*config]struct{}),
		surfaces: make(map[*surface]struct{}),
		contexts: make(map[*deviceContext]struct{}),
	}
	adapter.Release()

	gpu.Logger().Info("wgpu: display opened",
		"adapter", d.info.Name,
		"backend", d.info.Backend.String(),
		"type", d.info.DeviceType.String())
	return d, nil
}

func (p *Platform) adapterOptions() *webgpu.RequestAdapterOptions {
	return &webgpu.RequestAdapterOptions{
		PowerPreference:      webgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: p.fallback,
	}
}

// adapterType maps a WebGPU device type onto the gpucontext classification.
func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// depthFormat returns the narrowest depth format holding bits.
func depthFormat(bits int) (gputypes.TextureFormat, bool) {
	switch {
	case bits <= 0:
		return 0, false
	case bits <= 16:
		return gputypes.TextureFormatDepth16Unorm, true
	case bits <= 24:
		return gputypes.TextureFormatDepth24Plus, true
	default:
		return gputypes.TextureFormatDepth32Float, true
	}
}

type config struct {
	d       *display
	spec    gpu.ConfigSpec
	adapter *webgpu.Adapter
	depth   gputypes.TextureFormat
	hasZ    bool
}

func (c *config) Spec() gpu.ConfigSpec { return c.spec }

type display struct {
	p        *Platform
	instance *webgpu.Instance
	info     webgpu.AdapterInfo

	mu         sync.Mutex
	terminated bool
	current    *deviceContext
	configs    map[*config]struct{}
	surfaces   map[*surface]struct{}
	contexts   map[*deviceContext]struct{}
}

func (d *display) Info() gpu.PlatformInfo {
	return gpu.PlatformInfo{
		Platform: gpu.PlatformWGPU,
		Adapter: gpucontext.AdapterInfo{
			Name: d.info.Name,
			Type: adapterType(d.info.DeviceType),
		},
		Backend: d.info.Backend.String(),
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
	adapter, err := d.instance.RequestAdapter(d.p.adapterOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gpu.ErrNoMatchingConfig, err)
	}
	c := &config{d: d, spec: spec, adapter: adapter}
	c.depth, c.hasZ = depthFormat(spec.DepthBits)
	d.configs[c] = struct{}{}
	return c, nil
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
	c, err := d.config(cfg)
	if err != nil {
		return nil, err
	}
	device, err := c.adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}
	ctx := newContext(d, c, device)
	d.contexts[ctx] = struct{}{}
	return ctx, nil
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
	s := &surface{d: d, cfg: c, w: width, h: height}
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
	ctx, ok := c.(*deviceContext)
	if !ok || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if _, live := d.surfaces[surf]; !live {
		return fmt.Errorf("wgpu: surface destroyed")
	}
	if _, live := d.contexts[ctx]; !live {
		return fmt.Errorf("wgpu: context destroyed")
	}
	if surf.cfg.hasZ != ctx.cfg.hasZ || surf.cfg.depth != ctx.cfg.depth {
		return fmt.Errorf("%w: surface and context configs differ in depth", gpu.ErrNoMatchingConfig)
	}
	if err := surf.allocate(ctx.device); err != nil {
		return err
	}
	if d.current != nil && d.current != ctx {
		d.current.unbind()
	}
	ctx.bind(surf)
	d.current = ctx
	return nil
}

func (d *display) ReleaseCurrent() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.unbind()
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
		return fmt.Errorf("wgpu: surface already destroyed")
	}
	if d.current != nil && d.current.target == surf {
		d.current.unbind()
	}
	delete(d.surfaces, surf)
	surf.release()
	return nil
}

func (d *display) DestroyContext(c gpu.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, ok := c.(*deviceContext)
	if !ok || ctx.d != d {
		return gpu.ErrForeignResource
	}
	if _, live := d.contexts[ctx]; !live {
		return fmt.Errorf("wgpu: context already destroyed")
	}
	if d.current == ctx {
		d.current = nil
	}
	delete(d.contexts, ctx)
	d.releaseContext(ctx)
	return nil
}

// releaseContext frees the device of ctx along with every surface allocated
// on it.
func (d *display) releaseContext(ctx *deviceContext) {
	for s := range d.surfaces {
		if s.device == ctx.device {
			s.release()
		}
	}
	ctx.release()
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
	for ctx := range d.contexts {
		ctx.release()
	}
	for c := range d.configs {
		c.adapter.Release()
	}
	clear(d.surfaces)
	clear(d.contexts)
	clear(d.configs)
	d.current = nil
	d.instance.Release()
	d.terminated = true
	return nil
}

// surface is an offscreen color attachment with an optional depth
// attachment. Textures live on the device of the context that allocated
// them.
type surface struct {
	d    *display
	cfg  *config
	w, h int

	device    *webgpu.Device
	color     *webgpu.Texture
	colorView *webgpu.TextureView
	depth     *webgpu.Texture
	depthView *webgpu.TextureView
}

// Size implements gpu.Surface.
func (s *surface) Size() (int, int) { return s.w, s.h }

func (s *surface) extent() webgpu.Extent3D {
	return webgpu.Extent3D{Width: uint32(s.w), Height: uint32(s.h), DepthOrArrayLayers: 1}
}

// allocate creates the attachments on device. Surfaces already allocated on
// another device are reallocated, losing their contents.
func (s *surface) allocate(device *webgpu.Device) error {
	if s.device == device {
		return nil
	}
	s.release()

	color, err := device.CreateTexture(&webgpu.TextureDescriptor{
		Label:         "ggbench-color",
		Size:          s.extent(),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage:         webgpu.TextureUsageRenderAttachment | webgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create color texture: %w", err)
	}
	colorView, err := device.CreateTextureView(color, nil)
	if err != nil {
		color.Release()
		return fmt.Errorf("wgpu: create color view: %w", err)
	}
	s.device, s.color, s.colorView = device, color, colorView

	if !s.cfg.hasZ {
		return nil
	}
	depth, err := device.CreateTexture(&webgpu.TextureDescriptor{
		Label:         "ggbench-depth",
		Size:          s.extent(),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        s.cfg.depth,
		Usage:         webgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		s.release()
		return fmt.Errorf("wgpu: create depth texture: %w", err)
	}
	depthView, err := device.CreateTextureView(depth, nil)
	if err != nil {
		depth.Release()
		s.release()
		return fmt.Errorf("wgpu: create depth view: %w", err)
	}
	s.depth, s.depthView = depth, depthView
	return nil
}

func (s *surface) release() {
	if s.depthView != nil {
		s.depthView.Release()
	}
	if s.depth != nil {
		s.depth.Release()
	}
	if s.colorView != nil {
		s.colorView.Release()
	}
	if s.color != nil {
		s.color.Release()
	}
	s.device, s.color, s.colorView, s.depth, s.depthView = nil, nil, nil, nil, nil
}

// Snapshot implements gpu.Snapshotter. It copies the color attachment into
// a mappable buffer and waits for the copy.
func (s *surface) Snapshot() (*image.RGBA, error) {
	if s.color == nil {
		return nil, fmt.Errorf("wgpu: surface not allocated")
	}
	device := s.device
	bytesPerRow := align(uint32(s.w)*4, copyRowAlignment)
	size := uint64(bytesPerRow) * uint64(s.h)

	staging, err := device.CreateBuffer(&webgpu.BufferDescriptor{
		Label: "ggbench-readback",
		Size:  size,
		Usage: webgpu.BufferUsageCopyDst | webgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := device.CreateCommandEncoder(&webgpu.CommandEncoderDescriptor{Label: "ggbench-readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	encoder.CopyTextureToBuffer(s.color, staging, []webgpu.BufferTextureCopy{{
		BufferLayout: webgpu.ImageDataLayout{
			BytesPerRow:  bytesPerRow,
			RowsPerImage: uint32(s.h),
		},
		TextureBase: webgpu.ImageCopyTexture{Texture: s.color},
		Size:        s.extent(),
	}})
	cmd, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("wgpu: finish readback: %w", err)
	}
	if _, err := device.Queue().Submit(cmd); err != nil {
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readbackTimeout)
	defer cancel()
	if err := staging.Map(ctx, webgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("wgpu: map readback: %w", err)
	}
	rng, err := staging.MappedRange(0, size)
	if err != nil {
		_ = staging.Unmap()
		return nil, fmt.Errorf("wgpu: mapped range: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	src := rng.Bytes()
	for y := range s.h {
		row := src[uint64(y)*uint64(bytesPerRow):]
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], row[:s.w*4])
	}
	rng.Release()
	if err := staging.Unmap(); err != nil {
		return nil, fmt.Errorf("wgpu: unmap readback: %w", err)
	}
	return img, nil
}

func align(n, a uint32) uint32 {
	return (n + a - 1) / a * a
}
