//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// openDisplay skips the test when no WebGPU adapter is available.
func openDisplay(t *testing.T) gpu.Display {
	t.Helper()
	d, err := New().OpenDisplay()
	if err != nil {
		t.Skipf("no WebGPU adapter: %v", err)
	}
	t.Cleanup(func() { _ = d.Terminate() })
	return d
}

func TestRegistered(t *testing.T) {
	p, err := gpu.LookupPlatform(gpu.PlatformWGPU)
	if err != nil {
		t.Fatalf("LookupPlatform() error = %v", err)
	}
	if p.Name() != gpu.PlatformWGPU {
		t.Errorf("Name() = %q, want %q", p.Name(), gpu.PlatformWGPU)
	}
	def, err := gpu.DefaultPlatform()
	if err != nil {
		t.Fatalf("DefaultPlatform() error = %v", err)
	}
	if def.Name() != gpu.PlatformWGPU {
		t.Errorf("DefaultPlatform() = %q, want %q", def.Name(), gpu.PlatformWGPU)
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeVirtualGPU, gpucontext.AdapterTypeUnknown},
		{gputypes.DeviceTypeOther, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDepthFormat(t *testing.T) {
	tests := []struct {
		bits   int
		want   gputypes.TextureFormat
		wantOK bool
	}{
		{0, 0, false},
		{16, gputypes.TextureFormatDepth16Unorm, true},
		{24, gputypes.TextureFormatDepth24Plus, true},
		{32, gputypes.TextureFormatDepth32Float, true},
	}
	for _, tt := range tests {
		got, ok := depthFormat(tt.bits)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("depthFormat(%d) = %v, %v, want %v, %v", tt.bits, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAlign(t *testing.T) {
	tests := []struct{ n, a, want uint32 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{2880, 256, 3072}, // 720 RGBA pixels
		{6, 4, 8},
	}
	for _, tt := range tests {
		if got := align(tt.n, tt.a); got != tt.want {
			t.Errorf("align(%d, %d) = %d, want %d", tt.n, tt.a, got, tt.want)
		}
	}
}

func TestVertexAttributes(t *testing.T) {
	l, err := gpu.ReflectProgram(gpu.SceneShader())
	if err != nil {
		t.Fatal(err)
	}
	attrs := vertexAttributes(l)
	if len(attrs) != 2 {
		t.Fatalf("len(attrs) = %d, want 2", len(attrs))
	}
	if attrs[1].Offset != uvOffset || attrs[1].ShaderLocation != uint32(l.AttribLocation(gpu.AttribUV)) {
		t.Errorf("uv attribute = %+v", attrs[1])
	}
}

func TestMeasure(t *testing.T) {
	openDisplay(t)

	m, err := gpu.NewOffscreen(New()).Measure(5, 64, 96)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if m.Frames != 5 {
		t.Errorf("Frames = %d, want 5", m.Frames)
	}
	if m.Device.Platform != gpu.PlatformWGPU || m.Device.Backend == "" {
		t.Errorf("Device = %+v", m.Device)
	}
}

func TestSnapshotClearColor(t *testing.T) {
	d := openDisplay(t)

	cfg, err := d.ChooseConfig(gpu.PbufferConfig())
	if err != nil {
		t.Fatalf("ChooseConfig() error = %v", err)
	}
	c, err := d.CreateContext(cfg)
	if err != nil {
		t.Fatalf("CreateContext() error = %v", err)
	}
	s, err := d.CreatePbufferSurface(cfg, 40, 30)
	if err != nil {
		t.Fatalf("CreatePbufferSurface() error = %v", err)
	}
	if err := d.MakeCurrent(s, c); err != nil {
		t.Fatalf("MakeCurrent() error = %v", err)
	}

	c.ClearColor(gpu.Color{G: 1, A: 1})
	c.Clear()
	if err := c.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	img, err := s.(gpu.Snapshotter).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got := img.RGBAAt(20, 15); got.R != 0 || got.G != 255 || got.A != 255 {
		t.Errorf("pixel = %v, want opaque green", got)
	}
}

func TestDisplayErrors(t *testing.T) {
	d := openDisplay(t)

	cfg, err := d.ChooseConfig(gpu.PbufferConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreatePbufferSurface(cfg, 0, 10); !errors.Is(err, gpu.ErrInvalidViewport) {
		t.Errorf("empty surface: error = %v, want ErrInvalidViewport", err)
	}

	c, err := d.CreateContext(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DrawElements(nil); !errors.Is(err, gpu.ErrNotCurrent) {
		t.Errorf("draw without surface: error = %v, want ErrNotCurrent", err)
	}

	flat, err := d.ChooseConfig(gpu.ConfigSpec{RedBits: 8, GreenBits: 8, BlueBits: 8, AlphaBits: 8})
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.CreatePbufferSurface(flat, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.MakeCurrent(s, c); !errors.Is(err, gpu.ErrNoMatchingConfig) {
		t.Errorf("depthless surface: error = %v, want ErrNoMatchingConfig", err)
	}

	if err := d.Terminate(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ChooseConfig(gpu.PbufferConfig()); !errors.Is(err, gpu.ErrDisplayTerminated) {
		t.Errorf("after Terminate: error = %v, want ErrDisplayTerminated", err)
	}
}
