package gpu_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/gpu/gputest"
)

// namedPlatform renames a fake platform so that priority order is visible.
type namedPlatform struct {
	*gputest.Platform
	name string
}

func (p namedPlatform) Name() string { return p.name }

func register(t *testing.T, name string) {
	t.Helper()
	gpu.RegisterPlatform(name, func() gpu.Platform {
		return namedPlatform{Platform: gputest.New(), name: name}
	})
	t.Cleanup(func() { gpu.UnregisterPlatform(name) })
}

func TestPlatformRegistry(t *testing.T) {
	if _, err := gpu.LookupPlatform("does-not-exist"); !errors.Is(err, gpu.ErrPlatformNotAvailable) {
		t.Errorf("LookupPlatform(unknown) error = %v, want ErrPlatformNotAvailable", err)
	}

	register(t, "custom")
	p, err := gpu.DefaultPlatform()
	if err != nil {
		t.Fatalf("DefaultPlatform() error = %v", err)
	}
	if p.Name() != "custom" {
		t.Errorf("DefaultPlatform() = %q, want the only registered platform", p.Name())
	}

	register(t, gpu.PlatformSoftware)
	if p, _ := gpu.DefaultPlatform(); p.Name() != gpu.PlatformSoftware {
		t.Errorf("DefaultPlatform() = %q, want %q", p.Name(), gpu.PlatformSoftware)
	}

	register(t, gpu.PlatformWGPU)
	if p, _ := gpu.DefaultPlatform(); p.Name() != gpu.PlatformWGPU {
		t.Errorf("DefaultPlatform() = %q, want %q", p.Name(), gpu.PlatformWGPU)
	}

	want := []string{"custom", gpu.PlatformSoftware, gpu.PlatformWGPU}
	if got := gpu.AvailablePlatforms(); !slices.Equal(got, want) {
		t.Errorf("AvailablePlatforms() = %v, want %v", got, want)
	}

	p, err = gpu.LookupPlatform("custom")
	if err != nil {
		t.Fatalf("LookupPlatform(custom) error = %v", err)
	}
	if _, err := gpu.NewOffscreen(p).Run(1, 4, 4); err != nil {
		t.Errorf("Run() on looked-up platform error = %v", err)
	}
}
