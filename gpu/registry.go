package gpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
)

// Platform names.
const (
	// PlatformWGPU is the WebGPU platform on gogpu/wgpu.
	PlatformWGPU = "wgpu"
	// PlatformSoftware is the CPU rasterizer, always available.
	PlatformSoftware = "software"
)

// platforms holds registered platform factories.
// Priority order for selection (first registered wins): wgpu > software.
var platforms = gpucontext.NewRegistry[Platform](
	gpucontext.WithPriority(PlatformWGPU, PlatformSoftware),
)

// RegisterPlatform registers a platform factory under name.
// This is typically called from init() functions in platform packages.
// A platform registered under an existing name replaces it.
func RegisterPlatform(name string, factory func() Platform) {
	platforms.Register(name, factory)
}

// UnregisterPlatform removes a platform from the registry.
// This is useful for testing.
func UnregisterPlatform(name string) {
	platforms.Unregister(name)
}

// LookupPlatform returns a new instance of the named platform.
func LookupPlatform(name string) (Platform, error) {
	if !platforms.Has(name) {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrPlatformNotAvailable, name, AvailablePlatforms())
	}
	p := platforms.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPlatformNotAvailable, name)
	}
	return p, nil
}

// DefaultPlatform returns the highest-priority registered platform.
func DefaultPlatform() (Platform, error) {
	name := platforms.BestName()
	if name == "" {
		return nil, fmt.Errorf("%w: none registered", ErrPlatformNotAvailable)
	}
	return LookupPlatform(name)
}

// AvailablePlatforms returns the sorted names of all registered platforms.
func AvailablePlatforms() []string {
	names := platforms.Available()
	slices.Sort(names)
	return names
}
