package ggbench

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/ggbench/cpu"
	"github.com/gogpu/ggbench/gpu"
	"github.com/gogpu/ggbench/memory"
)

// ErrProfile is returned when a profile cannot be decoded.
var ErrProfile = errors.New("ggbench: invalid profile")

// Profile is a benchmark configuration stored as TOML:
//
//	backend = "software"
//	seed = 42
//
//	[cpu]
//	size = 10000
//
//	[memory]
//	size = 10000
//
//	[gpu]
//	frames = 1000
//	width = 720
//	height = 1280
//
// Keys left out keep their defaults.
type Profile struct {
	// Backend names the GPU platform. Empty selects by priority.
	Backend string `toml:"backend"`

	// Seed makes the workloads reproducible when non-zero.
	Seed uint64 `toml:"seed"`

	CPU    WorkloadProfile `toml:"cpu"`
	Memory WorkloadProfile `toml:"memory"`
	GPU    GPUProfile      `toml:"gpu"`
}

// WorkloadProfile sizes the CPU or memory category.
type WorkloadProfile struct {
	Size int `toml:"size"`
}

// GPUProfile configures the GPU category.
type GPUProfile struct {
	Frames int `toml:"frames"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// DefaultProfile returns the standard run.
func DefaultProfile() Profile {
	return Profile{
		CPU:    WorkloadProfile{Size: cpu.DefaultSize},
		Memory: WorkloadProfile{Size: memory.DefaultSize},
		GPU: GPUProfile{
			Frames: gpu.DefaultFrames,
			Width:  gpu.DefaultWidth,
			Height: gpu.DefaultHeight,
		},
	}
}

// DecodeProfile reads a TOML profile on top of the defaults. Unknown keys
// are rejected.
func DecodeProfile(r io.Reader) (Profile, error) {
	p := DefaultProfile()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrProfile, err)
	}
	return p, nil
}

// LoadProfile reads a TOML profile from a file.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()

	p, err := DecodeProfile(f)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Encode writes the profile as TOML.
func (p Profile) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// Options converts the profile into suite options.
func (p Profile) Options() []Option {
	opts := []Option{
		WithPlatformName(p.Backend),
		WithCPUSize(p.CPU.Size),
		WithMemorySize(p.Memory.Size),
		WithGPUFrames(p.GPU.Frames),
		WithGPUSize(p.GPU.Width, p.GPU.Height),
	}
	if p.Seed != 0 {
		opts = append(opts, WithSeed(p.Seed))
	}
	return opts
}
