package ggbench

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/ggbench/cpu"
	"github.com/gogpu/ggbench/gpu"
)

func TestDecodeProfile(t *testing.T) {
	const src = `
backend = "software"
seed = 42

[cpu]
size = 500

[gpu]
frames = 300
`
	p, err := DecodeProfile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeProfile() error = %v", err)
	}

	if p.Backend != "software" || p.Seed != 42 {
		t.Errorf("backend/seed = %q/%d, want software/42", p.Backend, p.Seed)
	}
	if p.CPU.Size != 500 {
		t.Errorf("cpu size = %d, want 500", p.CPU.Size)
	}
	if p.GPU.Frames != 300 {
		t.Errorf("gpu frames = %d, want 300", p.GPU.Frames)
	}
	// Keys left out keep their defaults.
	def := DefaultProfile()
	if p.Memory != def.Memory {
		t.Errorf("memory = %+v, want default %+v", p.Memory, def.Memory)
	}
	if p.GPU.Width != gpu.DefaultWidth || p.GPU.Height != gpu.DefaultHeight {
		t.Errorf("gpu size = %dx%d, want defaults", p.GPU.Width, p.GPU.Height)
	}
}

func TestDecodeProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "frames = 3\n"},
		{"unknown table key", "[gpu]\nfps = 3\n"},
		{"wrong type", "[cpu]\nsize = \"large\"\n"},
		{"syntax", "[cpu\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProfile(strings.NewReader(tt.src))
			if !errors.Is(err, ErrProfile) {
				t.Errorf("DecodeProfile() error = %v, want ErrProfile", err)
			}
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")

	want := DefaultProfile()
	want.Backend = "wgpu"
	want.GPU.Frames = 60

	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadProfile() = %+v, want %+v", got, want)
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestProfileOptions(t *testing.T) {
	p := DefaultProfile()
	p.Backend = "software"
	p.CPU.Size = 123

	o := New(p.Options()...).opts
	if o.platformName != "software" || o.cpuSize != 123 {
		t.Errorf("options = %q/%d, want software/123", o.platformName, o.cpuSize)
	}
	if o.seeded {
		t.Error("zero seed made the suite seeded")
	}

	p.Seed = 9
	if o := New(p.Options()...).opts; !o.seeded || o.seed != 9 {
		t.Errorf("seed = %d (seeded %v), want 9", o.seed, o.seeded)
	}

	if got := New(DefaultProfile().Options()...).opts.cpuSize; got != cpu.DefaultSize {
		t.Errorf("default profile cpu size = %d, want %d", got, cpu.DefaultSize)
	}
}
