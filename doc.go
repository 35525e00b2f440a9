// Package ggbench measures device performance with three micro-benchmarks
// and reports one integer score per category.
//
// # Overview
//
// A Suite runs, in order:
//   - CPU: bubble sort of a random integer array (package cpu)
//   - Memory: sequential write then read of an integer buffer (package memory)
//   - GPU: offscreen rendering of a fixed five-cube scene (package gpu)
//
// Higher scores are better. A category that fails reports a status instead
// of a score and never stops the others.
//
// # Quick Start
//
//	import "github.com/gogpu/ggbench"
//
//	s := ggbench.New()
//	defer s.Close()
//
//	rep := s.RunAll(context.Background())
//	fmt.Print(rep)
//
// # GPU Platforms
//
// The GPU category renders on a registered gpu.Platform. The software
// rasterizer is always registered. Importing github.com/gogpu/ggbench/gpu/wgpu
// adds the WebGPU platform, which takes priority:
//
//	import _ "github.com/gogpu/ggbench/gpu/wgpu"
//
// When the highest priority platform cannot be initialized the suite falls
// back to the software rasterizer. A platform chosen with WithPlatformName
// never falls back.
//
// # Live View
//
// gpu.Presenter with a gpu.LiveAdapter presents the same scene continuously.
// It shares no state with the offscreen benchmark and can run alongside it.
//
// # Logging
//
// The package is silent by default. Use SetLogger to enable logging.
package ggbench

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
