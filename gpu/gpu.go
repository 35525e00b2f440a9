// Package gpu contains the GPU part of the benchmark: the scene renderer, the
// offscreen execution context that scores it, and the live adapter that
// attaches the same renderer to a continuously presented surface.
//
// Rendering goes through a small graphics abstraction (Platform, Display,
// Context, Surface) shaped after the EGL bring-up sequence:
//
//	display -> config -> context -> pixel-buffer surface -> make current
//
// Platforms register themselves from init functions, the same way the
// renderer backends of gogpu/gg do:
//
//	import _ "github.com/gogpu/ggbench/gpu/software" // CPU rasterizer, always available
//	import _ "github.com/gogpu/ggbench/gpu/wgpu"     // WebGPU via gogpu/wgpu
//
// Usage:
//
//	p, err := gpu.DefaultPlatform()
//	if err != nil {
//		return err
//	}
//	score, err := gpu.NewOffscreen(p).Run(1000, 720, 1280)
//
// A failure to bring up the graphics stack is reported as ErrGraphicsInit and
// yields a score of 0. It is never fatal.
package gpu
