// Package wgpu implements gpu.Platform on gogpu/wgpu, a pure Go WebGPU
// implementation with Vulkan, Metal, DX12, GLES and software backends.
//
// Displays wrap a WebGPU instance, configs wrap an adapter and contexts wrap
// a logical device. Pbuffer surfaces are offscreen render attachments that
// are allocated on the device of the first context made current on them.
//
// Importing the package registers the platform:
//
//	import _ "github.com/gogpu/ggbench/gpu/wgpu"
//
// Build with -tags nogpu to leave the platform out; the package then
// registers nothing.
package wgpu
