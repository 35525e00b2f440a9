package gpu

import _ "embed"

//go:embed shaders/scene.wgsl
var sceneShaderSource string

// Uniform and attribute names the renderer resolves in the scene program.
const (
	AttribPosition = "position"
	AttribUV       = "uv"
	UniformMVP     = "mvp"
	UniformLight   = "light_pos"
)

// ShaderSource is a WGSL module holding a vertex and a fragment entry point.
type ShaderSource struct {
	Label         string
	Code          string
	VertexEntry   string
	FragmentEntry string
}

// SceneShader returns the embedded scene program.
func SceneShader() ShaderSource {
	return ShaderSource{
		Label:         "scene",
		Code:          sceneShaderSource,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
	}
}
