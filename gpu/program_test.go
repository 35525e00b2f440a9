package gpu

import (
	"strings"
	"testing"
)

func TestReflectSceneShader(t *testing.T) {
	layout, err := ReflectProgram(SceneShader())
	if err != nil {
		t.Fatalf("ReflectProgram: %v", err)
	}

	if got := layout.AttribLocation(AttribPosition); got != 0 {
		t.Errorf("position location = %d, want 0", got)
	}
	if got := layout.AttribLocation(AttribUV); got != 1 {
		t.Errorf("uv location = %d, want 1", got)
	}
	if got := layout.AttribLocation("normal"); got != -1 {
		t.Errorf("unknown attribute location = %d, want -1", got)
	}

	if got := layout.UniformLocation(UniformMVP); got != 0 {
		t.Errorf("mvp offset = %d, want 0", got)
	}
	if got := layout.UniformLocation(UniformLight); got != Mat4Size {
		t.Errorf("light_pos offset = %d, want %d", got, Mat4Size)
	}
	if layout.UniformSize < Mat4Size+12 {
		t.Errorf("uniform block size = %d, want at least %d", layout.UniformSize, Mat4Size+12)
	}
	if layout.UniformGroup != 0 || layout.UniformBinding != 0 {
		t.Errorf("uniform binding = (%d, %d), want (0, 0)", layout.UniformGroup, layout.UniformBinding)
	}

	attrs := layout.Attributes()
	if len(attrs) != 2 || attrs[0].Name != AttribPosition || attrs[1].Name != AttribUV {
		t.Errorf("Attributes() = %v", attrs)
	}
}

func TestReflectProgramErrors(t *testing.T) {
	scene := SceneShader()

	tests := []struct {
		name string
		src  ShaderSource
		want string
	}{
		{
			name: "syntax error",
			src:  ShaderSource{Label: "broken", Code: "fn vs_main( {", VertexEntry: "vs_main", FragmentEntry: "fs_main"},
		},
		{
			name: "missing vertex entry",
			src:  ShaderSource{Label: "scene", Code: scene.Code, VertexEntry: "main", FragmentEntry: scene.FragmentEntry},
			want: "no vertex entry point",
		},
		{
			name: "missing fragment entry",
			src:  ShaderSource{Label: "scene", Code: scene.Code, VertexEntry: scene.VertexEntry, FragmentEntry: "main"},
			want: "no fragment entry point",
		},
		{
			name: "stage mismatch",
			src:  ShaderSource{Label: "scene", Code: scene.Code, VertexEntry: scene.FragmentEntry, FragmentEntry: scene.VertexEntry},
			want: "entry point",
		},
		{
			name: "unwritten varying",
			src: ShaderSource{
				Label: "varyings",
				Code: `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}

@fragment
fn fs_main(@location(2) shade: f32) -> @location(0) vec4<f32> {
    return vec4<f32>(shade, shade, shade, 1.0);
}
`,
				VertexEntry:   "vs_main",
				FragmentEntry: "fs_main",
			},
			want: "not written by the vertex stage",
		},
		{
			name: "uniform outside group 0",
			src: ShaderSource{
				Label: "grouped",
				Code: `
struct Uniforms {
    mvp: mat4x4<f32>,
}

@group(1) @binding(0) var<uniform> u: Uniforms;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return u.mvp * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`,
				VertexEntry:   "vs_main",
				FragmentEntry: "fs_main",
			},
			want: "only group 0 is supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReflectProgram(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.src.Label) {
				t.Errorf("error %q does not name the program", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}
