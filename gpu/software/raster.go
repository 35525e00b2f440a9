package software

import (
	"math"
	"slices"

	"github.com/chewxy/math32"

	"github.com/gogpu/ggbench/gpu"
)

// varying is the output of the vertex stage in screen space. Attributes are
// premultiplied by 1/w for perspective-correct interpolation.
type varying struct {
	x, y, z  float32
	invW     float32
	u, v     float32
	lighting float32
	culled   bool
}

// Scene checker colors.
var (
	checkerRed   = [3]float32{0.8, 0.2, 0.2}
	checkerGreen = [3]float32{0.2, 0.8, 0.2}
)

const (
	checkerCells = 8
	minLighting  = 0.1
	minW         = 1e-6
)

func (c *context) draw(p *program, g *geometry) {
	layout := p.layout
	mvp := p.mat4(layout.UniformLocation(gpu.UniformMVP))
	light := p.vec3(layout.UniformLocation(gpu.UniformLight))

	const floats = gpu.VertexStride / 4
	n := len(g.vertices) / floats
	c.scratch = slices.Grow(c.scratch[:0], n)[:n]
	for i := range n {
		c.scratch[i] = c.vertexStage(mvp, light, g.vertices[i*floats:(i+1)*floats])
	}

	for t := 0; t+2 < len(g.indices); t += 3 {
		c.rasterize(&c.scratch[g.indices[t]], &c.scratch[g.indices[t+1]], &c.scratch[g.indices[t+2]])
	}
}

// vertexStage mirrors vs_main of the scene shader and maps the result to
// window coordinates.
func (c *context) vertexStage(mvp gpu.Mat4, light gpu.Vec3, v []float32) varying {
	pos := gpu.Vec3{X: v[0], Y: v[1], Z: v[2]}
	clip := mvp.TransformPoint(pos)
	clip.Z = (clip.Z + clip.W) * 0.5

	if clip.W < minW {
		return varying{culled: true}
	}

	lighting := max(gpu.Vec3{Z: 1}.Dot(light.Sub(pos).Normalize()), minLighting)

	invW := 1 / clip.W
	vp := c.viewport
	return varying{
		x:        float32(vp.x) + (clip.X*invW+1)*0.5*float32(vp.w),
		y:        float32(vp.y) + (1-clip.Y*invW)*0.5*float32(vp.h),
		z:        clip.Z * invW,
		invW:     invW,
		u:        v[3] * invW,
		v:        v[4] * invW,
		lighting: lighting * invW,
	}
}

// shadeFragment mirrors fs_main of the scene shader.
func shadeFragment(u, v, lighting float32) (r, g, b float32) {
	sx := step(0.5, fract(u*checkerCells))
	sy := step(0.5, fract(v*checkerCells))
	checker := fract((sx+sy)*0.5) * 2

	r = mix(checkerRed[0], checkerGreen[0], checker) * lighting
	g = mix(checkerRed[1], checkerGreen[1], checker) * lighting
	b = mix(checkerRed[2], checkerGreen[2], checker) * lighting
	return r, g, b
}

func (c *context) rasterize(v0, v1, v2 *varying) {
	if v0.culled || v1.culled || v2.culled {
		return
	}
	s := c.target

	minX := int(math32.Floor(min3f(v0.x, v1.x, v2.x)))
	maxX := int(math32.Ceil(max3f(v0.x, v1.x, v2.x)))
	minY := int(math32.Floor(min3f(v0.y, v1.y, v2.y)))
	maxY := int(math32.Ceil(max3f(v0.y, v1.y, v2.y)))

	// Clip to the viewport and the surface.
	vp := c.viewport
	minX = max(minX, vp.x, 0)
	minY = max(minY, vp.y, 0)
	maxX = min(maxX, vp.x+vp.w, s.w)
	maxY = min(maxY, vp.y+vp.h, s.h)
	if minX >= maxX || minY >= maxY {
		return
	}

	area := edgeFunction(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 {
		return
	}
	// No culling: flip clockwise triangles.
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}
	invArea := 1 / area

	depthTest := c.depthTest && s.depth != nil

	for y := minY; y < maxY; y++ {
		py := float32(y) + 0.5
		row := y * s.w
		for x := minX; x < maxX; x++ {
			px := float32(x) + 0.5

			w0 := edgeFunction(v1.x, v1.y, v2.x, v2.y, px, py)
			w1 := edgeFunction(v2.x, v2.y, v0.x, v0.y, px, py)
			w2 := edgeFunction(v0.x, v0.y, v1.x, v1.y, px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			b0, b1, b2 := w0*invArea, w1*invArea, w2*invArea

			z := b0*v0.z + b1*v1.z + b2*v2.z
			if z < 0 || z > 1 {
				continue
			}
			i := row + x
			if depthTest {
				d := uint16(z*math.MaxUint16 + 0.5)
				if d >= s.depth[i] {
					continue
				}
				s.depth[i] = d
			}

			invW := b0*v0.invW + b1*v1.invW + b2*v2.invW
			w := 1 / invW
			u := (b0*v0.u + b1*v1.u + b2*v2.u) * w
			v := (b0*v0.v + b1*v1.v + b2*v2.v) * w
			lighting := (b0*v0.lighting + b1*v1.lighting + b2*v2.lighting) * w

			r, g, b := shadeFragment(u, v, lighting)
			o := i * 4
			s.color[o] = toByte(r)
			s.color[o+1] = toByte(g)
			s.color[o+2] = toByte(b)
			s.color[o+3] = 255
		}
	}
}

// edgeFunction returns twice the signed area of triangle (a, b, c).
func edgeFunction(ax, ay, bx, by, cx, cy float32) float32 {
	return (cx-ax)*(by-ay) - (cy-ay)*(bx-ax)
}

func min3f(a, b, c float32) float32 { return min(a, b, c) }

func max3f(a, b, c float32) float32 { return max(a, b, c) }

func clampf(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

func fract(x float32) float32 {
	return x - math32.Floor(x)
}

func step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func mix(a, b, t float32) float32 {
	return a*(1-t) + b*t
}
