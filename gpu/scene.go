package gpu

import "github.com/chewxy/math32"

// VertexStride is the size of one interleaved vertex: position xyz + uv.
const VertexStride = 5 * 4

// UV attribute offset inside a vertex.
const uvOffset = 3 * 4

// Scene constants.
const (
	// ObjectCount is the number of cubes drawn per frame.
	ObjectCount = 5

	// ComplexityFactor converts frames per second into the GPU score.
	ComplexityFactor = 50

	objectSpacing = 2.5
	bobAmplitude  = 2
	bobFrequency  = 0.1
	spinPerFrame  = 2  // degrees
	spinPerObject = 45 // degrees
	lightRadius   = 5
	lightHeight   = 5
	lightSpeed    = 0.05

	frustumNear = 3
	frustumFar  = 20
)

var (
	cameraEye    = Vec3{0, 0, 10}
	cameraCenter = Vec3{}
	cameraUp     = Vec3{0, 1, 0}
	spinAxis     = Vec3{1, 1, 0}
)

// cubeVertices is a unit cube of 8 shared corners, position then uv.
var cubeVertices = []float32{
	// front (z = +1)
	-1, -1, 1, 0, 0,
	1, -1, 1, 1, 0,
	1, 1, 1, 1, 1,
	-1, 1, 1, 0, 1,
	// back (z = -1)
	-1, -1, -1, 0, 0,
	1, -1, -1, 1, 0,
	1, 1, -1, 1, 1,
	-1, 1, -1, 0, 1,
}

// cubeIndices is the triangle list for the six faces.
var cubeIndices = []uint16{
	0, 1, 2, 0, 2, 3, // front
	4, 5, 6, 4, 6, 7, // back
	0, 4, 7, 0, 7, 3, // left
	1, 5, 6, 1, 6, 2, // right
	3, 2, 6, 3, 6, 7, // top
	0, 1, 5, 0, 5, 4, // bottom
}

// CubeGeometry returns copies of the cube vertex and index data.
func CubeGeometry() ([]float32, []uint16) {
	return append([]float32(nil), cubeVertices...), append([]uint16(nil), cubeIndices...)
}

// projectionFor returns the scene projection for a viewport of the given size.
func projectionFor(width, height int) Mat4 {
	ratio := float32(width) / float32(height)
	return Frustum(-ratio, ratio, -1, 1, frustumNear, frustumFar)
}

// viewMatrix returns the fixed camera transform.
func viewMatrix() Mat4 {
	return LookAt(cameraEye, cameraCenter, cameraUp)
}

// objectModel returns the model matrix of object i on the given frame:
// a row along x bobbing on y, spinning about (1,1,0).
func objectModel(i, frame int) Mat4 {
	x := float32(i-2) * objectSpacing
	y := math32.Sin(float32(i+frame)*bobFrequency) * bobAmplitude
	angle := float32(frame*spinPerFrame + i*spinPerObject)
	return Translate4(x, y, 0).Multiply(Rotate4(angle, spinAxis.X, spinAxis.Y, spinAxis.Z))
}

// lightPosition returns the light orbiting the scene on the given frame.
func lightPosition(frame int) Vec3 {
	s, c := math32.Sincos(float32(frame) * lightSpeed)
	return Vec3{
		X: c * lightRadius,
		Y: s * lightRadius,
		Z: lightHeight,
	}
}
