package gpu

import "errors"

// Benchmark outcome errors. Offscreen.Run wraps the underlying platform error
// with one of these, so callers classify failures with errors.Is.
var (
	// ErrGraphicsInit is returned when the display, config, context or surface
	// could not be acquired, or could not be bound to the current thread.
	ErrGraphicsInit = errors.New("gpu: graphics initialization failed")

	// ErrShaderCompile is returned when the scene program fails to compile or
	// link, or lacks an attribute or uniform the renderer needs.
	ErrShaderCompile = errors.New("gpu: shader compilation failed")

	// ErrDraw is returned when a frame fails or panics inside the draw loop.
	ErrDraw = errors.New("gpu: draw failed")

	// ErrInvalidFrameCount is returned for a frame target below one.
	ErrInvalidFrameCount = errors.New("gpu: frame count must be at least 1")

	// ErrInvalidViewport is returned for non-positive surface dimensions.
	ErrInvalidViewport = errors.New("gpu: invalid viewport")

	// ErrNotReady is returned by OnDrawFrame before a successful OnContextReady
	// and OnViewportChanged.
	ErrNotReady = errors.New("gpu: renderer not ready")
)

// Platform errors shared by the platform implementations.
var (
	// ErrPlatformNotAvailable is returned when no platform with the requested
	// name is registered.
	ErrPlatformNotAvailable = errors.New("gpu: platform not available")

	// ErrNoMatchingConfig is returned by ChooseConfig when the platform cannot
	// satisfy the requested attributes.
	ErrNoMatchingConfig = errors.New("gpu: no matching config")

	// ErrNotCurrent is returned by context operations issued while the
	// context is not bound to a surface.
	ErrNotCurrent = errors.New("gpu: context not current")

	// ErrDisplayTerminated is returned by operations on a terminated display.
	ErrDisplayTerminated = errors.New("gpu: display terminated")

	// ErrForeignResource is returned when a handle created by one platform is
	// passed to another.
	ErrForeignResource = errors.New("gpu: resource belongs to another display")
)
