// Package capture reads video frames from a camera using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("capture source is not open")
	// ErrEmptyFrame is returned when the device produced no pixels.
	ErrEmptyFrame = errors.New("captured frame is empty")
	// ErrEndOfStream is returned by a finite source after its last frame.
	ErrEndOfStream = errors.New("no more frames")
)

// Frame is one captured image plus the metadata the core needs.
// The caller owns Mat and must Close the frame.
type Frame struct {
	Mat         *gocv.Mat
	Width       int
	Height      int
	TimestampMs int64
}

// Close releases the underlying Mat.
func (f *Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
		f.Mat = nil
	}
}

// Source produces frames.
type Source interface {
	Open() error
	Close() error
	Read() (Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Camera reads frames from a local camera device.
type Camera struct {
	deviceID int
	width    int
	height   int
	fps      int
	capture  *gocv.VideoCapture
	start    time.Time
	mu       sync.Mutex
}

// NewCamera creates a Camera for the given device ID at the default
// resolution and frame rate.
func NewCamera(deviceID int) *Camera {
	return &Camera{
		deviceID: deviceID,
		width:    DefaultWidth,
		height:   DefaultHeight,
		fps:      DefaultFPS,
	}
}

// Open opens the device. Opening an open camera is a no-op.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	c.start = time.Now()
	return nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// Read grabs the next frame. Timestamps are milliseconds since Open and
// never decrease.
func (c *Camera) Read() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return Frame{}, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return Frame{}, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return Frame{}, ErrEmptyFrame
	}

	return Frame{
		Mat:         &mat,
		Width:       mat.Cols(),
		Height:      mat.Rows(),
		TimestampMs: time.Since(c.start).Milliseconds(),
	}, nil
}

// SetFPS sets the requested capture rate. Non-positive values are ignored.
func (c *Camera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *Camera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the device is open.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
