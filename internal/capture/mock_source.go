package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back in-memory frames. It is used by tests and by hosts
// that run without a camera.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	fps     int
	stepMs  int64
	clockMs int64
	open    bool
	mu      sync.Mutex
}

// NewMockSource creates a MockSource. Timestamps advance by one frame period
// per Read, starting at zero.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	m := &MockSource{frames: frames, loop: loop}
	m.setFPS(DefaultFPS)
	return m
}

// NewBlankSource creates a looping MockSource of a single black frame.
func NewBlankSource(width, height int) *MockSource {
	blank := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	return NewMockSource([]*gocv.Mat{&blank}, true)
}

func (m *MockSource) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	m.index = 0
	m.clockMs = 0
	return nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MockSource) Read() (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return Frame{}, ErrSourceNotOpen
	}
	if len(m.frames) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	if m.index >= len(m.frames) {
		if !m.loop {
			return Frame{}, ErrEndOfStream
		}
		m.index = 0
	}

	// Clone so callers can close what they get.
	mat := m.frames[m.index].Clone()
	m.index++

	f := Frame{
		Mat:         &mat,
		Width:       mat.Cols(),
		Height:      mat.Rows(),
		TimestampMs: m.clockMs,
	}
	m.clockMs += m.stepMs
	return f, nil
}

func (m *MockSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setFPS(fps)
}

func (m *MockSource) setFPS(fps int) {
	m.fps = fps
	m.stepMs = int64(1000 / fps)
}

func (m *MockSource) FPS() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}

func (m *MockSource) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Reset restarts playback and the clock.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = 0
	m.clockMs = 0
}
