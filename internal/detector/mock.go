package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed set of hands or plays back a scripted sequence,
// one entry per Detect call.
type MockDetector struct {
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	cursor   int
	loop     bool
	err      error
	mu       sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
// It clears any scripted sequence.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
	m.cursor = 0
}

// SetSequence scripts the results of successive Detect calls. A nil entry
// means no hand in that frame. When loop is false the last entry repeats
// once the script is exhausted.
func (m *MockDetector) SetSequence(sequence [][]HandLandmarks, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
	m.cursor = 0
	m.loop = loop
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return m.hands, nil
	}

	if m.cursor >= len(m.sequence) {
		if !m.loop {
			return m.sequence[len(m.sequence)-1], nil
		}
		m.cursor = 0
	}
	hands := m.sequence[m.cursor]
	m.cursor++
	return hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// fingerChain holds MCP, PIP, DIP and tip positions for one finger.
type fingerChain [4]Point3D

// Extended and curled chains for a right hand seen palm-on, wrist at
// (0.5, 0.8). Wrist to middle MCP is 0.15.
var (
	extendedChains = [4]fingerChain{
		{{X: 0.56, Y: 0.66}, {X: 0.57, Y: 0.55}, {X: 0.575, Y: 0.46}, {X: 0.58, Y: 0.37}},
		{{X: 0.50, Y: 0.65}, {X: 0.50, Y: 0.53}, {X: 0.50, Y: 0.43}, {X: 0.50, Y: 0.33}},
		{{X: 0.44, Y: 0.66}, {X: 0.43, Y: 0.55}, {X: 0.425, Y: 0.46}, {X: 0.42, Y: 0.38}},
		{{X: 0.39, Y: 0.69}, {X: 0.37, Y: 0.60}, {X: 0.355, Y: 0.52}, {X: 0.34, Y: 0.45}},
	}
	thumbBase     = [3]Point3D{{X: 0.56, Y: 0.76}, {X: 0.61, Y: 0.72}, {X: 0.65, Y: 0.68}}
	thumbExtended = Point3D{X: 0.70, Y: 0.64}
	thumbCurled   = Point3D{X: 0.52, Y: 0.70}
)

func curledChain(mcp Point3D) fingerChain {
	return fingerChain{
		mcp,
		{X: mcp.X + 0.01, Y: mcp.Y - 0.06, Z: -0.02},
		{X: mcp.X, Y: mcp.Y - 0.02, Z: -0.03},
		{X: mcp.X - 0.01, Y: mcp.Y + 0.02, Z: -0.02},
	}
}

// PoseLandmarks builds a synthetic right-hand pose with each finger either
// extended or curled.
func PoseLandmarks(thumb, index, middle, ring, pinky bool) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	landmarks.Points[ThumbCMC] = thumbBase[0]
	landmarks.Points[ThumbMCP] = thumbBase[1]
	landmarks.Points[ThumbIP] = thumbBase[2]
	if thumb {
		landmarks.Points[ThumbTip] = thumbExtended
	} else {
		landmarks.Points[ThumbTip] = thumbCurled
	}

	for f, extended := range [4]bool{index, middle, ring, pinky} {
		chain := extendedChains[f]
		if !extended {
			chain = curledChain(chain[0])
		}
		base := IndexMCP + f*4
		for j, p := range chain {
			landmarks.Points[base+j] = p
		}
	}

	return landmarks
}

// IndexPointLandmarks returns a pose pointing with the index finger.
func IndexPointLandmarks() HandLandmarks {
	return PoseLandmarks(false, true, false, false, false)
}

// ThumbPointLandmarks returns a pose with only the thumb extended.
func ThumbPointLandmarks() HandLandmarks {
	return PoseLandmarks(true, false, false, false, false)
}

// FistLandmarks returns a closed fist.
func FistLandmarks() HandLandmarks {
	return PoseLandmarks(false, false, false, false, false)
}

// OpenPalmLandmarks returns a pose with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return PoseLandmarks(true, true, true, true, true)
}
