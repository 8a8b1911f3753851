package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion defaults.
const (
	// DefaultMotionThreshold is the percentage of changed pixels that counts
	// as motion.
	DefaultMotionThreshold = 1.0
	// DefaultIdleTimeout is how long a still scene stays active.
	DefaultIdleTimeout = 2 * time.Second

	blurKernel    = 21
	diffThreshold = 25
)

// MotionDetector compares each frame against the previous one after a
// grayscale conversion and a Gaussian blur.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is a percentage of
// pixels; non-positive values select DefaultMotionThreshold.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect reports whether frame differs from the previous frame, and by what
// percentage of pixels. The first frame after creation or Reset only primes
// the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat. The detector may be reused afterwards.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// ActivityGate decides whether a frame is worth sending to the hand
// detector. The gate opens on motion or while a hand is tracked, and closes
// once the scene has been still and handless for the idle timeout.
type ActivityGate struct {
	motion      *MotionDetector
	idleTimeout time.Duration
	lastActive  time.Time
	active      bool
	mu          sync.Mutex
}

// NewActivityGate creates a gate around motion. A non-positive idleTimeout
// selects DefaultIdleTimeout.
func NewActivityGate(motion *MotionDetector, idleTimeout time.Duration) *ActivityGate {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &ActivityGate{motion: motion, idleTimeout: idleTimeout}
}

// Observe feeds one frame. handTracked is whether the previous tick saw a
// hand. It returns true when the frame should go to the detector, and
// whether the gate changed state.
func (g *ActivityGate) Observe(frame *gocv.Mat, handTracked bool, now time.Time) (active, changed bool) {
	moved, _ := g.motion.Detect(frame)

	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.active
	switch {
	case moved || handTracked:
		g.lastActive = now
		g.active = true
	case g.active && now.Sub(g.lastActive) > g.idleTimeout:
		g.active = false
	}
	return g.active, g.active != was
}

// Active reports the current gate state.
func (g *ActivityGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Close releases the motion detector.
func (g *ActivityGate) Close() {
	g.motion.Close()
}
