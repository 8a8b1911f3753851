// Package overlay draws tracking state onto camera frames and keeps the
// latest annotated frame as JPEG for streaming.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/formation"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/tracking"
)

// Connections lists the landmark pairs joined when drawing a hand.
var Connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP}, {detector.PinkyDIP, detector.PinkyTip},
	{detector.Wrist, detector.PinkyMCP},
}

var (
	boneColor    = color.RGBA{R: 200, G: 200, B: 200, A: 0}
	jointColor   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	generalColor = color.RGBA{R: 80, G: 200, B: 80, A: 0}
	pointColor   = color.RGBA{R: 60, G: 60, B: 230, A: 0}
	labelColor   = color.RGBA{R: 0, G: 215, B: 255, A: 0}
)

// GestureColor returns the marker color for a gesture kind. Colors are BGR
// ordered as gocv draws into BGR Mats.
func GestureColor(kind gesture.Kind) color.RGBA {
	if kind == gesture.KindPointing {
		return pointColor
	}
	return generalColor
}

// Options control drawing.
type Options struct {
	// Mirror must match the tracking mirror setting so the active point
	// lands on the drawn hand.
	Mirror bool
}

// Draw annotates mat with the hand skeleton, the active point and a status
// line. A nil hand draws only the status line.
func Draw(mat *gocv.Mat, hand *detector.HandLandmarks, res tracking.Result, state formation.State, opts Options) {
	if mat == nil || mat.Empty() {
		return
	}
	w, h := mat.Cols(), mat.Rows()

	if hand != nil {
		for _, c := range Connections {
			gocv.Line(mat, toPixel(hand.Points[c[0]], w, h), toPixel(hand.Points[c[1]], w, h), boneColor, 2)
		}
		for _, p := range hand.Points {
			gocv.Circle(mat, toPixel(p, w, h), 3, jointColor, -1)
		}
	}

	if res.IsDetected {
		x := res.X
		if opts.Mirror {
			x = 1 - x
		}
		active := image.Pt(int(x*float64(w)), int(res.Y*float64(h)))
		gocv.Circle(mat, active, 8, GestureColor(res.Gesture), -1)
	}

	gocv.PutText(mat, StatusLine(res, state), image.Pt(10, 24), gocv.FontHersheySimplex, 0.6, labelColor, 2)
}

// StatusLine is the text drawn in the frame corner.
func StatusLine(res tracking.Result, state formation.State) string {
	if !res.IsDetected {
		return fmt.Sprintf("%s | no hand", state)
	}
	return fmt.Sprintf("%s | %s | spread %.2f", state, res.Gesture, res.HandSpread)
}

func toPixel(p detector.Point3D, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}

// ErrEmptyFrame is returned when storing a frame with no pixels.
var ErrEmptyFrame = errors.New("overlay: empty frame")

// Latest holds the most recent annotated frame as JPEG bytes.
type Latest struct {
	jpeg []byte
	seq  uint64
	mu   sync.RWMutex
}

// Store encodes mat and replaces the held frame.
func (l *Latest) Store(mat *gocv.Mat) error {
	if mat == nil || mat.Empty() {
		return ErrEmptyFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	l.mu.Lock()
	l.jpeg = data
	l.seq++
	l.mu.Unlock()
	return nil
}

// Load returns the held frame and its sequence number. The sequence is zero
// until the first Store.
func (l *Latest) Load() ([]byte, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jpeg, l.seq
}
