package overlay

import (
	"bytes"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/formation"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/tracking"
)

func TestConnections_InRange(t *testing.T) {
	for _, c := range Connections {
		for _, idx := range c {
			if idx < 0 || idx >= detector.NumLandmarks {
				t.Errorf("connection %v has out-of-range index %d", c, idx)
			}
		}
	}
}

func TestGestureColor(t *testing.T) {
	if GestureColor(gesture.KindPointing) == GestureColor(gesture.KindGeneral) {
		t.Error("pointing and general should draw in different colors")
	}
	if GestureColor(gesture.KindNone) != GestureColor(gesture.KindGeneral) {
		t.Error("none should share the general color")
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name  string
		res   tracking.Result
		state formation.State
		want  []string
	}{
		{
			name:  "no hand",
			res:   tracking.NoDetection(),
			state: formation.Tree,
			want:  []string{"TREE", "no hand"},
		},
		{
			name:  "pointing",
			res:   tracking.Result{IsDetected: true, Gesture: gesture.KindPointing, HandSpread: 0.5},
			state: formation.Explode,
			want:  []string{"EXPLODE", "POINTING", "0.50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusLine(tt.res, tt.state)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("StatusLine() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestDrawAndStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat operations")
	}

	mat := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer mat.Close()

	hand := detector.IndexPointLandmarks()
	res := tracking.Result{X: 0.5, Y: 0.3, IsDetected: true, Gesture: gesture.KindPointing}
	Draw(&mat, &hand, res, formation.Tree, Options{Mirror: true})

	if sum := mat.Sum(); sum.Val1+sum.Val2+sum.Val3 == 0 {
		t.Fatal("Draw left the frame blank")
	}

	var latest Latest
	if data, seq := latest.Load(); data != nil || seq != 0 {
		t.Fatalf("empty Latest = (%d bytes, seq %d)", len(data), seq)
	}
	if err := latest.Store(&mat); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	data, seq := latest.Load()
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("stored frame is not a JPEG")
	}
}

func TestDraw_NilAndEmpty(t *testing.T) {
	Draw(nil, nil, tracking.NoDetection(), formation.Tree, Options{})

	empty := gocv.NewMat()
	defer empty.Close()
	Draw(&empty, nil, tracking.NoDetection(), formation.Tree, Options{})
}
