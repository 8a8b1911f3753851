package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// fieldOfView is the vertical field of view of the terminal camera.
const fieldOfView = 60 * math.Pi / 180

// cellAspect is the height of a terminal cell over its width.
const cellAspect = 2.0

// projector maps world points to terminal cells for a camera looking at the
// origin with +Y up.
type projector struct {
	eye, forward, right, up r3.Vec
	focal                   float64
	width, height           int
}

func newProjector(eye r3.Vec, width, height int) (projector, bool) {
	if r3.Norm(eye) == 0 || width <= 0 || height <= 0 {
		return projector{}, false
	}
	forward := r3.Unit(r3.Scale(-1, eye))
	right := r3.Cross(forward, r3.Vec{Y: 1})
	if r3.Norm(right) < 1e-9 {
		// Looking straight up or down.
		right = r3.Vec{X: 1}
	}
	right = r3.Unit(right)
	up := r3.Cross(right, forward)

	return projector{
		eye:     eye,
		forward: forward,
		right:   right,
		up:      up,
		focal:   1 / math.Tan(fieldOfView/2),
		width:   width,
		height:  height,
	}, true
}

// project returns the cell for p and its depth. ok is false when p is
// behind the camera or off screen.
func (pr projector) project(p r3.Vec) (x, y int, depth float64, ok bool) {
	rel := r3.Sub(p, pr.eye)
	depth = r3.Dot(rel, pr.forward)
	if depth <= 1e-6 {
		return 0, 0, 0, false
	}

	ndcX := r3.Dot(rel, pr.right) * pr.focal / depth
	ndcY := r3.Dot(rel, pr.up) * pr.focal / depth

	half := float64(pr.height) / 2
	x = int(math.Round(float64(pr.width)/2 + ndcX*half*cellAspect))
	y = int(math.Round(half - ndcY*half))

	if x < 0 || x >= pr.width || y < 0 || y >= pr.height {
		return 0, 0, 0, false
	}
	return x, y, depth, true
}
