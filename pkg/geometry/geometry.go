// Package geometry provides the small set of planar and spatial measurements
// used to turn face landmarks into rig parameters.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDepthAnisotropy compensates for the detector reporting depth on a
// different scale than x/y. It is a calibration constant tuned for the
// MediaPipe face mesh, not a measured ratio.
const DefaultDepthAnisotropy = 1.65

// AngleAtVertex returns the interior angle at a of the triangle (a, b, c),
// in radians, using the law of cosines.
//
// A degenerate triangle (zero-length side next to a) yields 0, which callers
// treat as "no measurable rotation".
func AngleAtVertex(a, b, c mgl64.Vec2) float64 {
	ab := a.Sub(b).Len()
	ac := a.Sub(c).Len()
	bc := b.Sub(c).Len()
	if ab == 0 || ac == 0 {
		return 0
	}

	cos := (ab*ab + ac*ac - bc*bc) / (2 * ab * ac)
	if math.IsNaN(cos) {
		return 0
	}
	// Rounding can push the ratio just outside [-1, 1].
	cos = mgl64.Clamp(cos, -1, 1)

	return math.Acos(cos)
}

// Distance3D returns the distance between a and b with the depth delta
// divided by anisotropy before squaring. Non-positive anisotropy falls back
// to DefaultDepthAnisotropy.
func Distance3D(a, b mgl64.Vec3, anisotropy float64) float64 {
	if anisotropy <= 0 {
		anisotropy = DefaultDepthAnisotropy
	}
	dx := a.X() - b.X()
	dy := a.Y() - b.Y()
	dz := (a.Z() - b.Z()) / anisotropy
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
