// Package pose estimates head rotation and size from landmark geometry.
package pose

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

// Rotation holds absolute per-axis angles in radians
type Rotation struct {
	X float64 `json:"x"` // pitch
	Y float64 `json:"y"` // yaw
	Z float64 `json:"z"` // roll
}

// Estimate is the pose derived from one landmark set
type Estimate struct {
	Rotation Rotation `json:"rotation"`
	Width    float64  `json:"width"`  // cheek to cheek, pixel units
	Height   float64  `json:"height"` // forehead to chin, pixel units
}

// Estimator turns an accepted landmark set into an Estimate
type Estimator struct {
	cal Calibration
}

// NewEstimator creates an estimator; zero fields take default values
func NewEstimator(cal Calibration) *Estimator {
	return &Estimator{cal: cal.withDefaults()}
}

// Calibration returns the effective constants
func (e *Estimator) Calibration() Calibration {
	return e.cal
}

// Estimate measures rotation and face size. The set must contain the anchor
// landmarks; otherwise an error wrapping landmark.ErrInvalidInput is returned.
func (e *Estimator) Estimate(set landmark.Set) (Estimate, error) {
	if err := set.Validate(landmark.AnchorIndices()...); err != nil {
		return Estimate{}, err
	}

	top := set.Point(landmark.ForeheadTop)
	chin := set.Point(landmark.Chin)
	left := set.Point(landmark.LeftCheek)
	right := set.Point(landmark.RightCheek)

	return Estimate{
		Rotation: Rotation{
			X: e.pitch(top, chin),
			Y: e.yaw(left, right),
			Z: e.roll(left, right),
		},
		Width:  geometry.Distance3D(left, right, e.cal.DepthAnisotropy),
		Height: geometry.Distance3D(top, chin, e.cal.DepthAnisotropy),
	}, nil
}

// Each axis measures the angle at the first landmark between the segment to
// the second landmark and an axis-aligned leg through a corner point, in the
// plane that excludes the rotation axis.

func (e *Estimator) pitch(top, chin mgl64.Vec3) float64 {
	a := mgl64.Vec2{top.Y(), top.Z()}
	b := mgl64.Vec2{chin.Y(), chin.Z()}
	corner := mgl64.Vec2{chin.Y(), top.Z()}

	sign := 1.0
	if top.Z() > chin.Z() {
		sign = -1
	}
	return sign * geometry.AngleAtVertex(a, b, corner) / e.cal.AttenuationX
}

func (e *Estimator) yaw(left, right mgl64.Vec3) float64 {
	a := mgl64.Vec2{left.X(), left.Z()}
	b := mgl64.Vec2{right.X(), right.Z()}
	corner := mgl64.Vec2{right.X(), left.Z()}

	sign := -1.0
	if left.Z() > right.Z() {
		sign = 1
	}
	return sign * geometry.AngleAtVertex(a, b, corner) / e.cal.AttenuationY
}

func (e *Estimator) roll(left, right mgl64.Vec3) float64 {
	a := mgl64.Vec2{left.X(), left.Y()}
	b := mgl64.Vec2{right.X(), right.Y()}
	corner := mgl64.Vec2{right.X(), left.Y()}

	sign := -1.0
	if left.Y() > right.Y() {
		sign = 1
	}
	return sign * geometry.AngleAtVertex(a, b, corner) / e.cal.AttenuationZ
}
