package rig

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/pose"
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// Tracker keeps the rotation last applied to a group of objects so that each
// frame's absolute estimate can replace it. World-axis rotations compose onto
// the current orientation, so the previous angles are undone in reverse axis
// order (Z, Y, X) before the new ones are applied in forward order (X, Y, Z).
type Tracker struct {
	last pose.Rotation
}

// Last returns the rotation currently applied
func (t *Tracker) Last() pose.Rotation {
	return t.last
}

// Reset undoes the last applied rotation on every object
func (t *Tracker) Reset(objects []*Object) {
	for _, o := range objects {
		o.RotateOnWorldAxis(axisZ, -t.last.Z)
		o.RotateOnWorldAxis(axisY, -t.last.Y)
		o.RotateOnWorldAxis(axisX, -t.last.X)
	}
	t.last = pose.Rotation{}
}

// Apply rotates every object by r and records it. Objects must be in the
// reset state.
func (t *Tracker) Apply(objects []*Object, r pose.Rotation) {
	for _, o := range objects {
		o.RotateOnWorldAxis(axisX, r.X)
		o.RotateOnWorldAxis(axisY, r.Y)
		o.RotateOnWorldAxis(axisZ, r.Z)
	}
	t.last = r
}

// Update replaces the applied rotation with r
func (t *Tracker) Update(objects []*Object, r pose.Rotation) {
	t.Reset(objects)
	t.Apply(objects, r)
}

// Orientation returns the absolute orientation a reset object reaches after
// Apply(r): X first, then Y, then Z, all about world axes.
func Orientation(r pose.Rotation) mgl64.Quat {
	qx := mgl64.QuatRotate(r.X, axisX)
	qy := mgl64.QuatRotate(r.Y, axisY)
	qz := mgl64.QuatRotate(r.Z, axisZ)
	return qz.Mul(qy).Mul(qx)
}
