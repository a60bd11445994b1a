// Package rig drives externally authored objects attached to a tracked face:
// orientation without drift, uniform scale, and landmark binding.
package rig

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/teslashibe/go-facerig/pkg/geometry"
)

// ErrInvalidAttachment is returned for attachment specs that cannot be rigged
var ErrInvalidAttachment = errors.New("invalid attachment")

// Box is an axis-aligned bounding box in the object's local space
type Box struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// Size returns the extent of the box along each axis
func (b Box) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// At returns the point at fractional coordinates ratio within the box
func (b Box) At(ratio mgl64.Vec3) mgl64.Vec3 {
	size := b.Size()
	return mgl64.Vec3{
		b.Min.X() + ratio.X()*size.X(),
		b.Min.Y() + ratio.Y()*size.Y(),
		b.Min.Z() + ratio.Z()*size.Z(),
	}
}

// AttachmentSpec describes how an object follows the face
type AttachmentSpec struct {
	Name            string     `toml:"name" json:"name"`
	BindingLandmark int        `toml:"binding_landmark" json:"binding_landmark"`
	BindingRatio    mgl64.Vec3 `toml:"binding_ratio" json:"binding_ratio"` // within the bounding box, [0,1] per axis
	IdealRatio      mgl64.Vec2 `toml:"ideal_ratio" json:"ideal_ratio"`     // target size relative to face width/height
}

// Validate checks ranges that would make the rig degenerate
func (s AttachmentSpec) Validate() error {
	if s.BindingLandmark < 0 {
		return fmt.Errorf("%w: binding landmark %d", ErrInvalidAttachment, s.BindingLandmark)
	}
	for i := 0; i < 3; i++ {
		if r := s.BindingRatio[i]; r < 0 || r > 1 || math.IsNaN(r) {
			return fmt.Errorf("%w: binding ratio %v outside [0,1]", ErrInvalidAttachment, s.BindingRatio)
		}
	}
	if s.IdealRatio.X() <= 0 || s.IdealRatio.Y() <= 0 {
		return fmt.Errorf("%w: ideal ratio %v must be positive", ErrInvalidAttachment, s.IdealRatio)
	}
	return nil
}

// Object is one attached object and its current transform
type Object struct {
	ID   string
	Spec AttachmentSpec

	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Scale       mgl64.Vec3

	binding     mgl64.Vec3 // local space
	currentSize mgl64.Vec2 // pixel units
}

// NewObject prepares an object for rigging. bounds is the asset's bounding
// box in its own local space, as reported by the external loader.
func NewObject(spec AttachmentSpec, bounds Box, res geometry.Resolution, forwardOffset float64) (*Object, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	size := bounds.Size()
	if size.X() <= 0 || size.Y() <= 0 {
		return nil, fmt.Errorf("%w: empty bounding box %v", ErrInvalidAttachment, size)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("%w: resolution %+v", ErrInvalidAttachment, res)
	}

	return &Object{
		ID:          uuid.NewString(),
		Spec:        spec,
		Position:    mgl64.Vec3{0, 0, forwardOffset + 1 - spec.BindingRatio.Z()},
		Orientation: mgl64.QuatIdent(),
		Scale:       mgl64.Vec3{1, 1, 1},
		binding:     bounds.At(spec.BindingRatio),
		currentSize: mgl64.Vec2{size.X() / 2 * res.Width, size.Y() / 2 * res.Height},
	}, nil
}

// BindingPoint returns the binding point in local space
func (o *Object) BindingPoint() mgl64.Vec3 {
	return o.binding
}

// CurrentSize returns the tracked footprint in pixel units
func (o *Object) CurrentSize() mgl64.Vec2 {
	return o.currentSize
}

// Transform returns the local-to-world matrix: translate * rotate * scale
func (o *Object) Transform() mgl64.Mat4 {
	return mgl64.Translate3D(o.Position.X(), o.Position.Y(), o.Position.Z()).
		Mul4(o.Orientation.Mat4()).
		Mul4(mgl64.Scale3D(o.Scale.X(), o.Scale.Y(), o.Scale.Z()))
}

// LocalToWorld maps a local-space point to world space
func (o *Object) LocalToWorld(v mgl64.Vec3) mgl64.Vec3 {
	return o.Transform().Mul4x1(v.Vec4(1)).Vec3()
}

// RotateOnWorldAxis composes a rotation about a world axis onto the current
// orientation. The position is unchanged.
func (o *Object) RotateOnWorldAxis(axis mgl64.Vec3, angle float64) {
	if angle == 0 {
		return
	}
	o.Orientation = mgl64.QuatRotate(angle, axis).Mul(o.Orientation).Normalize()
}

// ApplyScale grows or shrinks the object uniformly so its footprint matches
// the measured face size on the dominant axis. It returns the applied factor.
// Degenerate measurements leave the object untouched and return 1.
func (o *Object) ApplyScale(width, height float64) float64 {
	byWidth := width * o.Spec.IdealRatio.X() / o.currentSize.X()
	byHeight := height * o.Spec.IdealRatio.Y() / o.currentSize.Y()
	factor := math.Max(byWidth, byHeight)
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 1
	}

	o.currentSize = o.currentSize.Mul(factor)
	o.Scale = o.Scale.Mul(factor)
	return factor
}

// Bind moves the object in x/y so that its binding point, not its origin,
// lands on the landmark's view-space position. Depth stays fixed.
func (o *Object) Bind(target mgl64.Vec3, res geometry.Resolution) {
	offset := o.LocalToWorld(o.binding).Sub(o.Position)
	o.Position = mgl64.Vec3{
		geometry.ToNDC(target.X(), res.Width) - offset.X(),
		geometry.ToNDC(target.Y(), res.Height) - offset.Y(),
		o.Position.Z(),
	}
}

// State is the renderer-facing snapshot of an object
type State struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Position    mgl64.Vec3 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // x, y, z, w
	Scale       mgl64.Vec3 `json:"scale"`
	Hidden      bool       `json:"hidden"`
}

// State returns a snapshot of the current transform
func (o *Object) State(hidden bool) State {
	q := o.Orientation
	return State{
		ID:          o.ID,
		Name:        o.Spec.Name,
		Position:    o.Position,
		Orientation: [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W},
		Scale:       o.Scale,
		Hidden:      hidden,
	}
}
