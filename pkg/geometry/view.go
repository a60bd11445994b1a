package geometry

import "github.com/go-gl/mathgl/mgl64"

// DefaultForwardOffset keeps rebuilt geometry in front of the camera.
const DefaultForwardOffset = 5.0

// Resolution is the capture resolution landmark coordinates are expressed in.
type Resolution struct {
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

// DefaultResolution matches the capture canvas the rig was tuned against.
func DefaultResolution() Resolution {
	return Resolution{Width: 960, Height: 720}
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// ToNDC flips a pixel coordinate and maps it into [-1, 1].
func ToNDC(coord, dimension float64) float64 {
	return ((dimension-coord)/dimension)*2 - 1
}

// ViewPoint maps a landmark in pixel space to view space. Depth is negated,
// normalised by the capture height and pushed forward by offset.
func ViewPoint(p mgl64.Vec3, res Resolution, offset float64) mgl64.Vec3 {
	return mgl64.Vec3{
		ToNDC(p.X(), res.Width),
		ToNDC(p.Y(), res.Height),
		-p.Z()/res.Height + offset,
	}
}
