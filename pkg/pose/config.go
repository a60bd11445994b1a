package pose

import "github.com/teslashibe/go-facerig/pkg/geometry"

// Calibration holds the tunable constants of the estimator
type Calibration struct {
	// Attenuation divides the raw triangle angle per axis. Raw pitch and yaw
	// overshoot the perceived head rotation; roll does not.
	AttenuationX float64 `toml:"attenuation_x" json:"attenuation_x"`
	AttenuationY float64 `toml:"attenuation_y" json:"attenuation_y"`
	AttenuationZ float64 `toml:"attenuation_z" json:"attenuation_z"`

	// DepthAnisotropy scales landmark depth deltas in distance measurements
	DepthAnisotropy float64 `toml:"depth_anisotropy" json:"depth_anisotropy"`
}

// DefaultCalibration returns the values the rig was tuned with
func DefaultCalibration() Calibration {
	return Calibration{
		AttenuationX:    1.5,
		AttenuationY:    1.3,
		AttenuationZ:    1.0,
		DepthAnisotropy: geometry.DefaultDepthAnisotropy,
	}
}

// SmoothCalibration damps every axis, roll included, for calmer avatars
func SmoothCalibration() Calibration {
	cal := DefaultCalibration()
	cal.AttenuationX = 2.0
	cal.AttenuationY = 1.8
	cal.AttenuationZ = 1.3
	return cal
}

// RawCalibration reports the unattenuated triangle angles
func RawCalibration() Calibration {
	cal := DefaultCalibration()
	cal.AttenuationX = 1
	cal.AttenuationY = 1
	cal.AttenuationZ = 1
	return cal
}

// withDefaults replaces non-positive fields with the default values
func (c Calibration) withDefaults() Calibration {
	def := DefaultCalibration()
	if c.AttenuationX <= 0 {
		c.AttenuationX = def.AttenuationX
	}
	if c.AttenuationY <= 0 {
		c.AttenuationY = def.AttenuationY
	}
	if c.AttenuationZ <= 0 {
		c.AttenuationZ = def.AttenuationZ
	}
	if c.DepthAnisotropy <= 0 {
		c.DepthAnisotropy = def.DepthAnisotropy
	}
	return c
}
