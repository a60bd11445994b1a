package avatar

import (
	"fmt"

	"github.com/teslashibe/go-facerig/pkg/facemesh"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
	"github.com/teslashibe/go-facerig/pkg/pose"
)

// Config holds everything a Controller needs ahead of the frame loop
type Config struct {
	Resolution          geometry.Resolution
	ConfidenceThreshold float64
	Calibration         pose.Calibration
	ForwardOffset       float64

	// Tables drive dynamic-mesh mode. Without regions only attached-object
	// mode is available.
	Tables facemesh.Tables

	// Texture is handed to the renderer for the mesh overlay; empty means plain white skin
	Texture string
}

// DefaultConfig returns the reference values with no mesh tables
func DefaultConfig() Config {
	return Config{
		Resolution:          geometry.DefaultResolution(),
		ConfidenceThreshold: landmark.DefaultConfidenceThreshold,
		Calibration:         pose.DefaultCalibration(),
		ForwardOffset:       geometry.DefaultForwardOffset,
	}
}

// Viewport is the crop of the full capture the renderer should show
type Viewport struct {
	FullWidth  float64 `json:"full_width"`
	FullHeight float64 `json:"full_height"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Validate checks that the crop lies inside the full view
func (v Viewport) Validate() error {
	if v.FullWidth <= 0 || v.FullHeight <= 0 || v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport dimensions must be positive: %+v", v)
	}
	if v.X < 0 || v.Y < 0 || v.X+v.Width > v.FullWidth || v.Y+v.Height > v.FullHeight {
		return fmt.Errorf("viewport crop outside full view: %+v", v)
	}
	return nil
}
