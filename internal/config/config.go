// Package config loads go-facerig configuration from TOML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/facemesh"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
	"github.com/teslashibe/go-facerig/pkg/pose"
	"github.com/teslashibe/go-facerig/pkg/rig"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Defaults
const (
	DefaultPort       = "8000"
	DefaultConfigPath = "configs/facerig.toml"
)

// Config is the full application configuration
type Config struct {
	Server      Server              `toml:"server" json:"server"`
	Capture     geometry.Resolution `toml:"capture" json:"capture"`
	Calibration Calibration         `toml:"calibration" json:"calibration"`
	Mesh        Mesh                `toml:"mesh" json:"mesh"`
	Objects     []Object            `toml:"objects" json:"objects"`

	// Tables are loaded from Mesh.Tables once per Load
	Tables facemesh.Tables `toml:"-" json:"-"`

	// Path is the file this config was loaded from, if any
	Path string `toml:"-" json:"path,omitempty"`
}

// Server holds process-level settings
type Server struct {
	Port          string `toml:"port" json:"port"`
	LogLevel      string `toml:"log_level" json:"log_level"`
	DebugTracking bool   `toml:"debug_tracking" json:"debug_tracking"`
}

// Calibration holds the rig constants. Zero values take the preset's.
type Calibration struct {
	Preset              string  `toml:"preset" json:"preset"` // default, smooth, raw
	ConfidenceThreshold float64 `toml:"confidence_threshold" json:"confidence_threshold"`
	AttenuationX        float64 `toml:"attenuation_x" json:"attenuation_x"`
	AttenuationY        float64 `toml:"attenuation_y" json:"attenuation_y"`
	AttenuationZ        float64 `toml:"attenuation_z" json:"attenuation_z"`
	DepthAnisotropy     float64 `toml:"depth_anisotropy" json:"depth_anisotropy"`
	ForwardOffset       float64 `toml:"forward_offset" json:"forward_offset"`
}

// Mesh points at the triangulation file used by dynamic-mesh mode
type Mesh struct {
	Tables  string `toml:"tables" json:"tables"`
	Texture string `toml:"texture" json:"texture"`
}

// Object describes one attached object and the bounding box its loader reported
type Object struct {
	Name            string     `toml:"name" json:"name"`
	BindingLandmark int        `toml:"binding_landmark" json:"binding_landmark"`
	BindingRatio    mgl64.Vec3 `toml:"binding_ratio" json:"binding_ratio"`
	IdealRatio      mgl64.Vec2 `toml:"ideal_ratio" json:"ideal_ratio"`
	BoundsMin       mgl64.Vec3 `toml:"bounds_min" json:"bounds_min"`
	BoundsMax       mgl64.Vec3 `toml:"bounds_max" json:"bounds_max"`
}

// Spec returns the attachment spec
func (o Object) Spec() rig.AttachmentSpec {
	return rig.AttachmentSpec{
		Name:            o.Name,
		BindingLandmark: o.BindingLandmark,
		BindingRatio:    o.BindingRatio,
		IdealRatio:      o.IdealRatio,
	}
}

// Bounds returns the local bounding box
func (o Object) Bounds() rig.Box {
	return rig.Box{Min: o.BoundsMin, Max: o.BoundsMax}
}

// Default returns the reference configuration
func Default() Config {
	cal := pose.DefaultCalibration()
	return Config{
		Server: Server{
			Port:     DefaultPort,
			LogLevel: "info",
		},
		Capture: geometry.DefaultResolution(),
		Calibration: Calibration{
			Preset:              "default",
			ConfidenceThreshold: landmark.DefaultConfidenceThreshold,
			AttenuationX:        cal.AttenuationX,
			AttenuationY:        cal.AttenuationY,
			AttenuationZ:        cal.AttenuationZ,
			DepthAnisotropy:     cal.DepthAnisotropy,
			ForwardOffset:       geometry.DefaultForwardOffset,
		},
	}
}

// Load reads a TOML file, loads the referenced mesh tables and applies
// environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return Config{}, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a TOML document. Relative table paths resolve against baseDir.
func Parse(data []byte, baseDir string) (Config, error) {
	var raw Config
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg := merge(Default(), raw)
	applyEnv(&cfg)

	if cfg.Mesh.Tables != "" {
		path := cfg.Mesh.Tables
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		tables, err := facemesh.LoadTables(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Tables = tables
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge fills zero fields of raw from base. The preset decides calibration
// values the file leaves out.
func merge(base, raw Config) Config {
	out := raw
	if out.Server.Port == "" {
		out.Server.Port = base.Server.Port
	}
	if out.Server.LogLevel == "" {
		out.Server.LogLevel = base.Server.LogLevel
	}
	if out.Capture.Width == 0 && out.Capture.Height == 0 {
		out.Capture = base.Capture
	}

	preset := presetCalibration(out.Calibration.Preset)
	c := &out.Calibration
	if c.Preset == "" {
		c.Preset = base.Calibration.Preset
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = base.Calibration.ConfidenceThreshold
	}
	if c.AttenuationX == 0 {
		c.AttenuationX = preset.AttenuationX
	}
	if c.AttenuationY == 0 {
		c.AttenuationY = preset.AttenuationY
	}
	if c.AttenuationZ == 0 {
		c.AttenuationZ = preset.AttenuationZ
	}
	if c.DepthAnisotropy == 0 {
		c.DepthAnisotropy = preset.DepthAnisotropy
	}
	if c.ForwardOffset == 0 {
		c.ForwardOffset = base.Calibration.ForwardOffset
	}
	return out
}

func presetCalibration(name string) pose.Calibration {
	switch name {
	case "smooth":
		return pose.SmoothCalibration()
	case "raw":
		return pose.RawCalibration()
	default:
		return pose.DefaultCalibration()
	}
}

// Validate checks ranges
func (c Config) Validate() error {
	if !c.Capture.Valid() {
		return fmt.Errorf("%w: capture resolution %+v", ErrInvalid, c.Capture)
	}
	switch c.Calibration.Preset {
	case "default", "smooth", "raw":
	default:
		return fmt.Errorf("%w: unknown calibration preset %q", ErrInvalid, c.Calibration.Preset)
	}
	if t := c.Calibration.ConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside (0,1]", ErrInvalid, t)
	}
	if c.Calibration.AttenuationX < 0 || c.Calibration.AttenuationY < 0 || c.Calibration.AttenuationZ < 0 {
		return fmt.Errorf("%w: attenuation must be positive", ErrInvalid)
	}
	if c.Calibration.DepthAnisotropy < 0 {
		return fmt.Errorf("%w: depth anisotropy must be positive", ErrInvalid)
	}
	for i, o := range c.Objects {
		if err := o.Spec().Validate(); err != nil {
			return fmt.Errorf("%w: object %d (%s): %v", ErrInvalid, i, o.Name, err)
		}
		size := o.Bounds().Size()
		if size.X() <= 0 || size.Y() <= 0 {
			return fmt.Errorf("%w: object %d (%s): empty bounds", ErrInvalid, i, o.Name)
		}
	}
	return nil
}

// Avatar returns the controller configuration
func (c Config) Avatar() avatar.Config {
	return avatar.Config{
		Resolution:          c.Capture,
		ConfidenceThreshold: c.Calibration.ConfidenceThreshold,
		Calibration: pose.Calibration{
			AttenuationX:    c.Calibration.AttenuationX,
			AttenuationY:    c.Calibration.AttenuationY,
			AttenuationZ:    c.Calibration.AttenuationZ,
			DepthAnisotropy: c.Calibration.DepthAnisotropy,
		},
		ForwardOffset: c.Calibration.ForwardOffset,
		Tables:        c.Tables,
		Texture:       c.Mesh.Texture,
	}
}

// NewController builds a controller and attaches every configured object
func (c Config) NewController() (*avatar.Controller, error) {
	ctrl, err := avatar.New(c.Avatar())
	if err != nil {
		return nil, err
	}
	for _, o := range c.Objects {
		if _, err := ctrl.Attach(o.Spec(), o.Bounds()); err != nil {
			return nil, fmt.Errorf("attach %s: %w", o.Name, err)
		}
	}
	return ctrl, nil
}
