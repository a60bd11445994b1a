// Package avatar rigs a face overlay and attached objects to the best tracked
// face, once per frame.
package avatar

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-facerig/internal/log"
	"github.com/teslashibe/go-facerig/pkg/debug"
	"github.com/teslashibe/go-facerig/pkg/facemesh"
	"github.com/teslashibe/go-facerig/pkg/landmark"
	"github.com/teslashibe/go-facerig/pkg/pose"
	"github.com/teslashibe/go-facerig/pkg/rig"
)

// ErrNoMeshTables is returned by mesh updates on a controller built without regions
var ErrNoMeshTables = errors.New("dynamic mesh mode not configured")

// Mode selects which rig outputs a frame update drives
type Mode string

const (
	ModeMesh    Mode = "mesh"
	ModeObjects Mode = "objects"
	ModeBoth    Mode = "both"
)

// ParseMode maps a mode name, defaulting to ModeBoth
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMesh, ModeObjects, ModeBoth:
		return Mode(s), nil
	case "":
		return ModeBoth, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Frame is the renderer-facing result of one update
type Frame struct {
	Seq        uint64            `json:"seq"`
	Visible    bool              `json:"visible"`
	Confidence float64           `json:"confidence,omitempty"`
	Mesh       *facemesh.Surface `json:"mesh,omitempty"`
	Objects    []rig.State       `json:"objects,omitempty"`
	Pose       *pose.Estimate    `json:"pose,omitempty"`
	Viewport   *Viewport         `json:"viewport,omitempty"`
	Texture    string            `json:"texture,omitempty"`
}

// Controller owns all per-avatar state: rotation history, attached objects
// and the current mesh surface. It is not safe for concurrent use; drive it
// from a single frame loop.
type Controller struct {
	cfg       Config
	selector  landmark.Selector
	estimator *pose.Estimator
	builder   *facemesh.Builder
	tracker   rig.Tracker

	objects  []*rig.Object
	surface  *facemesh.Surface
	visible  bool
	viewport *Viewport
	texture  string
	seq      uint64
}

// New creates a controller. Mesh tables are validated up front.
func New(cfg Config) (*Controller, error) {
	def := DefaultConfig()
	if !cfg.Resolution.Valid() {
		cfg.Resolution = def.Resolution
	}
	if cfg.ForwardOffset == 0 {
		cfg.ForwardOffset = def.ForwardOffset
	}

	c := &Controller{
		cfg:       cfg,
		selector:  landmark.NewSelector(cfg.ConfidenceThreshold),
		estimator: pose.NewEstimator(cfg.Calibration),
		texture:   cfg.Texture,
	}

	if len(cfg.Tables.Regions) > 0 {
		b, err := facemesh.NewBuilder(cfg.Tables, cfg.Resolution, cfg.ForwardOffset)
		if err != nil {
			return nil, fmt.Errorf("mesh tables: %w", err)
		}
		if missing := cfg.Tables.Missing(facemesh.DefaultRegionOrder...); len(missing) > 0 {
			log.Warn("mesh tables incomplete", "missing", missing)
		}
		c.builder = b
	}
	return c, nil
}

// Config returns the effective configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// Attach adds an externally loaded object. bounds is its local bounding box.
func (c *Controller) Attach(spec rig.AttachmentSpec, bounds rig.Box) (*rig.Object, error) {
	o, err := rig.NewObject(spec, bounds, c.cfg.Resolution, c.cfg.ForwardOffset)
	if err != nil {
		return nil, err
	}
	// Bring the newcomer in line with the rotation the others carry.
	c.tracker.Apply([]*rig.Object{o}, c.tracker.Last())
	c.objects = append(c.objects, o)
	log.Debug("object attached", "id", o.ID, "name", spec.Name, "landmark", spec.BindingLandmark)
	return o, nil
}

// Objects returns the attached objects in attach order
func (c *Controller) Objects() []*rig.Object {
	return c.objects
}

// Surface returns the current mesh surface, nil before the first accepted mesh frame
func (c *Controller) Surface() *facemesh.Surface {
	return c.surface
}

// Visible reports the current wholesale visibility
func (c *Controller) Visible() bool {
	return c.visible
}

// SetViewport sets the crop reported to the renderer; nil clears it
func (c *Controller) SetViewport(v *Viewport) error {
	if v != nil {
		if err := v.Validate(); err != nil {
			return err
		}
		cp := *v
		v = &cp
	}
	c.viewport = v
	return nil
}

// SetTexture changes the overlay texture reference
func (c *Controller) SetTexture(texture string) {
	c.texture = texture
}

// Hide hides everything and reports whether visibility changed
func (c *Controller) Hide() bool {
	changed := c.visible
	c.setVisible(false)
	return changed
}

// Snapshot reports the current render state without consuming a frame
func (c *Controller) Snapshot() Frame {
	return c.frame(nil, landmark.Selection{Index: -1})
}

// UpdateMesh runs dynamic-mesh mode for one frame
func (c *Controller) UpdateMesh(candidates []landmark.Candidate) (Frame, error) {
	return c.Update(ModeMesh, candidates)
}

// UpdateObjects runs attached-object mode for one frame
func (c *Controller) UpdateObjects(candidates []landmark.Candidate) (Frame, error) {
	return c.Update(ModeObjects, candidates)
}

// Update selects the face for this frame and drives the requested mode.
// Landmark indices are validated before any state changes; on error the
// controller is left exactly as it was.
func (c *Controller) Update(mode Mode, candidates []landmark.Candidate) (Frame, error) {
	doMesh := mode == ModeMesh || mode == ModeBoth
	doObjects := mode == ModeObjects || mode == ModeBoth
	if !doMesh && !doObjects {
		return Frame{}, fmt.Errorf("unknown mode %q", mode)
	}
	if doMesh && c.builder == nil {
		if mode == ModeMesh {
			return Frame{}, ErrNoMeshTables
		}
		doMesh = false
	}

	sel := c.selector.Select(candidates)
	if !sel.Accepted {
		c.setVisible(false)
		c.seq++
		debug.TrackLog("frame %d: no face (%d candidates)", c.seq, len(candidates))
		return c.frame(nil, sel), nil
	}
	set := sel.Candidate.Landmarks

	if doObjects {
		if err := set.Validate(c.objectIndices()...); err != nil {
			return Frame{}, err
		}
	}

	var surface *facemesh.Surface
	if doMesh {
		s, err := c.builder.Build(set)
		if err != nil {
			return Frame{}, err
		}
		surface = s
	}

	var est *pose.Estimate
	if doObjects {
		e, err := c.estimator.Estimate(set)
		if err != nil {
			return Frame{}, err
		}
		est = &e
		c.rigObjects(set, e)
	}

	if surface != nil {
		// The previous surface is dropped here; nothing else references it.
		c.surface = surface
	}
	c.setVisible(true)
	c.seq++

	if est != nil {
		debug.TrackLog("frame %d: conf=%.2f rot=(%.3f, %.3f, %.3f) size=%.1fx%.1f",
			c.seq, sel.Candidate.Confidence, est.Rotation.X, est.Rotation.Y, est.Rotation.Z, est.Width, est.Height)
	} else {
		debug.TrackLog("frame %d: conf=%.2f mesh=%d triangles", c.seq, sel.Candidate.Confidence, c.surface.TriangleCount())
	}
	return c.frame(est, sel), nil
}

// rigObjects resets rotation, rescales, reapplies rotation and rebinds
func (c *Controller) rigObjects(set landmark.Set, est pose.Estimate) {
	if len(c.objects) == 0 {
		c.tracker.Update(nil, est.Rotation)
		return
	}

	c.tracker.Reset(c.objects)
	for _, o := range c.objects {
		o.ApplyScale(est.Width, est.Height)
	}
	c.tracker.Apply(c.objects, est.Rotation)
	for _, o := range c.objects {
		o.Bind(set.Point(o.Spec.BindingLandmark), c.cfg.Resolution)
	}
}

func (c *Controller) objectIndices() []int {
	indices := landmark.AnchorIndices()
	for _, o := range c.objects {
		indices = append(indices, o.Spec.BindingLandmark)
	}
	return indices
}

func (c *Controller) setVisible(v bool) {
	if c.visible != v {
		log.Debug("avatar visibility changed", "visible", v)
	}
	c.visible = v
}

func (c *Controller) frame(est *pose.Estimate, sel landmark.Selection) Frame {
	f := Frame{
		Seq:      c.seq,
		Visible:  c.visible,
		Pose:     est,
		Viewport: c.viewport,
		Texture:  c.texture,
	}
	if sel.Index >= 0 {
		f.Confidence = sel.Candidate.Confidence
	}
	if c.visible {
		f.Mesh = c.surface
	}
	if len(c.objects) > 0 {
		f.Objects = make([]rig.State, len(c.objects))
		for i, o := range c.objects {
			f.Objects[i] = o.State(!c.visible)
		}
	}
	return f
}
