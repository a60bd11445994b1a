// Package preview rasterises rig frames into wireframe images for debugging
// and offline replay.
package preview

import (
	"errors"
	"image"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gogpu/gg"
	"github.com/teslashibe/go-facerig/pkg/avatar"
)

// ErrInvalidSize is returned for non-positive image dimensions
var ErrInvalidSize = errors.New("preview size must be positive")

var (
	background = gg.RGB(0.07, 0.07, 0.09)

	// one stroke colour per region, cycled
	regionColors = []string{"#4fc3f7", "#81c784", "#aed581", "#ffb74d", "#ffd54f", "#e57373", "#ba68c8"}
)

// Render draws the frame's mesh wireframe and object anchors
func Render(frame avatar.Frame, width, height int) (image.Image, error) {
	dc, err := draw(frame, width, height)
	if err != nil {
		return nil, err
	}
	dc.Close()
	return dc.Image(), nil
}

// EncodePNG renders the frame and writes it as PNG
func EncodePNG(w io.Writer, frame avatar.Frame, width, height int) error {
	dc, err := draw(frame, width, height)
	if err != nil {
		return err
	}
	dc.Close()
	return dc.EncodePNG(w)
}

// draw renders the frame. Callers Close the context before reading pixels.
func draw(frame avatar.Frame, width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	dc := gg.NewContext(width, height)
	dc.ClearWithColor(background)
	if !frame.Visible {
		return dc, nil
	}

	p := newProjector(frame.Viewport, width, height)

	if frame.Mesh != nil {
		dc.SetLineWidth(1)
		for i, region := range frame.Mesh.Regions {
			dc.SetHexColor(regionColors[i%len(regionColors)])
			for t := 0; t+2 < len(region.Vertices); t += 3 {
				a := p.point(region.Vertices[t])
				b := p.point(region.Vertices[t+1])
				c := p.point(region.Vertices[t+2])
				dc.MoveTo(a.X(), a.Y())
				dc.LineTo(b.X(), b.Y())
				dc.LineTo(c.X(), c.Y())
				dc.ClosePath()
			}
			if err := dc.Stroke(); err != nil {
				dc.Close()
				return nil, err
			}
		}
	}

	dc.SetRGB(1, 0.3, 0.5)
	dc.SetLineWidth(2)
	for _, obj := range frame.Objects {
		if obj.Hidden {
			continue
		}
		c := p.point(obj.Position)
		r := 6 * obj.Scale.X()
		if r < 2 {
			r = 2
		}
		dc.DrawCircle(c.X(), c.Y(), r)
		if err := dc.Stroke(); err != nil {
			dc.Close()
			return nil, err
		}
	}
	return dc, nil
}

// projector maps view-space NDC to output pixels, honouring the viewport crop
type projector struct {
	vp            *avatar.Viewport
	width, height float64
}

func newProjector(vp *avatar.Viewport, width, height int) projector {
	return projector{vp: vp, width: float64(width), height: float64(height)}
}

// point inverts the NDC flip: u = (1 - ndc) / 2 is the fraction across the
// full capture.
func (p projector) point(v mgl64.Vec3) mgl64.Vec2 {
	u := (1 - v.X()) / 2
	w := (1 - v.Y()) / 2
	if p.vp != nil {
		u = (u*p.vp.FullWidth - p.vp.X) / p.vp.Width
		w = (w*p.vp.FullHeight - p.vp.Y) / p.vp.Height
	}
	return mgl64.Vec2{u * p.width, w * p.height}
}
