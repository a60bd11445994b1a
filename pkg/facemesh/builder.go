package facemesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

// RegionMesh is the triangulated geometry of one region. Vertices and UVs
// hold three entries per triangle; Normals hold one.
type RegionMesh struct {
	Name     string       `json:"name"`
	Vertices []mgl64.Vec3 `json:"vertices"`
	UVs      []mgl64.Vec2 `json:"uvs"`
	Normals  []mgl64.Vec3 `json:"normals"`
}

// TriangleCount returns the number of triangles in the region
func (m RegionMesh) TriangleCount() int {
	return len(m.Vertices) / 3
}

// Surface is one frame's complete overlay geometry
type Surface struct {
	Regions []RegionMesh `json:"regions"`
}

// TriangleCount returns the number of triangles across all regions
func (s *Surface) TriangleCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.Regions {
		n += r.TriangleCount()
	}
	return n
}

// Builder rebuilds a Surface from landmarks
type Builder struct {
	tables   Tables
	res      geometry.Resolution
	offset   float64
	maxIndex int
}

// NewBuilder validates the tables and captures the view mapping
func NewBuilder(tables Tables, res geometry.Resolution, forwardOffset float64) (*Builder, error) {
	if !res.Valid() {
		return nil, fmt.Errorf("%w: resolution %+v", ErrInvalidTable, res)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		tables:   tables,
		res:      res,
		offset:   forwardOffset,
		maxIndex: tables.MaxIndex(),
	}, nil
}

// Tables returns the triangulation in use
func (b *Builder) Tables() Tables {
	return b.tables
}

// MaxIndex returns the highest landmark index a set must provide
func (b *Builder) MaxIndex() int {
	return b.maxIndex
}

// Build allocates a new Surface for set. Nothing from previous frames is
// reused.
func (b *Builder) Build(set landmark.Set) (*Surface, error) {
	if b.maxIndex >= 0 {
		if err := set.Validate(b.maxIndex); err != nil {
			return nil, err
		}
	}

	surface := &Surface{Regions: make([]RegionMesh, 0, len(b.tables.Regions))}
	for _, region := range b.tables.Regions {
		surface.Regions = append(surface.Regions, b.buildRegion(set, region))
	}
	return surface, nil
}

func (b *Builder) buildRegion(set landmark.Set, region Region) RegionMesh {
	n := len(region.Triangles)
	mesh := RegionMesh{
		Name:     region.Name,
		Vertices: make([]mgl64.Vec3, 0, 3*n),
		UVs:      make([]mgl64.Vec2, 0, 3*n),
		Normals:  make([]mgl64.Vec3, 0, n),
	}

	for _, tri := range region.Triangles {
		var v [3]mgl64.Vec3
		for k, idx := range tri {
			v[k] = geometry.ViewPoint(set.Point(idx), b.res, b.offset)
			mesh.UVs = append(mesh.UVs, b.tables.UV[idx])
		}
		mesh.Vertices = append(mesh.Vertices, v[0], v[1], v[2])
		mesh.Normals = append(mesh.Normals, FaceNormal(v[0], v[1], v[2]))
	}
	return mesh
}

// FaceNormal returns the unit normal of triangle (a, b, c), or the zero
// vector for a degenerate triangle.
func FaceNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}
