package facemesh

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

const eps = 1e-9

func singleTriangleTables() Tables {
	return Tables{
		Regions: []Region{{Name: Forehead, Triangles: []Triangle{{0, 1, 2}}}},
		UV: UVTable{
			0: {0.1, 0.2},
			1: {0.3, 0.4},
			2: {0.5, 0.6},
		},
	}
}

func TestBuild_SingleTriangle(t *testing.T) {
	res := geometry.Resolution{Width: 960, Height: 720}
	b, err := NewBuilder(singleTriangleTables(), res, geometry.DefaultForwardOffset)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	set := landmark.Set{
		{100, 50, 10},
		{480, 360, 0},
		{901.5, 700.25, -36},
	}
	surface, err := b.Build(set)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(surface.Regions) != 1 || surface.TriangleCount() != 1 {
		t.Fatalf("got %d regions / %d triangles, want 1/1", len(surface.Regions), surface.TriangleCount())
	}
	mesh := surface.Regions[0]
	if mesh.Name != Forehead {
		t.Errorf("Name = %q, want %q", mesh.Name, Forehead)
	}
	for i, p := range set {
		v := mesh.Vertices[i]
		wantX := ((960 - p.X()) / 960) * 2 - 1
		wantY := ((720 - p.Y()) / 720) * 2 - 1
		wantZ := -p.Z()/720 + 5
		if math.Abs(v.X()-wantX) > eps || math.Abs(v.Y()-wantY) > eps || math.Abs(v.Z()-wantZ) > eps {
			t.Errorf("vertex %d = %v, want (%v, %v, %v)", i, v, wantX, wantY, wantZ)
		}
		if mesh.UVs[i] != singleTriangleTables().UV[i] {
			t.Errorf("uv %d = %v, want %v", i, mesh.UVs[i], singleTriangleTables().UV[i])
		}
	}
	if len(mesh.Normals) != 1 || math.Abs(mesh.Normals[0].Len()-1) > eps {
		t.Errorf("Normals = %v, want one unit normal", mesh.Normals)
	}
}

func TestBuild_FreshSurfaceEachFrame(t *testing.T) {
	b, err := NewBuilder(singleTriangleTables(), geometry.DefaultResolution(), geometry.DefaultForwardOffset)
	if err != nil {
		t.Fatal(err)
	}
	set := landmark.Set{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}}

	first, _ := b.Build(set)
	set[0] = mgl64.Vec3{480, 360, 0}
	second, _ := b.Build(set)

	if first == second {
		t.Fatal("Build() returned the same surface twice")
	}
	if first.Regions[0].Vertices[0] == second.Regions[0].Vertices[0] {
		t.Error("second surface should reflect the moved landmark")
	}
	if first.Regions[0].Vertices[0] != (mgl64.Vec3{1, 1, 5}) {
		t.Errorf("first surface was mutated: %v", first.Regions[0].Vertices[0])
	}
}

func TestBuild_ShortSet(t *testing.T) {
	b, err := NewBuilder(singleTriangleTables(), geometry.DefaultResolution(), geometry.DefaultForwardOffset)
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Build(landmark.Set{{0, 0, 0}, {1, 1, 1}})
	var idxErr *landmark.IndexError
	if !errors.As(err, &idxErr) || idxErr.Index != 2 {
		t.Errorf("error = %v, want IndexError for landmark 2", err)
	}
}

func TestNewBuilder_MissingUV(t *testing.T) {
	tables := singleTriangleTables()
	delete(tables.UV, 1)
	_, err := NewBuilder(tables, geometry.DefaultResolution(), geometry.DefaultForwardOffset)
	if !errors.Is(err, ErrMissingUV) {
		t.Errorf("error = %v, want ErrMissingUV", err)
	}
}

func TestNewBuilder_BadResolution(t *testing.T) {
	_, err := NewBuilder(singleTriangleTables(), geometry.Resolution{}, 5)
	if err == nil {
		t.Error("expected error for zero resolution")
	}
}

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	if !n.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, eps) {
		t.Errorf("FaceNormal() = %v, want +Z", n)
	}

	degenerate := FaceNormal(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, 2, 2})
	if degenerate != (mgl64.Vec3{}) {
		t.Errorf("degenerate normal = %v, want zero", degenerate)
	}
}

func TestSurfaceTriangleCount_Nil(t *testing.T) {
	var s *Surface
	if s.TriangleCount() != 0 {
		t.Error("nil surface should have no triangles")
	}
}
