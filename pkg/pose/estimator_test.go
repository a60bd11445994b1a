package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/geometry"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

const eps = 1e-9

// neutralFace returns a frontal face centred in a 960x720 capture
func neutralFace() landmark.Set {
	set := make(landmark.Set, landmark.MinPoints)
	set[landmark.ForeheadTop] = mgl64.Vec3{480, 200, 0}
	set[landmark.Chin] = mgl64.Vec3{480, 500, 0}
	set[landmark.LeftCheek] = mgl64.Vec3{330, 350, 0}
	set[landmark.RightCheek] = mgl64.Vec3{630, 350, 0}
	return set
}

func TestEstimate_Neutral(t *testing.T) {
	est, err := NewEstimator(DefaultCalibration()).Estimate(neutralFace())
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if est.Rotation != (Rotation{}) {
		t.Errorf("Rotation = %+v, want zero", est.Rotation)
	}
	if math.Abs(est.Width-300) > eps {
		t.Errorf("Width = %v, want 300", est.Width)
	}
	if math.Abs(est.Height-300) > eps {
		t.Errorf("Height = %v, want 300", est.Height)
	}
}

func TestEstimate_Axes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(landmark.Set)
		want   Rotation
	}{
		{
			name:   "pitch forehead closer",
			mutate: func(s landmark.Set) { s[landmark.ForeheadTop][2] = -100 },
			want:   Rotation{X: math.Atan(100.0/300.0) / 1.5},
		},
		{
			name:   "pitch forehead further",
			mutate: func(s landmark.Set) { s[landmark.ForeheadTop][2] = 100 },
			want:   Rotation{X: -math.Atan(100.0/300.0) / 1.5},
		},
		{
			name: "yaw left cheek further",
			mutate: func(s landmark.Set) {
				s[landmark.LeftCheek][2] = 50
				s[landmark.RightCheek][2] = -50
			},
			want: Rotation{Y: math.Atan(100.0/300.0) / 1.3},
		},
		{
			name: "yaw right cheek further",
			mutate: func(s landmark.Set) {
				s[landmark.LeftCheek][2] = -50
				s[landmark.RightCheek][2] = 50
			},
			want: Rotation{Y: -math.Atan(100.0/300.0) / 1.3},
		},
		{
			name: "roll left cheek lower",
			mutate: func(s landmark.Set) {
				s[landmark.LeftCheek][1] = 380
				s[landmark.RightCheek][1] = 320
			},
			want: Rotation{Z: math.Atan(60.0 / 300.0)},
		},
		{
			name: "roll left cheek higher",
			mutate: func(s landmark.Set) {
				s[landmark.LeftCheek][1] = 320
				s[landmark.RightCheek][1] = 380
			},
			want: Rotation{Z: -math.Atan(60.0 / 300.0)},
		},
	}

	est := NewEstimator(DefaultCalibration())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := neutralFace()
			tt.mutate(set)
			got, err := est.Estimate(set)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if math.Abs(got.Rotation.X-tt.want.X) > eps ||
				math.Abs(got.Rotation.Y-tt.want.Y) > eps ||
				math.Abs(got.Rotation.Z-tt.want.Z) > eps {
				t.Errorf("Rotation = %+v, want %+v", got.Rotation, tt.want)
			}
		})
	}
}

func TestEstimate_ForeheadChinPerturbation(t *testing.T) {
	est := NewEstimator(DefaultCalibration())

	base := neutralFace()
	base[landmark.LeftCheek] = mgl64.Vec3{330, 380, 40}
	base[landmark.RightCheek] = mgl64.Vec3{630, 320, -20}
	before, err := est.Estimate(base)
	if err != nil {
		t.Fatal(err)
	}

	perturbed := append(landmark.Set(nil), base...)
	perturbed[landmark.ForeheadTop] = mgl64.Vec3{0, 100, 0}
	perturbed[landmark.Chin] = mgl64.Vec3{0, 0, 0}
	after, err := est.Estimate(perturbed)
	if err != nil {
		t.Fatal(err)
	}

	// Vertical segment with equal depth: the triangle collapses, no pitch.
	if after.Rotation.X != 0 {
		t.Errorf("pitch = %v, want 0", after.Rotation.X)
	}
	if after.Rotation.Y != before.Rotation.Y || after.Rotation.Z != before.Rotation.Z {
		t.Errorf("yaw/roll changed: before %+v, after %+v", before.Rotation, after.Rotation)
	}
	if math.Abs(after.Height-100) > eps {
		t.Errorf("Height = %v, want 100", after.Height)
	}
}

func TestEstimate_Calibration(t *testing.T) {
	set := neutralFace()
	set[landmark.ForeheadTop][2] = -100

	raw, _ := NewEstimator(RawCalibration()).Estimate(set)
	def, _ := NewEstimator(DefaultCalibration()).Estimate(set)
	smooth, _ := NewEstimator(SmoothCalibration()).Estimate(set)

	if math.Abs(raw.Rotation.X-def.Rotation.X*1.5) > eps {
		t.Errorf("raw pitch %v should be 1.5x default %v", raw.Rotation.X, def.Rotation.X)
	}
	if smooth.Rotation.X >= def.Rotation.X {
		t.Errorf("smooth pitch %v should be below default %v", smooth.Rotation.X, def.Rotation.X)
	}

	zero := NewEstimator(Calibration{})
	if zero.Calibration() != DefaultCalibration() {
		t.Errorf("zero calibration = %+v, want defaults", zero.Calibration())
	}
}

func TestEstimate_DepthAnisotropy(t *testing.T) {
	set := neutralFace()
	set[landmark.LeftCheek][2] = 165
	got, _ := NewEstimator(DefaultCalibration()).Estimate(set)
	want := geometry.Distance3D(set[landmark.LeftCheek], set[landmark.RightCheek], 1.65)
	if math.Abs(got.Width-want) > eps {
		t.Errorf("Width = %v, want %v", got.Width, want)
	}
}

func TestEstimate_ShortSet(t *testing.T) {
	_, err := NewEstimator(DefaultCalibration()).Estimate(make(landmark.Set, 200))
	if !errors.Is(err, landmark.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
