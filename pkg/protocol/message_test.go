package protocol

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/landmark"
	"github.com/teslashibe/go-facerig/pkg/pose"
	"github.com/teslashibe/go-facerig/pkg/rig"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "landmarks message",
			msgType: TypeLandmarks,
			data:    LandmarkData{Faces: []FaceData{{Confidence: 0.9}}},
		},
		{
			name:    "nil data",
			msgType: TypeHide,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeRig,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	for _, in := range []string{"", "{", `{"data":{}}`} {
		if _, err := ParseMessage([]byte(in)); err == nil {
			t.Errorf("ParseMessage(%q) should fail", in)
		}
	}
}

func TestLandmarksMessage(t *testing.T) {
	cands := []landmark.Candidate{
		{Landmarks: landmark.Set{{1, 2, 3}, {4, 5, 6}}, Confidence: 0.8},
		{Landmarks: landmark.Set{{7, 8, 9}}, Confidence: 0.3},
	}

	msg, err := NewLandmarksMessage(avatar.ModeObjects, cands)
	if err != nil {
		t.Fatalf("NewLandmarksMessage() error = %v", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeLandmarks {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeLandmarks)
	}
	data, err := parsed.GetLandmarkData()
	if err != nil {
		t.Fatalf("GetLandmarkData() error = %v", err)
	}
	if data.Mode != "objects" {
		t.Errorf("Mode = %q, want objects", data.Mode)
	}

	got := data.Candidates()
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Confidence != 0.8 || got[1].Confidence != 0.3 {
		t.Errorf("confidences = %v, %v", got[0].Confidence, got[1].Confidence)
	}
	if got[0].Landmarks.Point(1) != (mgl64.Vec3{4, 5, 6}) {
		t.Errorf("landmark 1 = %v, want [4 5 6]", got[0].Landmarks.Point(1))
	}
}

func TestLandmarkData_WireFormat(t *testing.T) {
	in := `{"type":"landmarks","data":{"faces":[{"confidence":0.7,"landmarks":[[10,20,-3]]}]}}`
	msg, err := ParseMessage([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.GetLandmarkData()
	if err != nil {
		t.Fatal(err)
	}
	cands := data.Candidates()
	if len(cands) != 1 || cands[0].Landmarks.Point(0) != (mgl64.Vec3{10, 20, -3}) {
		t.Errorf("Candidates() = %+v", cands)
	}
	if data.Mode != "" {
		t.Errorf("Mode = %q, want empty", data.Mode)
	}
}

func TestRigMessage(t *testing.T) {
	frame := avatar.Frame{
		Seq:        7,
		Visible:    true,
		Confidence: 0.9,
		Pose:       &pose.Estimate{Rotation: pose.Rotation{X: 0.1}, Width: 200, Height: 250},
		Objects: []rig.State{{
			ID:          "obj-1",
			Name:        "glasses",
			Orientation: [4]float64{0, 0, 0, 1},
			Scale:       mgl64.Vec3{1, 1, 1},
		}},
	}

	msg, err := NewRigMessage("s-1", frame)
	if err != nil {
		t.Fatalf("NewRigMessage() error = %v", err)
	}
	if msg.Session != "s-1" {
		t.Errorf("Session = %q, want s-1", msg.Session)
	}

	raw, _ := msg.Bytes()
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := parsed.GetRigData()
	if err != nil {
		t.Fatalf("GetRigData() error = %v", err)
	}
	if got.Seq != 7 || !got.Visible || got.Pose == nil || got.Pose.Width != 200 {
		t.Errorf("GetRigData() = %+v", got)
	}
	if len(got.Objects) != 1 || got.Objects[0].Orientation[3] != 1 {
		t.Errorf("Objects = %+v", got.Objects)
	}
	if got.Mesh != nil {
		t.Error("Mesh should be omitted when absent")
	}
}

func TestConfigMessage(t *testing.T) {
	mode := "mesh"
	msg, err := NewConfigMessage(ConfigUpdate{
		Mode:     &mode,
		Viewport: &avatar.Viewport{FullWidth: 960, FullHeight: 720, Width: 480, Height: 360},
	})
	if err != nil {
		t.Fatal(err)
	}
	update, err := msg.GetConfigUpdate()
	if err != nil {
		t.Fatalf("GetConfigUpdate() error = %v", err)
	}
	if update.Mode == nil || *update.Mode != "mesh" {
		t.Errorf("Mode = %v, want mesh", update.Mode)
	}
	if update.Texture != nil {
		t.Error("Texture should stay nil")
	}
	if update.Viewport == nil || update.Viewport.Width != 480 {
		t.Errorf("Viewport = %+v", update.Viewport)
	}
}

func TestSessionAndErrorMessages(t *testing.T) {
	msg, err := NewSessionMessage("abc", avatar.ModeBoth, []string{"glasses"})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := msg.GetSessionData()
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "abc" || sess.Mode != "both" || len(sess.Objects) != 1 {
		t.Errorf("GetSessionData() = %+v", sess)
	}

	msg, err = NewErrorMessage(CodeBadFrame, errors.New("landmark 454 out of range"))
	if err != nil {
		t.Fatal(err)
	}
	e, err := msg.GetErrorData()
	if err != nil {
		t.Fatal(err)
	}
	if e.Code != CodeBadFrame || e.Message != "landmark 454 out of range" {
		t.Errorf("GetErrorData() = %+v", e)
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("p1")
	if err != nil {
		t.Fatal(err)
	}
	pd, err := ping.GetPingData()
	if err != nil {
		t.Fatal(err)
	}
	if pd.ID != "p1" || pd.Timestamp == 0 {
		t.Errorf("PingData = %+v", pd)
	}

	pd.Timestamp -= 25
	pong, err := NewPongMessage(*pd)
	if err != nil {
		t.Fatal(err)
	}
	po, err := pong.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	if po.ID != "p1" || po.LatencyMs < 25 {
		t.Errorf("PongData = %+v", po)
	}
}

func TestParseData_NilData(t *testing.T) {
	msg := &Message{Type: TypeHide}
	var v map[string]any
	if err := msg.ParseData(&v); err != nil {
		t.Errorf("ParseData() error = %v", err)
	}
	if v != nil {
		t.Error("ParseData() should leave target untouched")
	}
}
