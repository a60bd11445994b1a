// Package protocol defines the WebSocket message types exchanged between
// landmark detectors, the rig server and viewers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Detector → Server messages
	TypeLandmarks MessageType = "landmarks" // One detector batch
	TypeConfig    MessageType = "config"    // Mode, viewport or texture change
	TypeHide      MessageType = "hide"      // Hide the avatar until the next face

	// Server → Detector / Viewer messages
	TypeSession MessageType = "session" // Session opened
	TypeRig     MessageType = "rig"     // Render state for one frame
	TypeError   MessageType = "error"   // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Session   string          `json:"session,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Detector → Server Message Types
// =============================================================================

// LandmarkData is one detector batch: every face found in a frame
type LandmarkData struct {
	Mode  string     `json:"mode,omitempty"` // "mesh", "objects", "both"; empty means both
	Faces []FaceData `json:"faces"`
}

// FaceData is one detected face. Landmarks are [x, y, z] in capture pixels.
type FaceData struct {
	Confidence float64      `json:"confidence"`
	Landmarks  [][3]float64 `json:"landmarks"`
}

// Candidates converts the batch into landmark candidates
func (d LandmarkData) Candidates() []landmark.Candidate {
	out := make([]landmark.Candidate, len(d.Faces))
	for i, f := range d.Faces {
		set := make(landmark.Set, len(f.Landmarks))
		for j, p := range f.Landmarks {
			set[j] = mgl64.Vec3(p)
		}
		out[i] = landmark.Candidate{Landmarks: set, Confidence: f.Confidence}
	}
	return out
}

// ConfigUpdate changes per-session rendering settings. Nil fields are left alone.
type ConfigUpdate struct {
	Mode     *string          `json:"mode,omitempty"`
	Texture  *string          `json:"texture,omitempty"`
	Viewport *avatar.Viewport `json:"viewport,omitempty"`
	// ClearViewport resets to the full capture view
	ClearViewport bool `json:"clear_viewport,omitempty"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// SessionData announces a new detector session
type SessionData struct {
	ID      string   `json:"id"`
	Mode    string   `json:"mode"`
	Objects []string `json:"objects,omitempty"`
}

// RigData is the render state for one frame
type RigData = avatar.Frame

// ErrorData describes a rejected message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeBadMessage = "bad_message"
	CodeBadFrame   = "bad_frame"
	CodeBadConfig  = "bad_config"
)

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
