package protocol

import (
	"time"

	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/landmark"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message from detector candidates
func NewLandmarksMessage(mode avatar.Mode, candidates []landmark.Candidate) (*Message, error) {
	faces := make([]FaceData, len(candidates))
	for i, c := range candidates {
		pts := make([][3]float64, len(c.Landmarks))
		for j, p := range c.Landmarks {
			pts[j] = p
		}
		faces[i] = FaceData{Confidence: c.Confidence, Landmarks: pts}
	}
	return NewMessage(TypeLandmarks, LandmarkData{Mode: string(mode), Faces: faces})
}

// NewConfigMessage creates a configuration update message
func NewConfigMessage(update ConfigUpdate) (*Message, error) {
	return NewMessage(TypeConfig, update)
}

// NewHideMessage creates a hide message
func NewHideMessage() (*Message, error) {
	return NewMessage(TypeHide, nil)
}

// NewSessionMessage creates a session announcement
func NewSessionMessage(id string, mode avatar.Mode, objects []string) (*Message, error) {
	msg, err := NewMessage(TypeSession, SessionData{ID: id, Mode: string(mode), Objects: objects})
	if err != nil {
		return nil, err
	}
	msg.Session = id
	return msg, nil
}

// NewRigMessage wraps a controller frame for the given session
func NewRigMessage(session string, frame avatar.Frame) (*Message, error) {
	msg, err := NewMessage(TypeRig, frame)
	if err != nil {
		return nil, err
	}
	msg.Session = session
	return msg, nil
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response to a ping
func NewPongMessage(ping PingData) (*Message, error) {
	now := time.Now().UnixMilli()
	return NewMessage(TypePong, PongData{
		ID:        ping.ID,
		PingTS:    ping.Timestamp,
		PongTS:    now,
		LatencyMs: now - ping.Timestamp,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarkData extracts a landmark batch from a message
func (m *Message) GetLandmarkData() (*LandmarkData, error) {
	var data LandmarkData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetConfigUpdate extracts a configuration update from a message
func (m *Message) GetConfigUpdate() (*ConfigUpdate, error) {
	var data ConfigUpdate
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRigData extracts a rig frame from a message
func (m *Message) GetRigData() (*RigData, error) {
	var data RigData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionData extracts a session announcement from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error details from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
