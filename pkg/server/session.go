package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/protocol"
)

// Session is one connected detector and the avatar it drives
type Session struct {
	ID        string
	Connected time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex

	// guards everything below; the controller is single-threaded
	mu       sync.Mutex
	ctrl     *avatar.Controller
	mode     avatar.Mode
	last     avatar.Frame
	lastSeen time.Time
	frames   uint64
	rejected uint64
}

// SessionInfo is the REST view of a session
type SessionInfo struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
	Rejected  uint64    `json:"rejected"`
	Visible   bool      `json:"visible"`
	Objects   []string  `json:"objects"`
}

func newSession(id string, conn *websocket.Conn, ctrl *avatar.Controller, mode avatar.Mode) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Connected: now,
		conn:      conn,
		ctrl:      ctrl,
		mode:      mode,
		last:      ctrl.Snapshot(),
		lastSeen:  now,
	}
}

// Send writes a message to the detector
func (ss *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()
	return ss.conn.WriteMessage(websocket.TextMessage, data)
}

// Info returns a snapshot for the API
func (ss *Session) Info() SessionInfo {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return SessionInfo{
		ID:        ss.ID,
		Mode:      string(ss.mode),
		Connected: ss.Connected,
		LastSeen:  ss.lastSeen,
		Frames:    ss.frames,
		Rejected:  ss.rejected,
		Visible:   ss.last.Visible,
		Objects:   ss.objectNames(),
	}
}

// LastFrame returns the most recent render state
func (ss *Session) LastFrame() avatar.Frame {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.last
}

// Hide forces the avatar hidden and returns the resulting frame
func (ss *Session) Hide() avatar.Frame {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.ctrl.Hide()
	ss.last = ss.ctrl.Snapshot()
	return ss.last
}

func (ss *Session) objectNames() []string {
	objs := ss.ctrl.Objects()
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Spec.Name
	}
	return names
}

// reply is the outcome of one inbound message
type reply struct {
	msg       *protocol.Message
	broadcast bool // msg is a rig frame viewers should see
	frame     bool // inbound message was a landmark batch
	rejected  bool
}

// process applies one inbound message and builds the response
func (ss *Session) process(msg *protocol.Message) reply {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.lastSeen = time.Now()

	switch msg.Type {
	case protocol.TypeLandmarks:
		data, err := msg.GetLandmarkData()
		if err != nil {
			return ss.reject(protocol.CodeBadMessage, err, true)
		}
		mode := ss.mode
		if data.Mode != "" {
			if mode, err = avatar.ParseMode(data.Mode); err != nil {
				return ss.reject(protocol.CodeBadFrame, err, true)
			}
		}
		frame, err := ss.ctrl.Update(mode, data.Candidates())
		if err != nil {
			return ss.reject(protocol.CodeBadFrame, err, true)
		}
		ss.frames++
		ss.last = frame
		return ss.rig(true)

	case protocol.TypeConfig:
		update, err := msg.GetConfigUpdate()
		if err != nil {
			return ss.reject(protocol.CodeBadMessage, err, false)
		}
		if err := ss.apply(update); err != nil {
			return ss.reject(protocol.CodeBadConfig, err, false)
		}
		ss.last = ss.ctrl.Snapshot()
		return ss.rig(false)

	case protocol.TypeHide:
		ss.ctrl.Hide()
		ss.last = ss.ctrl.Snapshot()
		return ss.rig(false)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return ss.reject(protocol.CodeBadMessage, err, false)
		}
		pong, err := protocol.NewPongMessage(*ping)
		if err != nil {
			return ss.reject(protocol.CodeBadMessage, err, false)
		}
		return reply{msg: pong}

	default:
		return ss.reject(protocol.CodeBadMessage, fmt.Errorf("unsupported message type %q", msg.Type), false)
	}
}

// apply validates the whole update before changing anything
func (ss *Session) apply(u *protocol.ConfigUpdate) error {
	mode := ss.mode
	if u.Mode != nil {
		m, err := avatar.ParseMode(*u.Mode)
		if err != nil {
			return err
		}
		mode = m
	}
	if u.Viewport != nil {
		if err := u.Viewport.Validate(); err != nil {
			return err
		}
	}

	ss.mode = mode
	if u.Viewport != nil {
		ss.ctrl.SetViewport(u.Viewport)
	} else if u.ClearViewport {
		ss.ctrl.SetViewport(nil)
	}
	if u.Texture != nil {
		ss.ctrl.SetTexture(*u.Texture)
	}
	return nil
}

func (ss *Session) rig(frame bool) reply {
	msg, err := protocol.NewRigMessage(ss.ID, ss.last)
	if err != nil {
		return ss.reject(protocol.CodeBadFrame, err, frame)
	}
	return reply{msg: msg, broadcast: true, frame: frame}
}

func (ss *Session) reject(code string, err error, frame bool) reply {
	if frame {
		ss.rejected++
	}
	msg, _ := protocol.NewErrorMessage(code, err)
	if msg != nil {
		msg.Session = ss.ID
	}
	return reply{msg: msg, frame: frame, rejected: true}
}
