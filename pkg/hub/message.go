// Package hub fans rig frames out to viewer websockets using a channel-based
// broadcast loop.
package hub

// Message is one pre-encoded JSON frame queued for viewers
type Message struct {
	// Session the frame belongs to; empty reaches every viewer
	Session string
	Data    []byte
}

// NewMessage creates a message for a session
func NewMessage(session string, data []byte) Message {
	return Message{Session: session, Data: data}
}

// matches reports whether a viewer following filter should receive m
func (m Message) matches(filter string) bool {
	return filter == "" || m.Session == "" || m.Session == filter
}
