// Package hub fans messages out to websocket clients over channels.
// One goroutine (Run) owns the client set; producers never block on
// slow clients.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// TextMessage is a JSON-encoded message
	TextMessage MessageType = iota
	// BinaryMessage is raw binary data such as JPEG previews
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage wraps pre-encoded JSON.
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
