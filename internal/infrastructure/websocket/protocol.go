package websocket

import (
	"encoding/json"
)

// Inbound frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameTyping      = "typing"
	FrameMarkRead    = "mark_read"
	FramePing        = "ping"
)

// Outbound frame types.
const (
	FramePong  = "pong"
	FrameError = "error"
	FrameAck   = "ack"
)

// Frame is the client-facing message envelope. Bus envelopes are forwarded
// to clients verbatim; this type covers everything else.
type Frame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Typing         bool   `json:"typing,omitempty"`
	Error          string `json:"error,omitempty"`
}

func marshalFrame(f Frame) []byte {
	payload, err := json.Marshal(f)
	if err != nil {
		return []byte(`{"type":"error","error":"internal"}`)
	}
	return payload
}

func errorFrame(message string) []byte {
	return marshalFrame(Frame{Type: FrameError, Error: message})
}
