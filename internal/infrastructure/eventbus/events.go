package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// Topic names. Each topic is fanned out over one channel per conversation,
// so per-conversation publish order survives the bus end to end.
const (
	TopicChatMessages  = "chat-messages"
	TopicMessageStatus = "message-status"
	TopicUserPresence  = "user-presence"
)

// Event kinds carried in the envelope.
const (
	EventMessageCreated = "message.created"
	EventStatusChanged  = "message.status-changed"
	EventTyping         = "presence.typing"
	EventPresence       = "presence.online"
)

// presenceBroadcast is the pseudo-conversation scope for global
// online/offline presence updates.
const presenceBroadcast = "broadcast"

// Channel names the bus channel for one topic scoped to one conversation.
// Conversation IDs never contain '.', so the topic/scope split is lossless.
func Channel(topic, conversationID string) string {
	return topic + "." + conversationID
}

// Envelope is the wire frame for every bus message.
type Envelope struct {
	Event          string          `json:"event"`
	ConversationID string          `json:"conversationId,omitempty"`
	Data           json.RawMessage `json:"data"`
}

type EventSender struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ChatEvent is the payload of a message.created event.
type ChatEvent struct {
	MessageID      string      `json:"messageId"`
	ConversationID string      `json:"conversationId"`
	Sender         EventSender `json:"sender"`
	Content        string      `json:"content"`
	MessageType    string      `json:"messageType"`
	SentAt         time.Time   `json:"sentAt"`
	Status         string      `json:"status"`
}

// StatusEvent is the payload of a message.status-changed event.
type StatusEvent struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}

// TypingEvent is ephemeral: published, never persisted, last write wins.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Typing         bool   `json:"typing"`
}

// PresenceEvent announces a user going online or offline.
type PresenceEvent struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// Publisher pushes chat events onto the bus. Implementations must keep
// publish order within one conversation.
type Publisher interface {
	PublishMessageCreated(ctx context.Context, event ChatEvent) error
	PublishStatusChanged(ctx context.Context, event StatusEvent) error
	PublishTyping(ctx context.Context, event TypingEvent) error
	PublishPresence(ctx context.Context, event PresenceEvent) error
}

// Sink receives bus traffic on the consuming side; the websocket manager
// implements it for local fan-out to connected clients.
type Sink interface {
	DeliverConversation(conversationID string, payload []byte)
	DeliverPresence(payload []byte)
}
