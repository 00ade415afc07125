package entity

import (
	"time"
)

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
	MessageTypeImage  = "image"
)

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

type Message struct {
	ID             string `json:"id" firestore:"id"`
	ConversationID string `json:"conversation_id" firestore:"conversationId"`
	SenderID       string `json:"sender_id" firestore:"senderId"`
	Content        string `json:"content" firestore:"content"`
	Type           string `json:"type" firestore:"type"` // "text", "system", "image"

	// SentAt is assigned by the server at creation and never changes; edits
	// only touch Content, Edited and EditedAt.
	SentAt   time.Time `json:"sent_at" firestore:"sentAt"`
	Edited   bool      `json:"edited" firestore:"edited"`
	EditedAt time.Time `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
}

// MessageStatus is one append-only delivery-ledger row: user X reached
// status S for message M. Rows are unique per (message, user, status).
type MessageStatus struct {
	ID        string    `json:"id" firestore:"id"`
	MessageID string    `json:"message_id" firestore:"messageId"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Status    string    `json:"status" firestore:"status"` // "sent", "delivered", "read"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// StatusRank orders delivery statuses: sent < delivered < read. Unknown
// statuses rank below sent so they can never win an aggregate.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// ValidMessageType reports whether t is one of the closed set of types.
func ValidMessageType(t string) bool {
	return t == MessageTypeText || t == MessageTypeSystem || t == MessageTypeImage
}
