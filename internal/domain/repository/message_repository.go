package repository

import (
	"context"
	"time"

	"uninest/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)

	// ListByConversation returns messages ordered by sentAt ascending with
	// ties broken by ID. The order is never changed on read.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)

	Update(ctx context.Context, message *entity.Message) error
}

// MessageStatusRepository is the storage side of the delivery ledger. Rows
// are append-only; uniqueness per (message, user, status) is enforced by the
// store, and a duplicate write is success, not an error.
type MessageStatusRepository interface {
	Record(ctx context.Context, conversationID string, status *entity.MessageStatus) error

	// RecordReadWithDelivery atomically ensures both a DELIVERED and a READ
	// row exist for (message, user). The DELIVERED timestamp never exceeds
	// the READ timestamp.
	RecordReadWithDelivery(ctx context.Context, conversationID, messageID, userID string, at time.Time) error

	ListByMessage(ctx context.Context, conversationID, messageID string) ([]*entity.MessageStatus, error)
}
