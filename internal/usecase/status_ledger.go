package usecase

import (
	"context"
	"time"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
)

// StatusLedger is the append-only delivery ledger for messages. Every
// operation is idempotent: the storage layer's uniqueness constraint is the
// only concurrency control, and a duplicate recording is success.
type StatusLedger struct {
	statusRepo repository.MessageStatusRepository
}

func NewStatusLedger(statusRepo repository.MessageStatusRepository) *StatusLedger {
	return &StatusLedger{
		statusRepo: statusRepo,
	}
}

// RecordSent seeds the ledger at message creation, synchronously with the
// message write.
func (l *StatusLedger) RecordSent(ctx context.Context, conversationID string, message *entity.Message) error {
	return l.statusRepo.Record(ctx, conversationID, &entity.MessageStatus{
		MessageID: message.ID,
		UserID:    message.SenderID,
		Status:    entity.StatusSent,
		CreatedAt: message.SentAt,
	})
}

// RecordDelivered notes that the recipient's session received the event.
func (l *StatusLedger) RecordDelivered(ctx context.Context, conversationID, messageID, userID string) error {
	return l.statusRepo.Record(ctx, conversationID, &entity.MessageStatus{
		MessageID: messageID,
		UserID:    userID,
		Status:    entity.StatusDelivered,
		CreatedAt: time.Now(),
	})
}

// RecordRead notes an explicit read acknowledgment. A read without a prior
// delivery is reconciled on write: the missing DELIVERED row is persisted
// together with the READ row so the aggregate stays monotonic.
func (l *StatusLedger) RecordRead(ctx context.Context, conversationID, messageID, userID string) error {
	return l.statusRepo.RecordReadWithDelivery(ctx, conversationID, messageID, userID, time.Now())
}

// AggregateStatus returns the highest status any non-sender participant has
// reached for the message, or SENT when no recipient row exists yet.
func (l *StatusLedger) AggregateStatus(ctx context.Context, conversationID, messageID, senderID string) (string, error) {
	statuses, err := l.statusRepo.ListByMessage(ctx, conversationID, messageID)
	if err != nil {
		return "", err
	}

	best := entity.StatusSent
	for _, st := range statuses {
		if st.UserID == senderID {
			continue
		}
		if entity.StatusRank(st.Status) > entity.StatusRank(best) {
			best = st.Status
		}
	}

	return best, nil
}
