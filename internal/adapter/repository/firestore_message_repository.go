package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messagesRef(conversationID string) *firestore.CollectionRef {
	return r.client.Collection("conversations").Doc(conversationID).Collection("messages")
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	_, err := r.messagesRef(message.ConversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messagesRef(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}

	return &message, nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	// sentAt ascending, document ID as tiebreak: the read order is the
	// conversation's total order and is never rearranged here.
	query := r.messagesRef(conversationID).
		OrderBy("sentAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while counting messages for conversation %s: %v", conversationID, err)
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message document %s: %v", doc.Ref.ID, err)
			continue
		}

		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreMessageRepository) Update(ctx context.Context, message *entity.Message) error {
	_, err := r.messagesRef(message.ConversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to update message", err)
	}

	return nil
}

type firestoreMessageStatusRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageStatusRepository(client *firestore.Client) repository.MessageStatusRepository {
	return &firestoreMessageStatusRepository{
		client: client,
	}
}

func (r *firestoreMessageStatusRepository) statusesRef(conversationID, messageID string) *firestore.CollectionRef {
	return r.client.Collection("conversations").Doc(conversationID).
		Collection("messages").Doc(messageID).
		Collection("statuses")
}

// Ledger rows live at a deterministic document ID, so Create is the
// uniqueness constraint: a concurrent duplicate surfaces as AlreadyExists
// and is swallowed as success.
func statusDocID(messageID, userID, st string) string {
	return fmt.Sprintf("%s_%s_%s", messageID, userID, st)
}

func (r *firestoreMessageStatusRepository) Record(ctx context.Context, conversationID string, ms *entity.MessageStatus) error {
	ms.ID = statusDocID(ms.MessageID, ms.UserID, ms.Status)
	if ms.CreatedAt.IsZero() {
		ms.CreatedAt = time.Now()
	}

	_, err := r.statusesRef(conversationID, ms.MessageID).Doc(ms.ID).Create(ctx, ms)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return errors.Internal("Failed to record message status", err)
	}

	return nil
}

func (r *firestoreMessageStatusRepository) RecordReadWithDelivery(ctx context.Context, conversationID, messageID, userID string, at time.Time) error {
	statuses := r.statusesRef(conversationID, messageID)
	deliveredRef := statuses.Doc(statusDocID(messageID, userID, entity.StatusDelivered))
	readRef := statuses.Doc(statusDocID(messageID, userID, entity.StatusRead))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, deliveredErr := tx.Get(deliveredRef)
		_, readErr := tx.Get(readRef)

		if deliveredErr != nil {
			if status.Code(deliveredErr) != codes.NotFound {
				return deliveredErr
			}
			// A read implies delivery; both rows get the same timestamp so
			// the ledger stays monotonic.
			if err := tx.Create(deliveredRef, &entity.MessageStatus{
				ID:        deliveredRef.ID,
				MessageID: messageID,
				UserID:    userID,
				Status:    entity.StatusDelivered,
				CreatedAt: at,
			}); err != nil {
				return err
			}
		}

		if readErr != nil {
			if status.Code(readErr) != codes.NotFound {
				return readErr
			}
			if err := tx.Create(readRef, &entity.MessageStatus{
				ID:        readRef.ID,
				MessageID: messageID,
				UserID:    userID,
				Status:    entity.StatusRead,
				CreatedAt: at,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.Internal("Failed to record read status", err)
	}

	return nil
}

func (r *firestoreMessageStatusRepository) ListByMessage(ctx context.Context, conversationID, messageID string) ([]*entity.MessageStatus, error) {
	docs, err := r.statusesRef(conversationID, messageID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch message statuses", err)
	}

	var statuses []*entity.MessageStatus
	for _, doc := range docs {
		var ms entity.MessageStatus
		if err := doc.DataTo(&ms); err != nil {
			logger.Warn("Skipping malformed status document %s: %v", doc.Ref.ID, err)
			continue
		}
		statuses = append(statuses, &ms)
	}

	return statuses, nil
}
