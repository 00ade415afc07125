package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

// GetOrCreate runs in a transaction keyed on the canonical pair key, so two
// racing callers (including A,B vs B,A orderings) always converge on the
// same document.
func (r *firestoreConversationRepository) GetOrCreate(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, bool, error) {
	docRef := r.client.Collection("conversations").Doc(conversation.PairKey)

	var result entity.Conversation
	var created bool

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err == nil {
			created = false
			return doc.DataTo(&result)
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		conversation.ID = conversation.PairKey
		result = *conversation
		created = true
		return tx.Create(docRef, conversation)
	})
	if err != nil {
		return nil, false, errors.Internal("Failed to get or create conversation", err)
	}

	return &result, created, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	// Two queries, one per participant slot; merged and resorted below.
	var allDocs []*firestore.DocumentSnapshot
	for _, field := range []string{"participantA", "participantB"} {
		docs, err := r.client.Collection("conversations").
			Where(field, "==", userID).
			Documents(ctx).GetAll()
		if err != nil {
			logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
			return nil, 0, errors.Internal("Failed to fetch conversations", err)
		}
		allDocs = append(allDocs, docs...)
	}

	var conversations []*entity.Conversation
	for _, doc := range allDocs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation document %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})

	total := int64(len(conversations))

	start := offset
	if start > len(conversations) {
		start = len(conversations)
	}
	end := len(conversations)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return conversations[start:end], total, nil
}

func (r *firestoreConversationRepository) Update(ctx context.Context, conversation *entity.Conversation) error {
	_, err := r.client.Collection("conversations").Doc(conversation.ID).Set(ctx, conversation)
	if err != nil {
		return errors.Internal("Failed to update conversation", err)
	}

	return nil
}
