package repository

import (
	"context"

	"uninest/internal/domain/entity"
)

type ConversationRepository interface {
	// GetOrCreate resolves a conversation by its canonical pair key, creating
	// it when absent. Concurrent calls for the same key converge on one
	// conversation; created reports whether this call created it.
	GetOrCreate(ctx context.Context, conversation *entity.Conversation) (result *entity.Conversation, created bool, err error)

	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	Update(ctx context.Context, conversation *entity.Conversation) error
}
