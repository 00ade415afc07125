package repository

import (
	"context"

	"uninest/internal/domain/entity"
)

type FavoriteRepository interface {
	Add(ctx context.Context, userID, listingID string) (*entity.Favorite, error)
	Remove(ctx context.Context, userID, listingID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Favorite, int64, error)
}
