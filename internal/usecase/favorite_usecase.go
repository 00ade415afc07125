package usecase

import (
	"context"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type FavoriteUseCase struct {
	favoriteRepo repository.FavoriteRepository
	listingRepo  repository.ListingRepository
}

func NewFavoriteUseCase(
	favoriteRepo repository.FavoriteRepository,
	listingRepo repository.ListingRepository,
) *FavoriteUseCase {
	return &FavoriteUseCase{
		favoriteRepo: favoriteRepo,
		listingRepo:  listingRepo,
	}
}

func (uc *FavoriteUseCase) AddFavorite(ctx context.Context, userID, listingID string) (*entity.Favorite, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, errors.NotFound("Listing", err)
	}

	if listing.OwnerID == userID {
		return nil, errors.BadRequest("You cannot favorite your own listing", nil)
	}

	return uc.favoriteRepo.Add(ctx, userID, listingID)
}

func (uc *FavoriteUseCase) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	return uc.favoriteRepo.Remove(ctx, userID, listingID)
}

func (uc *FavoriteUseCase) ListFavorites(ctx context.Context, userID string, limit, offset int) ([]*entity.FavoriteWithListing, int64, error) {
	favorites, total, err := uc.favoriteRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*entity.FavoriteWithListing, 0, len(favorites))
	for _, favorite := range favorites {
		item := &entity.FavoriteWithListing{
			ID:        favorite.ID,
			UserID:    favorite.UserID,
			ListingID: favorite.ListingID,
			CreatedAt: favorite.CreatedAt,
		}
		listing, err := uc.listingRepo.GetByID(ctx, favorite.ListingID)
		if err != nil {
			logger.Warn("Favorite %s points at missing listing %s", favorite.ID, favorite.ListingID)
		} else {
			item.Listing = listing
		}
		result = append(result, item)
	}

	return result, total, nil
}
