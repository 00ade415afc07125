package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type firestoreFavoriteRepository struct {
	client *firestore.Client
}

func NewFirestoreFavoriteRepository(client *firestore.Client) repository.FavoriteRepository {
	return &firestoreFavoriteRepository{
		client: client,
	}
}

// The document ID is {userID}_{listingID}, so adding the same favorite twice
// converges on one document.
func favoriteDocID(userID, listingID string) string {
	return fmt.Sprintf("%s_%s", userID, listingID)
}

func (r *firestoreFavoriteRepository) Add(ctx context.Context, userID, listingID string) (*entity.Favorite, error) {
	favorite := &entity.Favorite{
		ID:        favoriteDocID(userID, listingID),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now(),
	}

	_, err := r.client.Collection("favorites").Doc(favorite.ID).Create(ctx, favorite)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return favorite, nil
		}
		return nil, errors.Internal("Failed to add favorite", err)
	}

	return favorite, nil
}

func (r *firestoreFavoriteRepository) Remove(ctx context.Context, userID, listingID string) error {
	_, err := r.client.Collection("favorites").Doc(favoriteDocID(userID, listingID)).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to remove favorite", err)
	}

	return nil
}

func (r *firestoreFavoriteRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Favorite, int64, error) {
	query := r.client.Collection("favorites").
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching favorites for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch favorites", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var favorites []*entity.Favorite
	for i := start; i < end; i++ {
		var favorite entity.Favorite
		if err := allDocs[i].DataTo(&favorite); err != nil {
			logger.Warn("Skipping malformed favorite document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		favorites = append(favorites, &favorite)
	}

	return favorites, total, nil
}
