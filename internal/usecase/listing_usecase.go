package usecase

import (
	"context"
	"io"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	cache       ListingCache
	photos      PhotoStorage
}

func NewListingUseCase(
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	cache ListingCache,
	photos PhotoStorage,
) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
		userRepo:    userRepo,
		cache:       cache,
		photos:      photos,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
	City        string
	Address     string
	Rooms       int
}

type UpdateListingInput struct {
	Title       string
	Description string
	Price       float64
	City        string
	Address     string
	Rooms       int
}

func listingCacheKey(id string) string {
	return "listing:" + id
}

func (uc *ListingUseCase) CreateListing(ctx context.Context, ownerID string, input CreateListingInput) (*entity.Listing, error) {
	owner, err := uc.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, errors.NotFound("Owner", err)
	}
	if !owner.Verified {
		return nil, errors.Forbidden("Verify your email before publishing a listing", nil)
	}

	listing := &entity.Listing{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		City:        input.City,
		Address:     input.Address,
		Rooms:       input.Rooms,
		Status:      entity.ListingStatusActive,
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	return listing, nil
}

// GetListing is read-through cached: cache hit skips the store, miss fills
// the cache with the configured TTL.
func (uc *ListingUseCase) GetListing(ctx context.Context, id string) (*entity.Listing, error) {
	var cached entity.Listing
	if uc.cache.Get(ctx, listingCacheKey(id), &cached) {
		return &cached, nil
	}

	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.cache.Set(ctx, listingCacheKey(id), listing)
	return listing, nil
}

func (uc *ListingUseCase) ListListings(ctx context.Context, filter repository.ListingFilter, limit, offset int) ([]*entity.Listing, int64, error) {
	if filter.Status == "" {
		filter.Status = entity.ListingStatusActive
	}
	return uc.listingRepo.List(ctx, filter, limit, offset)
}

func (uc *ListingUseCase) UpdateListing(ctx context.Context, userID, listingID string, input UpdateListingInput) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, errors.Forbidden("Only the owner may update a listing", nil)
	}

	if input.Title != "" {
		listing.Title = input.Title
	}
	if input.Description != "" {
		listing.Description = input.Description
	}
	if input.Price > 0 {
		listing.Price = input.Price
	}
	if input.City != "" {
		listing.City = input.City
	}
	if input.Address != "" {
		listing.Address = input.Address
	}
	if input.Rooms > 0 {
		listing.Rooms = input.Rooms
	}

	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	uc.cache.Delete(ctx, listingCacheKey(listingID))
	return listing, nil
}

func (uc *ListingUseCase) ArchiveListing(ctx context.Context, userID, listingID string) error {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != userID {
		return errors.Forbidden("Only the owner may archive a listing", nil)
	}
	if listing.Status == entity.ListingStatusArchived {
		return nil
	}

	listing.Status = entity.ListingStatusArchived
	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return err
	}

	uc.cache.Delete(ctx, listingCacheKey(listingID))
	return nil
}

func (uc *ListingUseCase) UploadPhoto(ctx context.Context, userID, listingID string, file io.Reader, contentType string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, errors.Forbidden("Only the owner may add photos to a listing", nil)
	}

	url, err := uc.photos.UploadListingPhoto(ctx, file, contentType, listingID)
	if err != nil {
		return nil, errors.Internal("Failed to upload photo", err)
	}

	listing.PhotoURLs = append(listing.PhotoURLs, url)
	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		// The photo is orphaned; best effort cleanup.
		if delErr := uc.photos.DeletePhoto(ctx, url); delErr != nil {
			logger.Warn("Failed to clean up orphaned photo %s: %v", url, delErr)
		}
		return nil, err
	}

	uc.cache.Delete(ctx, listingCacheKey(listingID))
	return listing, nil
}
