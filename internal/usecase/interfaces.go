package usecase

import (
	"context"
	"io"
)

// TokenService is the identity provider boundary: account creation,
// credential verification, sign-in and verification links. This layer never
// issues or parses raw tokens itself.
type TokenService interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	SignInWithEmailPassword(email, password string) (string, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
}

// ListingCache is the TTL cache in front of listing reads. All methods are
// best-effort; a miss or failure falls through to the repository.
type ListingCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Delete(ctx context.Context, key string)
}

// PhotoStorage stores listing photos.
type PhotoStorage interface {
	UploadListingPhoto(ctx context.Context, file io.Reader, contentType, listingID string) (string, error)
	DeletePhoto(ctx context.Context, fileURL string) error
}
