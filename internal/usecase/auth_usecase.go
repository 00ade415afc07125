package usecase

import (
	"context"
	"strings"
	"time"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

type AuthUseCase struct {
	userRepo repository.UserRepository
	tokens   TokenService
}

func NewAuthUseCase(userRepo repository.UserRepository, tokens TokenService) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	University string
	Phone      string
}

type AuthResult struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existingUser, err := uc.userRepo.GetByEmail(ctx, email)
	if err == nil && existingUser != nil {
		return nil, errors.BadRequest("Email already in use", nil)
	}

	displayName := strings.TrimSpace(input.FirstName + " " + input.LastName)
	uid, err := uc.tokens.CreateUser(ctx, email, input.Password, displayName)
	if err != nil {
		return nil, errors.Internal("Failed to create user in authentication provider", err)
	}

	now := time.Now()
	user := &entity.User{
		ID:         uid,
		Email:      email,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		University: input.University,
		Phone:      input.Phone,
		Verified:   false,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, errors.Internal("Failed to create user record", err)
	}

	// Verification links are handed off to the delivery side; generation
	// failure must not fail the registration.
	if link, err := uc.tokens.EmailVerificationLink(ctx, email); err != nil {
		logger.Warn("Failed to generate verification link for %s: %v", logger.MaskEmail(email), err)
	} else {
		logger.Info("Verification link issued for %s", logger.MaskEmail(email))
		_ = link
	}

	token, err := uc.tokens.SignInWithEmailPassword(email, input.Password)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}

	return &AuthResult{
		User:  user,
		Token: token,
	}, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	token, err := uc.tokens.SignInWithEmailPassword(email, password)
	if err != nil {
		logger.Warn("Login failed for %s: %v", logger.MaskEmail(email), err)
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	uid, err := uc.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	if !user.Enabled || user.Locked {
		return nil, errors.Forbidden("This account is not active", nil)
	}

	return &AuthResult{
		User:  user,
		Token: token,
	}, nil
}

// VerifyEmail marks the account as verified after the provider confirmed
// the address. The token lifecycle itself lives in the provider.
func (uc *AuthUseCase) VerifyEmail(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Verified {
		return user, nil
	}

	user.Verified = true
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	logger.Info("Email verified for %s", logger.MaskEmail(user.Email))
	return user, nil
}

func (uc *AuthUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

type UpdateProfileInput struct {
	FirstName  string
	LastName   string
	University string
	Phone      string
}

func (uc *AuthUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.University != "" {
		user.University = input.University
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
