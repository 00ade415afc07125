package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"uninest/internal/domain/entity"
	"uninest/pkg/errors"
)

// fakeTokenService is an in-memory identity provider: uid = "uid:" + email,
// token = "token:" + uid.
type fakeTokenService struct {
	passwords map[string]string
	failLinks bool
	links     int
}

func newFakeTokenService() *fakeTokenService {
	return &fakeTokenService{passwords: map[string]string{}}
}

func (s *fakeTokenService) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	s.passwords[email] = password
	return "uid:" + email, nil
}

func (s *fakeTokenService) VerifyToken(ctx context.Context, token string) (string, error) {
	var uid string
	if _, err := fmt.Sscanf(token, "token:%s", &uid); err != nil {
		return "", fmt.Errorf("malformed token")
	}
	return uid, nil
}

func (s *fakeTokenService) SignInWithEmailPassword(email, password string) (string, error) {
	stored, ok := s.passwords[email]
	if !ok || stored != password {
		return "", fmt.Errorf("invalid credentials")
	}
	return "token:uid:" + email, nil
}

func (s *fakeTokenService) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	if s.failLinks {
		return "", fmt.Errorf("link service unavailable")
	}
	s.links++
	return "https://uninest.example/verify?email=" + email, nil
}

func TestRegisterCreatesUnverifiedEnabledUser(t *testing.T) {
	users := newMemoryUserRepo()
	tokens := newFakeTokenService()
	uc := NewAuthUseCase(users, tokens)

	result, err := uc.Register(context.Background(), RegisterInput{
		Email:     "  Dana@Stanford.EDU ",
		Password:  "hunter2hunter2",
		FirstName: "Dana",
		LastName:  "Kim",
	})
	assert.NoError(t, err)
	assert.Equal(t, "dana@stanford.edu", result.User.Email)
	assert.False(t, result.User.Verified)
	assert.True(t, result.User.Enabled)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, 1, tokens.links)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newMemoryUserRepo(&entity.User{ID: "u1", Email: "dana@stanford.edu", Enabled: true})
	uc := NewAuthUseCase(users, newFakeTokenService())

	_, err := uc.Register(context.Background(), RegisterInput{Email: "dana@stanford.edu", Password: "pw"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestRegisterSurvivesVerificationLinkFailure(t *testing.T) {
	tokens := newFakeTokenService()
	tokens.failLinks = true
	uc := NewAuthUseCase(newMemoryUserRepo(), tokens)

	result, err := uc.Register(context.Background(), RegisterInput{Email: "dana@stanford.edu", Password: "pw"})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLoginChecksCredentialsAndAccountState(t *testing.T) {
	tokens := newFakeTokenService()
	tokens.passwords["dana@stanford.edu"] = "pw"
	users := newMemoryUserRepo(
		&entity.User{ID: "uid:dana@stanford.edu", Email: "dana@stanford.edu", Enabled: true},
	)
	uc := NewAuthUseCase(users, tokens)
	ctx := context.Background()

	result, err := uc.Login(ctx, "Dana@Stanford.edu", "pw")
	assert.NoError(t, err)
	assert.Equal(t, "uid:dana@stanford.edu", result.User.ID)

	_, err = uc.Login(ctx, "dana@stanford.edu", "wrong")
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestLoginRejectsDisabledAndLockedAccounts(t *testing.T) {
	tokens := newFakeTokenService()
	tokens.passwords["dana@stanford.edu"] = "pw"
	user := &entity.User{ID: "uid:dana@stanford.edu", Email: "dana@stanford.edu", Enabled: false}
	users := newMemoryUserRepo(user)
	uc := NewAuthUseCase(users, tokens)
	ctx := context.Background()

	_, err := uc.Login(ctx, "dana@stanford.edu", "pw")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	user.Enabled = true
	user.Locked = true
	_, err = uc.Login(ctx, "dana@stanford.edu", "pw")
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestVerifyEmailIsIdempotent(t *testing.T) {
	users := newMemoryUserRepo(&entity.User{ID: "u1", Email: "dana@stanford.edu", Enabled: true})
	uc := NewAuthUseCase(users, newFakeTokenService())
	ctx := context.Background()

	verified, err := uc.VerifyEmail(ctx, "u1")
	assert.NoError(t, err)
	assert.True(t, verified.Verified)

	again, err := uc.VerifyEmail(ctx, "u1")
	assert.NoError(t, err)
	assert.True(t, again.Verified)
}

func TestUpdateProfileMergesNonEmptyFields(t *testing.T) {
	users := newMemoryUserRepo(&entity.User{ID: "u1", Email: "dana@stanford.edu", FirstName: "Dana", LastName: "Kim", Enabled: true})
	uc := NewAuthUseCase(users, newFakeTokenService())

	updated, err := uc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{University: "Stanford", Phone: "555-0100"})
	assert.NoError(t, err)
	assert.Equal(t, "Dana", updated.FirstName)
	assert.Equal(t, "Stanford", updated.University)
	assert.Equal(t, "555-0100", updated.Phone)
}
