package websocket

import (
	"context"
	"strings"
	"time"

	"uninest/internal/domain/repository"
	"uninest/pkg/logger"
)

// TokenVerifier validates a bearer credential and returns the subject UID.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Gate authenticates realtime connection attempts. It never rejects the
// connection itself: every failure path yields an anonymous session, and
// anonymous sessions are refused later at the subscription layer.
type Gate struct {
	tokens TokenVerifier
	users  repository.UserRepository
}

func NewGate(tokens TokenVerifier, users repository.UserRepository) *Gate {
	return &Gate{
		tokens: tokens,
		users:  users,
	}
}

// Authenticate resolves the identity for a connection from its
// Authorization header value. The returned UID is empty for anonymous
// sessions. No failure here may abort the handshake, including panics from
// the verifier or the user lookup.
func (g *Gate) Authenticate(ctx context.Context, authHeader string) (uid string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Connection gate: recovered from panic during authentication: %v", r)
			uid = ""
		}
	}()

	if authHeader == "" {
		logger.Debug("Connection gate: no credential presented, anonymous session")
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		logger.Debug("Connection gate: malformed Authorization header, anonymous session")
		return ""
	}

	subject, err := g.tokens.VerifyToken(ctx, parts[1])
	if err != nil {
		logger.Warn("Connection gate: token rejected, anonymous session: %v", err)
		return ""
	}

	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		logger.Warn("Connection gate: no user for subject %s, anonymous session", subject)
		return ""
	}

	if !user.CanConnect(time.Now()) {
		logger.Warn("Connection gate: account %s not eligible for realtime session", logger.MaskEmail(user.Email))
		return ""
	}

	logger.Info("Connection gate: identity bound for %s", logger.MaskEmail(user.Email))
	return user.ID
}
