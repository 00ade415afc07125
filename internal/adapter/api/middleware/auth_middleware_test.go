package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type staticVerifier struct {
	uid string
	err error
}

func (v *staticVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	return v.uid, v.err
}

func invoke(t *testing.T, m *AuthMiddleware, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	boundUID := ""
	next := func(c echo.Context) error {
		boundUID = c.Get("uid").(string)
		return c.NoContent(http.StatusOK)
	}

	assert.NoError(t, m.Authenticate(next)(c))
	return rec, boundUID
}

func TestAuthenticateBindsUID(t *testing.T) {
	m := NewAuthMiddleware(&staticVerifier{uid: "alice"})

	rec, uid := invoke(t, m, "Bearer good-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", uid)
}

func TestAuthenticateRejectsMissingOrMalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(&staticVerifier{uid: "alice"})

	rec, _ := invoke(t, m, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = invoke(t, m, "Basic dXNlcjpwdw==")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	m := NewAuthMiddleware(&staticVerifier{err: fmt.Errorf("token expired")})

	rec, _ := invoke(t, m, "Bearer stale-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
