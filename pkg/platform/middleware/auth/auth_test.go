package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/pkg/requestcontext"
)

var signingKey = []byte("test-signing-key")

func signToken(t *testing.T, key []byte, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func resolve(t *testing.T, authorization string) (role, subject string) {
	t.Helper()
	handler := ResolveRole(signingKey, slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			role = requestcontext.Role(r.Context())
			subject = requestcontext.Subject(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return role, subject
}

func TestResolveRole(t *testing.T) {
	t.Run("valid token populates role and subject", func(t *testing.T) {
		token := signToken(t, signingKey, Claims{
			Role: "user",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		role, subject := resolve(t, "Bearer "+token)

		assert.Equal(t, "user", role)
		assert.Equal(t, "user-123", subject)
	})

	t.Run("missing header proceeds anonymously", func(t *testing.T) {
		role, subject := resolve(t, "")

		assert.Empty(t, role)
		assert.Empty(t, subject)
	})

	t.Run("wrong signature proceeds anonymously", func(t *testing.T) {
		token := signToken(t, []byte("some-other-key"), Claims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		})

		role, subject := resolve(t, "Bearer "+token)

		assert.Empty(t, role)
		assert.Empty(t, subject)
	})

	t.Run("expired token proceeds anonymously", func(t *testing.T) {
		token := signToken(t, signingKey, Claims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		role, subject := resolve(t, "Bearer "+token)

		assert.Empty(t, role)
		assert.Empty(t, subject)
	})

	t.Run("garbage token proceeds anonymously", func(t *testing.T) {
		role, subject := resolve(t, "Bearer not.a.token")

		assert.Empty(t, role)
		assert.Empty(t, subject)
	})
}
