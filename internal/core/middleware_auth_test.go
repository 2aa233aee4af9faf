package core

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(&config.Config{}, logger)
	require.NoError(t, err)
	return s
}

func newTestAuthenticator(t *testing.T, token string) *ServiceTokenAuthenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return NewServiceTokenAuthenticator(types.SecretString(hash))
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = newTestAuthenticator(t, "secret-token")

	handler := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/alerts", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "auth_token_missing")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = newTestAuthenticator(t, "secret-token")

	handler := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/alerts", nil)
	r.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "auth_token_invalid")
}

func TestAuthMiddleware_ValidTokenInjectsActor(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = newTestAuthenticator(t, "secret-token")

	var gotActor types.Actor
	handler := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := types.GetActor(r.Context())
		require.True(t, ok)
		gotActor = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/v1/alerts", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, types.ActorTypeService, gotActor.Type)
}

func TestAuthMiddleware_HealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	s.Authenticator = newTestAuthenticator(t, "secret-token")

	handler := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceTokenAuthenticator_CachesMatch(t *testing.T) {
	auth := newTestAuthenticator(t, "secret-token")

	// First call pays the bcrypt cost and caches the match.
	actor, err := auth.ResolveToken(t.Context(), "secret-token")
	require.NoError(t, err)
	require.NotNil(t, actor)

	// Second call takes the constant-time compare path.
	actor, err = auth.ResolveToken(t.Context(), "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "dashboard", actor.ID)

	// Wrong token still rejected after the cache is primed.
	_, err = auth.ResolveToken(t.Context(), "wrong")
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer abc"))
	assert.Equal(t, "", extractBearerToken("Basic abc"))
	assert.Equal(t, "", extractBearerToken(""))
}
