package core

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"mediwatch/internal/types"
)

// authPublicPaths lists URL paths that are exempt from authentication.
// Requests to these paths bypass the AuthMiddleware entirely.
var authPublicPaths = map[string]bool{
	"/health": true,
}

// Authenticator resolves a bearer token to an Actor. Injected on Server for
// testability; the production implementation is ServiceTokenAuthenticator.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// AuthMiddleware wraps handlers requiring authentication.
//
//  1. Extracts the Bearer token from the Authorization header.
//  2. Calls Authenticator.ResolveToken to resolve the token to an Actor.
//  3. Injects the Actor into the request context via types.WithActor.
//  4. Returns 401 Unauthorized on failure with distinct error codes:
//     - auth_token_missing: No Authorization header or empty Bearer token.
//     - auth_token_invalid: Token does not match the configured credential.
//
// If the Authenticator field on Server is nil (e.g., during tests that don't
// inject one), the middleware passes through without authentication.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Skip authentication for public paths.
		if authPublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authorization header is required")
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Bearer token is required")
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err != nil || actor == nil {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeAuthError writes a 401 response with the given error code and message.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	Error(w, r, types.NewAppError(code, message, nil))
}

// extractBearerToken parses the Authorization header value and returns
// the token string. It expects the format "Bearer <token>" (case-insensitive
// scheme per RFC 7235). Returns empty string if the format is invalid.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

// ServiceTokenAuthenticator verifies bearer tokens against a single bcrypt
// hash configured at deploy time. The dashboard and room kiosks share this
// credential; there is no per-user identity in the service.
//
// A successful bcrypt comparison is cached so that subsequent requests pay a
// constant-time byte comparison instead of the full bcrypt cost on every call.
type ServiceTokenAuthenticator struct {
	tokenHash []byte

	mu      sync.RWMutex
	matched string
}

// Compile-time assertion that ServiceTokenAuthenticator implements Authenticator.
var _ Authenticator = (*ServiceTokenAuthenticator)(nil)

// NewServiceTokenAuthenticator creates an authenticator from the bcrypt hash
// of the service token.
func NewServiceTokenAuthenticator(tokenHash types.SecretString) *ServiceTokenAuthenticator {
	return &ServiceTokenAuthenticator{
		tokenHash: []byte(tokenHash.Unmask()),
	}
}

// ResolveToken verifies the presented token against the configured hash and
// returns the service Actor on success.
func (a *ServiceTokenAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	a.mu.RLock()
	matched := a.matched
	a.mu.RUnlock()

	if matched != "" {
		if subtle.ConstantTimeCompare([]byte(matched), []byte(token)) == 1 {
			return serviceActor(), nil
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid service token", nil)
	}

	if err := bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)); err != nil {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid service token", err)
	}

	a.mu.Lock()
	a.matched = token
	a.mu.Unlock()

	return serviceActor(), nil
}

func serviceActor() *types.Actor {
	return &types.Actor{
		ID:     "dashboard",
		Type:   types.ActorTypeService,
		Source: "service-token",
	}
}
