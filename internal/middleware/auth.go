package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"leetcode-tracker/internal/model"
	"leetcode-tracker/pkg/apierror"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(verifier tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token. Expired and
// invalid tokens get distinct error codes so clients can prompt a re-login.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeAPIError(w, model.ErrAuthenticationRequired)
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			writeAPIError(w, gateError(r.Context(), err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &identity)))
	})
}

// OptionalAuth attaches an identity when the request carries a valid token
// and otherwise lets the request through anonymously. Verification errors are
// dropped here and nowhere else.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var identity *model.Identity

		if token, ok := BearerToken(r); ok {
			if verified, err := m.verifier.Verify(r.Context(), token); err == nil {
				identity = &verified
			} else {
				slog.Debug("optional auth ignored token", "error_code", errorCode(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func gateError(ctx context.Context, err error) *apierror.APIError {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return model.ErrTokenExpired
	case errors.Is(err, model.ErrInvalidToken):
		return model.ErrInvalidToken
	case errors.Is(err, model.ErrTokenRevoked):
		return model.ErrTokenRevoked
	default:
		slog.Warn("token verification failed", "request_id", RequestIDFromContext(ctx), "error", err)
		return model.ErrAuthenticationFailed
	}
}

func errorCode(err error) string {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "UNKNOWN"
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the caller's identity, or nil and false for an
// anonymous request.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	return identity, ok && identity != nil
}
