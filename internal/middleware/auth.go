package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-shop-api/internal/model"
	"go-shop-api/pkg/apierror"
)

// SessionCookieName is read when a request carries no bearer header.
const SessionCookieName = "session_token"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.AuthUser, error)
}

type contextKey string

const (
	authUserContextKey  contextKey = "auth_user"
	authTokenContextKey contextKey = "auth_token"
)

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, "authentication required")
			return
		}

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			slog.Warn("request rejected by authentication",
				"path", r.URL.Path,
				"reason", rejectionReason(err),
				"error", err)
			writeJSONError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authUserContextKey, user)
		ctx = context.WithValue(ctx, authTokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractToken prefers the Authorization header and falls back to the
// session cookie.
func ExtractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}

	return ""
}

func UserFromContext(ctx context.Context) (model.AuthUser, bool) {
	user, ok := ctx.Value(authUserContextKey).(model.AuthUser)
	return user, ok
}

func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(authTokenContextKey).(string)
	return token, ok
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrNoCredential):
		return "no_credential"
	case errors.Is(err, model.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, model.ErrTokenInvalid):
		return "invalid_token"
	case errors.Is(err, model.ErrUnknownSubject):
		return "unknown_subject"
	default:
		return "lookup_failed"
	}
}
