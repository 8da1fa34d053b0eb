package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
	IsAdmin(key string) bool
}

type userIDKey struct{}

// WithUserID stores the authenticated caller on ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}

// RequireToken lets through requests carrying a valid user bearer token and
// records the caller's id on the request context.
func RequireToken(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.RequireToken"

	log = log.With(slog.String("op", op))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				response.Error(w, apperrors.ErrMissingToken)
				return
			}

			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("token rejected", sl.Err(err))
				// Malformed and unknown tokens look the same to the caller.
				response.Error(w, apperrors.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireAdmin lets through requests whose bearer credential is the admin key.
func RequireAdmin(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.RequireAdmin"

	log = log.With(slog.String("op", op))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := bearer(r)
			if !ok {
				response.Error(w, apperrors.ErrMissingToken)
				return
			}
			if !auth.IsAdmin(key) {
				log.Warn("admin key rejected", slog.String("path", r.URL.Path))
				response.Error(w, apperrors.ErrNotAdmin)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
