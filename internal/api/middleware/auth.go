package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/auth"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// JWTAuth authenticates requests with an HS256 bearer token and stores the
// caller's user id on the request context.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := auth.ParseToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.Scope().SetUser(sentry.User{ID: claims.UserID})
			}
			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// WithUserID returns a context carrying userID, as JWTAuth would.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
