package middlewareinternal

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/types"
	"github.com/Evgen-Mutagen/paymybuddy/internal/util/logger"
	"go.uber.org/zap"
)

// TokenCookie is the cookie the auth handlers set and this middleware reads.
const TokenCookie = "jwt"

var errNoToken = errors.New("no token in cookie or Authorization header")

// Authenticator resolves a bearer credential to the caller's email.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (string, error)
}

func JWTAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				logger.Log.Debug("Failed to extract token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			email, err := auth.Authenticate(r.Context(), tokenString)
			if err != nil {
				if core.IsRetryable(err) {
					logger.Log.Error("Failed to resolve token subject",
						zap.String("path", r.URL.Path),
						zap.Error(err))
					w.Header().Set("Retry-After", "1")
					http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
					return
				}
				logger.Log.Warn("Invalid token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), types.UserEmailKey, email)
			logger.Log.Debug("User authenticated",
				zap.String("email", email),
				zap.String("path", r.URL.Path))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errNoToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errNoToken
	}

	return parts[1], nil
}

func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(types.UserEmailKey).(string)
	return email, ok && email != ""
}

// WithEmail returns ctx carrying an authenticated email.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, types.UserEmailKey, email)
}
