package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yusufkecer/auth-backend/internal/domain"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "token"

type contextKey string

const userIDKey contextKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionToken returns the session token sent with the request, if any.
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// AuthMiddleware admits a request only if its session token verifies and
// still belongs to an existing user. The user ID is attached to the request
// context.
func AuthMiddleware(verifier TokenVerifier, users UserFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				unauthorized(w, "Not authorized, please login.")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "session token rejected")
				unauthorized(w, "Error verifying token")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				logger.ErrorContext(r.Context(), "session user lookup failed", "user_id", userID, "error", err)
				unauthorized(w, "Error verifying token")
				return
			}
			if user == nil {
				logger.WarnContext(r.Context(), "session user no longer exists", "user_id", userID)
				unauthorized(w, "Error verifying token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), user.ID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
