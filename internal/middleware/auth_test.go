package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufkecer/auth-backend/internal/auth"
	"github.com/yusufkecer/auth-backend/internal/domain"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserFinder struct {
	users map[string]*domain.User
	err   error
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
}

func TestAuthMiddleware_Success(t *testing.T) {
	signer := auth.NewTokenSigner("test-secret")
	users := &mockUserFinder{users: map[string]*domain.User{"user-1": {ID: "user-1"}}}

	token, err := signer.Issue("user-1")
	require.NoError(t, err)

	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok, "user id should be in context")
		gotID = id
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/getuser", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()

	AuthMiddleware(signer, users, setupTestLogger())(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", gotID)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	signer := auth.NewTokenSigner("test-secret")
	valid, err := signer.Issue("user-1")
	require.NoError(t, err)
	orphan, err := signer.Issue("deleted-user")
	require.NoError(t, err)
	forged, err := auth.NewTokenSigner("other-secret").Issue("user-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		cookie  string
		users   *mockUserFinder
		message string
	}{
		{name: "no token", cookie: "", users: &mockUserFinder{}, message: "Not authorized, please login."},
		{name: "garbage token", cookie: "abc", users: &mockUserFinder{}, message: "Error verifying token"},
		{name: "forged token", cookie: forged, users: &mockUserFinder{users: map[string]*domain.User{"user-1": {ID: "user-1"}}}, message: "Error verifying token"},
		{name: "user missing", cookie: orphan, users: &mockUserFinder{users: map[string]*domain.User{}}, message: "Error verifying token"},
		{name: "store error", cookie: valid, users: &mockUserFinder{err: errors.New("db down")}, message: "Error verifying token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})

			req := httptest.NewRequest(http.MethodGet, "/api/users/getuser", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			AuthMiddleware(signer, tt.users, setupTestLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"`+tt.message+`"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_IgnoresAuthorizationHeader(t *testing.T) {
	signer := auth.NewTokenSigner("test-secret")
	token, err := signer.Issue("user-1")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/getuser", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	users := &mockUserFinder{users: map[string]*domain.User{"user-1": {ID: "user-1"}}}
	AuthMiddleware(signer, users, setupTestLogger())(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}
