package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/yusufkecer/auth-backend/internal/domain"
	"github.com/yusufkecer/auth-backend/internal/repository"
)

const (
	// ResetTokenTTL is how long a reset secret stays consumable.
	ResetTokenTTL = 30 * time.Minute
	// ResetReissueInterval is the minimum age of a token before a new one
	// may replace it.
	ResetReissueInterval = 60 * time.Second

	resetSecretBytes = 32
)

type ResetTokenStore interface {
	Create(ctx context.Context, t *domain.PasswordResetToken) error
	FindByUserID(ctx context.Context, userID string) (*domain.PasswordResetToken, error)
	FindValidByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

type ResetTokenManager struct {
	store ResetTokenStore
	ttl   time.Duration
	now   func() time.Time
	rand  func([]byte) (int, error)
}

func NewResetTokenManager(store ResetTokenStore, ttl time.Duration) *ResetTokenManager {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}
	return &ResetTokenManager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		rand:  rand.Read,
	}
}

func (m *ResetTokenManager) TTL() time.Duration { return m.ttl }

// Issue creates a new reset secret for the user and returns it. Only the
// secret's hash is persisted. A token younger than ResetReissueInterval
// blocks reissue with domain.ErrRateLimited. A concurrent Issue for the same
// user that loses either the delete of the old row or the insert of the new
// one also gets domain.ErrRateLimited.
func (m *ResetTokenManager) Issue(ctx context.Context, userID string) (string, error) {
	existing, err := m.store.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	now := m.now()
	if existing != nil {
		if now.Sub(existing.CreatedAt) <= ResetReissueInterval {
			return "", domain.ErrRateLimited
		}
		deleted, err := m.store.DeleteByID(ctx, existing.ID)
		if err != nil {
			return "", err
		}
		if !deleted {
			return "", domain.ErrRateLimited
		}
	}

	buf := make([]byte, resetSecretBytes)
	if _, err := m.rand(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset secret: %w", err)
	}
	secret := hex.EncodeToString(buf) + userID

	err = m.store.Create(ctx, &domain.PasswordResetToken{
		UserID:    userID,
		TokenHash: HashResetSecret(secret),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return "", domain.ErrRateLimited
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

// Consume resolves a raw secret to its user ID and deletes the token so it
// cannot be used again. Unknown, expired and already consumed secrets all
// return domain.ErrInvalidOrExpired.
func (m *ResetTokenManager) Consume(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", domain.ErrInvalidOrExpired
	}

	tok, err := m.store.FindValidByHash(ctx, HashResetSecret(secret), m.now())
	if err != nil {
		return "", err
	}
	if tok == nil {
		return "", domain.ErrInvalidOrExpired
	}

	deleted, err := m.store.DeleteByID(ctx, tok.ID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", domain.ErrInvalidOrExpired
	}
	return tok.UserID, nil
}

func HashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
