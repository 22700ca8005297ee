package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/yusufkecer/auth-backend/internal/domain"
)

type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create inserts a token row. A second row for the same user fails with
// ErrDuplicate because user_id is unique.
func (r *ResetTokenRepository) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token_hash, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return oops.Code("RESET_CREATE_FAILED").With("user_id", t.UserID).Wrap(ErrDuplicate)
		}
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password_reset_token").
			With("user_id", t.UserID).
			Wrap(err)
	}
	if id, err := result.LastInsertId(); err == nil {
		t.ID = id
	}
	return nil
}

func (r *ResetTokenRepository) FindByUserID(ctx context.Context, userID string) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx,
		`SELECT id, user_id, token_hash, created_at, expires_at
		 FROM password_reset_tokens WHERE user_id = ?`,
		userID,
	)
}

// FindValidByHash returns the token with the given hash that expires after now.
func (r *ResetTokenRepository) FindValidByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error) {
	return r.findOne(ctx,
		`SELECT id, user_id, token_hash, created_at, expires_at
		 FROM password_reset_tokens WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, now,
	)
}

func (r *ResetTokenRepository) findOne(ctx context.Context, query string, args ...any) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").Wrap(err)
	}
	return &t, nil
}

// DeleteByID removes a single token and reports whether this call removed it.
func (r *ResetTokenRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE id = ?`,
		id,
	)
	if err != nil {
		return false, oops.Code("RESET_DELETE_FAILED").With("id", id).Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, oops.Code("RESET_DELETE_FAILED").With("id", id).Wrap(err)
	}
	return n > 0, nil
}
