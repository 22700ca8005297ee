package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufkecer/auth-backend/internal/domain"
)

func TestResetTokenRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepository(db)

	now := time.Now()
	tok := &domain.PasswordResetToken{UserID: "u1", TokenHash: "abc", CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute)}

	mock.ExpectExec(`INSERT INTO password_reset_tokens \(user_id, token_hash, created_at, expires_at\)`).
		WithArgs("u1", "abc", tok.CreatedAt, tok.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(7, 1))

	require.NoError(t, repo.Create(context.Background(), tok))
	assert.Equal(t, int64(7), tok.ID)
}

func TestResetTokenRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepository(db)

	mock.ExpectExec(`INSERT INTO password_reset_tokens`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_reset_tokens_user'"})

	err := repo.Create(context.Background(), &domain.PasswordResetToken{UserID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestResetTokenRepository_FindByUserID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "created_at", "expires_at"}).
		AddRow(int64(3), "u1", "abc", now, now.Add(time.Minute))
	mock.ExpectQuery(`SELECT .* FROM password_reset_tokens WHERE user_id = \?`).
		WithArgs("u1").
		WillReturnRows(rows)

	tok, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, int64(3), tok.ID)
	assert.Equal(t, "abc", tok.TokenHash)
}

func TestResetTokenRepository_FindValidByHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM password_reset_tokens WHERE token_hash = \? AND expires_at > \?`).
		WithArgs("abc", now).
		WillReturnError(sql.ErrNoRows)

	tok, err := repo.FindValidByHash(context.Background(), "abc", now)
	assert.NoError(t, err)
	assert.Nil(t, tok)
}

func TestResetTokenRepository_FindValidByHash_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResetTokenRepository(db)

	mock.ExpectQuery(`SELECT .* FROM password_reset_tokens`).
		WillReturnError(errors.New("connection reset"))

	tok, err := repo.FindValidByHash(context.Background(), "abc", time.Now())
	assert.Error(t, err)
	assert.Nil(t, tok)
}

func TestResetTokenRepository_DeleteByID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "deleted", affected: 1, want: true},
		{name: "already gone", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewResetTokenRepository(db)

			mock.ExpectExec(`DELETE FROM password_reset_tokens WHERE id = \?`).
				WithArgs(int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.DeleteByID(context.Background(), 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
