package domain

import "time"

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// PasswordResetToken is the stored half of a reset secret. Only the sha256
// hash of the secret is kept; the raw value leaves the process in the email.
type PasswordResetToken struct {
	ID        int64
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
