package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yusufkecer/auth-backend/internal/domain"
	"github.com/yusufkecer/auth-backend/internal/repository"
)

const (
	minPasswordLength = 6
	// bcrypt only accepts passwords up to 72 bytes.
	maxPasswordBytes    = 72
	defaultEmailTimeout = 30 * time.Second
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, upd domain.UserUpdate) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type TokenSigner interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type AccountConfig struct {
	FrontendURL string
	MailFrom    string
	MailReplyTo string
	// SyncEmailDelivery sends reset emails inside the request and reports
	// delivery failures to the caller. When false, delivery happens in the
	// background and failures are only logged.
	SyncEmailDelivery bool
	EmailTimeout      time.Duration
}

type AccountService struct {
	users  UserStore
	resets *ResetTokenManager
	hasher PasswordHasher
	signer TokenSigner
	mailer EmailSender
	cfg    AccountConfig
	logger *slog.Logger
	now    func() time.Time

	wg sync.WaitGroup
}

func NewAccountService(
	users UserStore,
	resets *ResetTokenManager,
	hasher PasswordHasher,
	signer TokenSigner,
	mailer EmailSender,
	cfg AccountConfig,
	logger *slog.Logger,
) *AccountService {
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = defaultEmailTimeout
	}
	return &AccountService{
		users:  users,
		resets: resets,
		hasher: hasher,
		signer: signer,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Wait blocks until background email deliveries have finished.
func (s *AccountService) Wait() {
	s.wg.Wait()
}

var errEmailTaken = domain.NewError(http.StatusBadRequest, domain.ErrEmailTaken, "Email has already been registered.")

func (s *AccountService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	fields := map[string]string{}
	if req.Name == nil {
		fields["name"] = "Name is required"
	}
	validateEmail(fields, req.Email)
	validatePassword(fields, "password", req.Password)
	if len(fields) > 0 {
		return nil, domain.ValidationError(fields)
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to register user.", err)
	}
	if existing != nil {
		return nil, errEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to register user.", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         *req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost the race against a concurrent registration for the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to register user.", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return s.authResponse(user)
}

func (s *AccountService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	fields := map[string]string{}
	validateEmail(fields, req.Email)
	validatePassword(fields, "password", req.Password)
	if len(fields) > 0 {
		return nil, domain.ValidationError(fields)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to login.", err)
	}
	if user == nil {
		return nil, domain.NewError(http.StatusBadRequest, domain.ErrUserNotFound, "User not found, please signup")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "login failed: bad credentials", "user_id", user.ID)
		return nil, domain.NewError(http.StatusBadRequest, domain.ErrBadCredentials, "Incorrect password, please try again.")
	}

	return s.authResponse(user)
}

func (s *AccountService) authResponse(user *domain.User) (*domain.AuthResponse, error) {
	token, err := s.signer.Issue(user.ID)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to generate token.", err)
	}
	return &domain.AuthResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	}, nil
}

// LoginStatus reports whether token is a valid session token. It does not
// consult the store.
func (s *AccountService) LoginStatus(token string) bool {
	if token == "" {
		return false
	}
	_, err := s.signer.Verify(token)
	return err == nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to get user.", err)
	}
	if user == nil {
		return nil, domain.NewError(http.StatusBadRequest, domain.ErrUserNotFound, "User not found.")
	}
	p := user.Profile()
	return &p, nil
}

// UpdateProfile applies the non-empty fields of req. Empty fields keep their
// stored value.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if req.Email != "" {
		fields := map[string]string{}
		validateEmail(fields, req.Email)
		if len(fields) > 0 {
			return nil, domain.ValidationError(fields)
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to update user.", err)
	}
	if user == nil {
		return nil, domain.NewError(http.StatusNotFound, domain.ErrUserNotFound, "User not found.")
	}

	name, email := user.Name, user.Email
	if req.Name != "" {
		name = req.Name
	}
	if req.Email != "" {
		email = req.Email
	}

	if err := s.users.Update(ctx, userID, domain.UserUpdate{Name: &name, Email: &email}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, domain.Upstream(domain.ErrUpstream, "Failed to update user.", err)
	}

	return &domain.Profile{ID: user.ID, Name: name, Email: email}, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" {
		return domain.NewError(http.StatusBadRequest, domain.ErrMissingFields, "Please add old and new password")
	}
	fields := map[string]string{}
	validatePassword(fields, "newPassword", req.NewPassword)
	if len(fields) > 0 {
		return domain.ValidationError(fields)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to change password.", err)
	}
	if user == nil {
		return domain.NewError(http.StatusBadRequest, domain.ErrUserNotFound, "User not found, please signup.")
	}

	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return domain.NewError(http.StatusBadRequest, domain.ErrOldPasswordIncorrect, "Old password is incorrect.")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to change password.", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to change password.", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	fields := map[string]string{}
	validateEmail(fields, req.Email)
	if len(fields) > 0 {
		return domain.ValidationError(fields)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to process request.", err)
	}
	if user == nil {
		return domain.NewError(http.StatusNotFound, domain.ErrUserNotFound, "User does not exist")
	}

	secret, err := s.resets.Issue(ctx, user.ID)
	if errors.Is(err, domain.ErrRateLimited) {
		return domain.NewError(http.StatusBadRequest, domain.ErrRateLimited, "Token already created, please try again after 1 minute.")
	}
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to process request.", err)
	}

	body, err := buildResetEmail(resetEmailData{
		Name:     user.Name,
		URL:      s.resetURL(secret),
		ValidFor: humanizeDuration(s.resets.TTL()),
	})
	if err != nil {
		return domain.Upstream(domain.ErrEmailDelivery, "Failed to send reset email", err)
	}
	msg := Message{
		Subject:  resetEmailSubject,
		HTMLBody: body,
		To:       user.Email,
		From:     s.cfg.MailFrom,
		ReplyTo:  s.cfg.MailReplyTo,
	}

	if s.cfg.SyncEmailDelivery {
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
		defer cancel()
		if err := s.mailer.SendEmail(sendCtx, msg); err != nil {
			s.logger.ErrorContext(ctx, "reset email delivery failed", "user_id", user.ID, "error", err)
			return domain.Upstream(domain.ErrEmailDelivery, "Failed to send reset email", err)
		}
		s.logger.InfoContext(ctx, "reset email sent", "user_id", user.ID)
		return nil
	}

	s.sendInBackground(ctx, user.ID, msg)
	return nil
}

func (s *AccountService) sendInBackground(ctx context.Context, userID string, msg Message) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EmailTimeout)
		defer cancel()

		if err := s.mailer.SendEmail(sendCtx, msg); err != nil {
			s.logger.ErrorContext(sendCtx, "reset email delivery failed", "user_id", userID, "error", err)
			return
		}
		s.logger.InfoContext(sendCtx, "reset email sent", "user_id", userID)
	}()
}

func (s *AccountService) resetURL(secret string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/resetpassword/" + url.PathEscape(secret)
}

func (s *AccountService) ResetPassword(ctx context.Context, secret string, req domain.ResetPasswordRequest) error {
	fields := map[string]string{}
	validatePassword(fields, "password", req.Password)
	if len(fields) > 0 {
		return domain.ValidationError(fields)
	}

	userID, err := s.resets.Consume(ctx, secret)
	if errors.Is(err, domain.ErrInvalidOrExpired) {
		return domain.NewError(http.StatusNotFound, domain.ErrInvalidOrExpired, "Invalid or Expired Token")
	}
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to reset password", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to reset password", err)
	}
	if user == nil {
		return domain.NewError(http.StatusNotFound, domain.ErrUserNotFound, "User not found")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to reset password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return domain.Upstream(domain.ErrUpstream, "Failed to reset password", err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}
