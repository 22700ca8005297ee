package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mrz1836/postmark"
)

var ErrSendEmail = errors.New("failed to send email")

type Message struct {
	Subject  string
	HTMLBody string
	To       string
	From     string
	ReplyTo  string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) error
}

type PostmarkSender struct {
	client *postmark.Client
}

func NewPostmarkSender(serverToken, accountToken string) *PostmarkSender {
	return &PostmarkSender{client: postmark.NewClient(serverToken, accountToken)}
}

func (s *PostmarkSender) SendEmail(ctx context.Context, msg Message) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     msg.From,
		To:       msg.To,
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		Tag:      "password-reset",
	})
	if err != nil {
		return errors.Join(ErrSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendEmail, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

const resendEndpoint = "https://api.resend.com/emails"

type ResendSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{
		apiKey:   apiKey,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ResendSender) SendEmail(ctx context.Context, msg Message) error {
	payload := map[string]interface{}{
		"from":    msg.From,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTMLBody,
	}
	if msg.ReplyTo != "" {
		payload["reply_to"] = msg.ReplyTo
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Join(ErrSendEmail, fmt.Errorf("resend http error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return errors.Join(ErrSendEmail, fmt.Errorf("resend api error %d: %s", resp.StatusCode, string(respBody)))
	}

	return nil
}

// LogSender writes messages to the logger instead of delivering them.
// The body is only logged at debug level since it carries the reset link.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not delivered (log sender)", "to", msg.To, "subject", msg.Subject)
	s.logger.DebugContext(ctx, "email body", "to", msg.To, "html", msg.HTMLBody)
	return nil
}
