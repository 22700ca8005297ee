package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yusufkecer/auth-backend/internal/config"
	"github.com/yusufkecer/auth-backend/internal/service"
)

func TestNewMailer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		provider string
		want     any
	}{
		{config.MailProviderPostmark, &service.PostmarkSender{}},
		{config.MailProviderResend, &service.ResendSender{}},
		{config.MailProviderLog, &service.LogSender{}},
		{"", &service.LogSender{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{MailProvider: tt.provider}
			assert.IsType(t, tt.want, newMailer(cfg, logger))
		})
	}
}

func TestNewLogger(t *testing.T) {
	dev := newLogger(&config.Config{AppEnv: "development", LogLevel: "debug"})
	assert.IsType(t, &slog.TextHandler{}, dev.Handler())

	prod := newLogger(&config.Config{AppEnv: "production", LogLevel: "info"})
	assert.IsType(t, &slog.JSONHandler{}, prod.Handler())
}
