package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/yusufkecer/auth-backend/internal/auth"
	"github.com/yusufkecer/auth-backend/internal/config"
	"github.com/yusufkecer/auth-backend/internal/db"
	"github.com/yusufkecer/auth-backend/internal/handler"
	"github.com/yusufkecer/auth-backend/internal/middleware"
	"github.com/yusufkecer/auth-backend/internal/repository"
	"github.com/yusufkecer/auth-backend/internal/service"
)

const maxBodyBytes = 1 << 20

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DSN(), logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, database, logger); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(database)
	resetRepo := repository.NewResetTokenRepository(database)

	signer := auth.NewTokenSigner(cfg.JWTSecret, auth.WithTTL(cfg.SessionTTL))
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)
	resets := service.NewResetTokenManager(resetRepo, cfg.ResetTokenTTL)

	svc := service.NewAccountService(userRepo, resets, hasher, signer, newMailer(cfg, logger), service.AccountConfig{
		FrontendURL:       cfg.FrontendURL,
		MailFrom:          cfg.MailFrom,
		MailReplyTo:       cfg.MailReplyTo,
		SyncEmailDelivery: cfg.MailSyncDelivery,
	}, logger)

	userHandler := handler.NewUserHandler(svc, cfg.SessionTTL, logger, cfg.IsDevelopment())

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORSMiddleware(cfg.Origins()))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet, http.MethodOptions)
	userHandler.Routes(api.PathPrefix("/users").Subrouter(), middleware.AuthMiddleware(signer, userRepo, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight reset emails finish before the process exits.
	svc.Wait()
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newMailer(cfg *config.Config, logger *slog.Logger) service.EmailSender {
	switch cfg.MailProvider {
	case config.MailProviderPostmark:
		return service.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	case config.MailProviderResend:
		return service.NewResendSender(cfg.ResendAPIKey)
	default:
		return service.NewLogSender(logger)
	}
}
