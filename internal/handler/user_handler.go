package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yusufkecer/auth-backend/internal/domain"
	"github.com/yusufkecer/auth-backend/internal/middleware"
)

type AccountService interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	LoginStatus(token string) bool
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, secret string, req domain.ResetPasswordRequest) error
}

type UserHandler struct {
	svc        AccountService
	sessionTTL time.Duration
	errs       errorWriter
}

func NewUserHandler(svc AccountService, sessionTTL time.Duration, logger *slog.Logger, debug bool) *UserHandler {
	return &UserHandler{
		svc:        svc,
		sessionTTL: sessionTTL,
		errs:       errorWriter{logger: logger, debug: debug},
	}
}

// Routes mounts the user endpoints on r. protect gates the endpoints that
// need an authenticated session.
func (h *UserHandler) Routes(r *mux.Router, protect mux.MiddlewareFunc) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/loggedin", h.LoginStatus).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/forgotpassword", h.ForgotPassword).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/resetpassword/{resetToken}", h.ResetPassword).Methods(http.MethodPut, http.MethodOptions)

	protected := r.NewRoute().Subrouter()
	protected.Use(protect)
	protected.HandleFunc("/getuser", h.GetUser).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/updateuser", h.UpdateUser).Methods(http.MethodPatch, http.MethodOptions)
	protected.HandleFunc("/changepassword", h.ChangePassword).Methods(http.MethodPatch, http.MethodOptions)
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "User Logout Successfully"})
}

func (h *UserHandler) LoginStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.LoginStatus(middleware.SessionToken(r)))
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login.")
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login.")
		return
	}

	var req domain.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login.")
		return
	}

	var req domain.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "Password changed successfully.")
}

func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && errors.Is(err, domain.ErrEmailDelivery) {
			writeJSON(w, appErr.Status, domain.ForgotPasswordResponse{Success: false, Message: appErr.Message})
			return
		}
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ForgotPasswordResponse{Success: true, Message: "Reset Email Sent"})
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	secret := mux.Vars(r)["resetToken"]

	var req domain.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), secret, req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "Password Reset is Successful, Please Log in"})
}

func (h *UserHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
