package handler

import (
	"context"
	"net/http"
	"time"

	"go-shop-api/internal/middleware"
	"go-shop-api/internal/model"
)

type authService interface {
	Signup(ctx context.Context, req model.SignupRequest) (model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error)
	Logout(ctx context.Context, user model.AuthUser, token string) error
	ChangePassword(ctx context.Context, identity model.AuthUser, token string, req model.ChangePasswordRequest) (model.AuthResult, error)
}

// SessionCookie controls the cookie issued alongside the bearer token.
type SessionCookie struct {
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	service authService
	cookie  SessionCookie
}

func NewAuthHandler(service authService, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.SignupRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Signup(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSession(w, result.Token)
	writeSuccess(w, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSession(w, result.Token)
	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, _ := middleware.TokenFromContext(r.Context())

	if err := h.service.Logout(r.Context(), user, token); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearSession(w)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	token, _ := middleware.TokenFromContext(r.Context())
	result, err := h.service.ChangePassword(r.Context(), user, token, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSession(w, result.Token)
	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
