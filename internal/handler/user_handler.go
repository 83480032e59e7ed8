package handler

import (
	"context"
	"net/http"

	"go-shop-api/internal/model"
)

type userService interface {
	GetProfile(ctx context.Context, user model.AuthUser) (model.ProfileView, error)
	UpdateProfile(ctx context.Context, user model.AuthUser, req model.UpdateProfileRequest) (model.ProfileView, error)
	Dashboard(ctx context.Context, user model.AuthUser) (model.Dashboard, error)
}

type UserHandler struct {
	service userService
}

func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.service.GetProfile(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, view)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.UpdateProfileRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.service.UpdateProfile(r.Context(), user, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, view)
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, dashboard)
}
