package handler

import (
	"context"
	"net/http"

	"go-shop-api/internal/model"
)

type orderService interface {
	Place(ctx context.Context, user model.AuthUser, lines []model.OrderLine) (model.PlacedOrder, error)
	ListMine(ctx context.Context, user model.AuthUser, page int, limit int) (model.OrderList, error)
	Get(ctx context.Context, user model.AuthUser, id int64) (model.Order, error)
}

type OrderHandler struct {
	service orderService
}

func NewOrderHandler(service orderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload model.PlaceOrderRequest
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	placed, err := h.service.Place(r.Context(), user, payload.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, placed)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	list, err := h.service.ListMine(r.Context(), user,
		parseIntOrDefault(query.Get("page"), 1),
		parseIntOrDefault(query.Get("limit"), 20))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, list)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"order": order})
}
