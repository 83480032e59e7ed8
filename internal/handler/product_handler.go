package handler

import (
	"context"
	"net/http"
	"strings"

	"go-shop-api/internal/model"
)

type productService interface {
	List(ctx context.Context, q model.ProductQuery) (model.ProductList, error)
	Get(ctx context.Context, id int64) (model.Product, error)
}

type ProductHandler struct {
	service productService
}

func NewProductHandler(service productService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	list, err := h.service.List(r.Context(), model.ProductQuery{
		Page:     parseIntOrDefault(query.Get("page"), 1),
		Limit:    parseIntOrDefault(query.Get("limit"), 20),
		Category: strings.TrimSpace(query.Get("category")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, list)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"product": product})
}
