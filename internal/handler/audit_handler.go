package handler

import (
	"context"
	"net/http"
	"strings"

	"go-shop-api/internal/model"
)

type auditService interface {
	Query(ctx context.Context, query model.AuditQuery) (model.AuditList, error)
}

type AuditHandler struct {
	service auditService
}

func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Activity lists the caller's own audit trail, newest first.
func (h *AuditHandler) Activity(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	list, err := h.service.Query(r.Context(), model.AuditQuery{
		UserID: user.ID,
		Action: strings.TrimSpace(query.Get("action")),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, list)
}
