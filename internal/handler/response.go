package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-shop-api/internal/model"
	"go-shop-api/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError maps service errors onto the failure envelope. Anything that is
// neither an APIError nor a known sentinel is logged and reported as a bare
// 500 so store details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := model.APIResponse{
		Success: false,
		Code:    apierror.CodeInternal,
		Message: "internal server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Errors = apiErr.Fields
	case errors.Is(err, model.ErrProductNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "product not found"
	case errors.Is(err, model.ErrOrderNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "order not found"
	case errors.Is(err, model.ErrUserAlreadyExists):
		status = http.StatusConflict
		body.Code = apierror.CodeConflict
		body.Message = "user already exists"
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "authentication required"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = apierror.CodeValidation
		body.Message = "invalid input"
	default:
		slog.Error("unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
