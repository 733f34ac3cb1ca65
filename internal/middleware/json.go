package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"marketplates/internal/model"
	"marketplates/pkg/apierror"
)

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeAPIError(w http.ResponseWriter, err *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Message: err.Message,
		Code:    err.Code,
	})
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unhandled error in middleware", "error", err)
		apiErr = apierror.Unexpected()
	}
	writeAPIError(w, apiErr)
}
