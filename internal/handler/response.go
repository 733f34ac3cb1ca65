package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"marketplates/internal/model"
	"marketplates/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.APIResponse{Success: true, Data: data})
}

// writeError renders err as {success:false, message, code}. Errors outside
// the API taxonomy become a 500 and are logged.
func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	writeJSON(w, apiErr.HTTPStatus, model.APIResponse{
		Success: false,
		Message: apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

func toAPIError(err error) *apierror.APIError {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, model.ErrUserNotFound):
		return apierror.UserNotFound()
	case errors.Is(err, model.ErrUserAlreadyExists):
		return apierror.New(apierror.CodeConflict, "User already exists", "", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidInput):
		return apierror.BadRequest("Invalid input", "")
	default:
		slog.Error("unhandled error in writeError", "error", err)
		return apierror.Unexpected()
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}
