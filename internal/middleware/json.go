package middleware

import (
	"encoding/json"
	"net/http"

	"leetcode-tracker/internal/model"
	"leetcode-tracker/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeAPIError(w http.ResponseWriter, err *apierror.APIError) {
	writeJSON(w, err.HTTPStatus, model.ErrorResponse{
		Error:   err.Code,
		Message: err.Message,
	})
}
