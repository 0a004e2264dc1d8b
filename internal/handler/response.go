package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"leetcode-tracker/internal/model"
	"leetcode-tracker/pkg/apierror"
)

// maxBodyBytes caps request bodies. Credentials are tiny.
const maxBodyBytes = 64 << 10

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Error = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.ErrBadRequest.WithDetails("request body is empty")
		}
		return model.ErrBadRequest
	}
	if decoder.More() {
		return model.ErrBadRequest.WithDetails("request body must contain a single JSON object")
	}
	return nil
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, model.ErrRouteNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, model.ErrMethodNotAllowed)
}
