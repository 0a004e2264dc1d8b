package handler

import (
	"log/slog"
	"net/http"

	"leetcode-tracker/internal/middleware"
	"leetcode-tracker/internal/model"
	"leetcode-tracker/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register creates the account and logs the new user straight in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), payload.Email, payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.service.IssueToken(user.ID, user.Email)
	if err != nil {
		// The account exists either way; the client can still log in.
		slog.Error("issue token after registration", "user_id", user.ID, "error", err)
	}
	user.Token = token

	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrAuthenticationRequired)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrAuthenticationRequired)
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.MessageResponse{Message: "Password changed successfully"})
}

// Logout always succeeds. Without a denylist the token stays valid until it
// expires, so the client has to drop it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), identity); err != nil {
			slog.Warn("token revocation failed", "user_id", identity.UserID, "error", err)
		}
	}

	writeSuccess(w, http.StatusOK, model.MessageResponse{
		Message: "Logout successful",
		Note:    "Please remove the token from client storage",
	})
}
