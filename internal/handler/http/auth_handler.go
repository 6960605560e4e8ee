package http

import (
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   port.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth port.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger.Named("auth")}
}

type tokenBody struct {
	Token string `json:"token"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.auth.SignUp(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	token, err := h.auth.SignIn(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, tokenBody{Token: token})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
