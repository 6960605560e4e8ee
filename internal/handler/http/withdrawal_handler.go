package http

import (
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type WithdrawalHandler struct {
	service port.WithdrawalService
	logger  *zap.Logger
}

func NewWithdrawalHandler(service port.WithdrawalService, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		service: service,
		logger:  logger.Named("withdrawals"),
	}
}

// Create reserves the amount from the caller's balance. The idempotency key
// may come from the body or the Idempotency-Key header.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	var req domain.WithdrawalReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	req.UserID = session.UserID
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(idempotencyHeader)
	}

	withdrawal, err := h.service.CreateWithdrawal(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, withdrawal)
}

func (h *WithdrawalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	items, err := h.service.ListForUser(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	withdrawal, err := h.service.GetWithdrawal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if withdrawal.UserID != session.UserID && !session.IsAdmin() {
		writeError(w, http.StatusNotFound, domain.ErrRequestNotFound.Error())
		return
	}
	writeSuccess(w, http.StatusOK, withdrawal)
}

func (h *WithdrawalHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := statusParam(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	settle(w, r, h.logger, h.service.Approve, domain.StatusApproved)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	settle(w, r, h.logger, h.service.Reject, domain.StatusRejected)
}
