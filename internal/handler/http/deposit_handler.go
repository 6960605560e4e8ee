package http

import (
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"go.uber.org/zap"
)

type DepositHandler struct {
	service port.DepositService
	logger  *zap.Logger
}

func NewDepositHandler(service port.DepositService, logger *zap.Logger) *DepositHandler {
	return &DepositHandler{service: service, logger: logger.Named("deposits")}
}

func (h *DepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	var req domain.DepositReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	req.UserID = session.UserID

	deposit, err := h.service.CreateDeposit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, deposit)
}

func (h *DepositHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	items, err := h.service.ListForUser(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *DepositHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
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

func (h *DepositHandler) Approve(w http.ResponseWriter, r *http.Request) {
	settle(w, r, h.logger, h.service.Approve, domain.StatusApproved)
}

func (h *DepositHandler) Reject(w http.ResponseWriter, r *http.Request) {
	settle(w, r, h.logger, h.service.Reject, domain.StatusRejected)
}
