package http

import (
	"context"
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ExchangeHandler struct {
	service port.ExchangeService
	logger  *zap.Logger
}

func NewExchangeHandler(service port.ExchangeService, logger *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{service: service, logger: logger.Named("exchanges")}
}

type failBody struct {
	Reason string `json:"reason"`
}

func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	var req domain.ExchangeReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	req.UserID = session.UserID

	exchange, err := h.service.CreateExchange(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, exchange)
}

func (h *ExchangeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	items, err := h.service.ListForUser(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *ExchangeHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
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

// Approve answers with the settled request so the admin sees the rate applied.
func (h *ExchangeHandler) Approve(w http.ResponseWriter, r *http.Request) {
	exchange, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, exchange)
}

func (h *ExchangeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	settle(w, r, h.logger, h.service.Reject, domain.StatusRejected)
}

func (h *ExchangeHandler) Fail(w http.ResponseWriter, r *http.Request) {
	var body failBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	settle(w, r, h.logger, func(ctx context.Context, id string) error {
		return h.service.Fail(ctx, id, body.Reason)
	}, domain.StatusFailed)
}
