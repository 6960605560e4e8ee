package http

import (
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
	"payeveryone/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserHandler struct {
	users   port.UserService
	history port.HistoryService
	logger  *zap.Logger
}

func NewUserHandler(users port.UserService, history port.HistoryService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, history: history, logger: logger.Named("users")}
}

type historyBody struct {
	Entries []domain.HistoryEntry `json:"entries"`
	Summary domain.HistorySummary `json:"summary"`
}

type creditBody struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	user, err := h.users.Get(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *UserHandler) SetWithdrawPIN(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	var req domain.SetPINReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.users.SetWithdrawPIN(r.Context(), session.UserID, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) SetPayout(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())

	var method domain.PaymentMethod
	if err := decodeJSON(w, r, &method); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.users.SetPayout(r.Context(), session.UserID, method); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, method)
}

func (h *UserHandler) MyHistory(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	h.writeHistory(w, r, session.UserID)
}

func (h *UserHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, chi.URLParam(r, "id"))
}

func (h *UserHandler) writeHistory(w http.ResponseWriter, r *http.Request, userID string) {
	entries, err := h.history.ForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeSuccess(w, http.StatusOK, historyBody{Entries: entries, Summary: service.Summarize(entries)})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, users)
}

func (h *UserHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var body creditBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	tx, err := h.users.CreditUser(r.Context(), &domain.CreditReq{UserID: chi.URLParam(r, "id"), Amount: body.Amount})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, tx)
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.users.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, dashboard)
}

func (h *UserHandler) Bets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.history.Bets(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, bets)
}
