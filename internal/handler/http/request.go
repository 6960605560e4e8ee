package http

import (
	"context"
	"fmt"
	"net/http"

	"payeveryone/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type settledBody struct {
	ID     string               `json:"id"`
	Status domain.RequestStatus `json:"status"`
}

// statusParam reads the optional ?status= filter of the admin queues.
func statusParam(r *http.Request) (domain.RequestStatus, error) {
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return status, nil
}

func settle(w http.ResponseWriter, r *http.Request, log *zap.Logger, apply func(ctx context.Context, id string) error, status domain.RequestStatus) {
	id := chi.URLParam(r, "id")
	if err := apply(r.Context(), id); err != nil {
		writeServiceError(w, log, err)
		return
	}
	writeSuccess(w, http.StatusOK, settledBody{ID: id, Status: status})
}
