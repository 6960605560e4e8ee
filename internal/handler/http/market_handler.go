package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"

	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type MarketHandler struct {
	service port.MarketService
	logger  *zap.Logger
}

func NewMarketHandler(service port.MarketService, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{service: service, logger: logger.Named("market")}
}

func (h *MarketHandler) Prices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.Prices(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, prices)
}

func (h *MarketHandler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	var upd domain.PriceUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	prices, err := h.service.UpdatePrices(r.Context(), &upd)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, prices)
}

func (h *MarketHandler) DepositAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := h.service.DepositAddress(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, addr)
}

// UpdateDepositAddress takes a multipart form with walletAddress and an
// optional qrCode image.
func (h *MarketHandler) UpdateDepositAddress(w http.ResponseWriter, r *http.Request) {
	upload, closeFile, err := formUpload(w, r, "qrCode")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer closeFile()

	addr, err := h.service.UpdateDepositAddress(r.Context(), r.FormValue("walletAddress"), upload)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, addr)
}

func (h *MarketHandler) UPIQRCode(w http.ResponseWriter, r *http.Request) {
	qr, err := h.service.UPIQRCode(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, qr)
}

func (h *MarketHandler) UpdateUPIQRCode(w http.ResponseWriter, r *http.Request) {
	upload, closeFile, err := formUpload(w, r, "qrCode")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer closeFile()

	qr, err := h.service.UpdateUPIQRCode(r.Context(), upload)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, qr)
}

// formUpload parses the multipart body and returns the named file, or nil
// when the field is absent.
func formUpload(w http.ResponseWriter, r *http.Request, field string) (*domain.Upload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, noop, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return &domain.Upload{
		Filename:    hdr.Filename,
		ContentType: contentType(hdr),
		Size:        hdr.Size,
		Body:        file,
	}, func() { file.Close() }, nil
}

func contentType(hdr *multipart.FileHeader) string {
	if ct := hdr.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
