// Package transaction exposes the transaction pipeline over JSON HTTP.
package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	"github.com/kevin07696/card-gateway/pkg/observability"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Service is the transaction pipeline the handlers call
type Service interface {
	Charge(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error)
	PreAuthorize(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error)
	Reauthorize(ctx context.Context, req *domain.ReauthRequest) (*domain.Transaction, error)
	Capture(ctx context.Context, req *domain.CaptureRequest) (*domain.Transaction, error)
	Void(ctx context.Context, req *domain.VoidRequest) (*domain.Transaction, error)
	ValidateAccount(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error)
	SaveDeclineTrx(ctx context.Context, req *domain.DeclineRequest) (*domain.Transaction, error)
	Record(ctx context.Context, req *domain.RecordRequest) (*domain.Transaction, error)
}

// ErrorResponse is the caller-visible error body
type ErrorResponse struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Handler serves the transaction endpoints
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates the transaction handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts every endpoint on the mux, instrumented per route
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"/v1/charges":     h.Charge,
		"/v1/preauths":    h.PreAuthorize,
		"/v1/reauths":     h.Reauthorize,
		"/v1/captures":    h.Capture,
		"/v1/voids":       h.Void,
		"/v1/validations": h.ValidateAccount,
		"/v1/declines":    h.SaveDecline,
		"/v1/records":     h.Record,
	}
	for path, fn := range routes {
		mux.Handle("POST "+path, observability.HTTPMiddleware(path, fn))
	}
}

// Charge handles POST /v1/charges
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req domain.ChargeRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.Charge(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// PreAuthorize handles POST /v1/preauths
func (h *Handler) PreAuthorize(w http.ResponseWriter, r *http.Request) {
	var req domain.ChargeRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.PreAuthorize(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// Reauthorize handles POST /v1/reauths
func (h *Handler) Reauthorize(w http.ResponseWriter, r *http.Request) {
	var req domain.ReauthRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.Reauthorize(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// Capture handles POST /v1/captures
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var req domain.CaptureRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.Capture(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// Void handles POST /v1/voids
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	var req domain.VoidRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.Void(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// ValidateAccount handles POST /v1/validations
func (h *Handler) ValidateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.ChargeRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.ValidateAccount(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// SaveDecline handles POST /v1/declines
func (h *Handler) SaveDecline(w http.ResponseWriter, r *http.Request) {
	var req domain.DeclineRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.SaveDeclineTrx(r.Context(), &req)
	h.respond(w, r, trx, err)
}

// Record handles POST /v1/records
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	trx, err := h.service.Record(r.Context(), &req)
	h.respond(w, r, trx, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.logger.Warn("Failed to decode request body",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.respondError(w, domain.WrapError(domain.ErrorCodeInvalidBody, err))
		return false
	}
	return true
}

// respond writes the transaction, or 204 when the acquirer had already processed it
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, trx *domain.Transaction, err error) {
	if err != nil {
		h.respondError(w, err)
		return
	}
	if trx == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusCreated, trx)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	de := classifier.Normalize(err)
	status := StatusFor(de)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("code", string(de.Code)), zap.Error(err))
	}
	h.writeJSON(w, status, ErrorResponse{
		Code:     string(de.Code),
		Message:  de.Message,
		Metadata: de.Details,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// StatusFor maps an error onto its HTTP status by kind
func StatusFor(err error) int {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	if de.Code == domain.ErrorCodeTransactionNotFound {
		return http.StatusNotFound
	}
	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUpstreamRejected, domain.KindRuleEngineRejected:
		return http.StatusPaymentRequired
	case domain.KindUpstreamUnreachable:
		return http.StatusServiceUnavailable
	case domain.KindDuplicateWrite:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
