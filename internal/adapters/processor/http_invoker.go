// Package processor carries acquirer calls over their transport: HTTPS for
// Aurus and Transbank, Lambda for the Kushki acquirer and a local responder
// for the sandbox.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// HTTPInvoker posts processor calls to the acquirer base URL plus the operation path
type HTTPInvoker struct {
	client   ports.HTTPClient
	baseURLs map[domain.ProcessorType]string
	breaker  *CircuitBreaker
	logger   *zap.Logger
}

// NewHTTPInvoker creates an HTTP invoker. baseURLs maps each HTTP acquirer to its endpoint.
func NewHTTPInvoker(client ports.HTTPClient, baseURLs map[domain.ProcessorType]string, breaker *CircuitBreaker, logger *zap.Logger) *HTTPInvoker {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	return &HTTPInvoker{
		client:   client,
		baseURLs: baseURLs,
		breaker:  breaker,
		logger:   logger,
	}
}

// Invoke implements ports.ProcessorInvoker
func (h *HTTPInvoker) Invoke(ctx context.Context, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	base, ok := h.baseURLs[call.ProcessorType]
	if !ok || base == "" {
		return nil, domain.NewConfigurationError("no endpoint configured for %s", call.ProcessorType)
	}

	if err := h.breaker.Allow(call.ProcessorName); err != nil {
		h.logger.Warn("Processor circuit open, failing fast",
			zap.String("processor_name", call.ProcessorName),
			zap.String("operation", call.Operation))
		return nil, &domain.UpstreamFailure{Err: err, StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
	}

	raw, err := h.do(ctx, strings.TrimRight(base, "/")+"/"+call.Operation, call)
	h.breaker.Record(call.ProcessorName, err != nil || raw.StatusCode >= http.StatusInternalServerError)
	if err != nil {
		h.logger.Warn("Processor transport failure",
			zap.String("processor_name", call.ProcessorName),
			zap.String("operation", call.Operation),
			zap.Error(err))
		return nil, err
	}

	h.logger.Debug("Processor answered",
		zap.String("processor_name", call.ProcessorName),
		zap.String("operation", call.Operation),
		zap.Int("status_code", raw.StatusCode))
	return raw, nil
}

func (h *HTTPInvoker) do(ctx context.Context, url string, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(call.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create processor request: %w", err)
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportFailure(err)
	}
	return &ports.RawResponse{Body: body, StatusCode: resp.StatusCode}, nil
}

func transportFailure(err error) *domain.UpstreamFailure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.UpstreamFailure{Err: err, Timeout: true, StatusCode: http.StatusGatewayTimeout}
	}
	return &domain.UpstreamFailure{Err: err, StatusCode: http.StatusBadGateway, Message: err.Error()}
}
