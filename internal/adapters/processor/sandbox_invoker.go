package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/gateway"
)

// Sandbox card endings with a fixed outcome
const (
	SandboxDeclinedLastFour    = "0002"
	SandboxUnavailableLastFour = "0005"
)

// SandboxInvoker answers sandbox processor calls locally
type SandboxInvoker struct{}

// NewSandboxInvoker creates the local sandbox responder
func NewSandboxInvoker() *SandboxInvoker { return &SandboxInvoker{} }

// Invoke implements ports.ProcessorInvoker
func (s *SandboxInvoker) Invoke(ctx context.Context, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.UpstreamFailure{Err: err, Timeout: true, StatusCode: http.StatusGatewayTimeout}
	}

	var req gateway.SandboxRequest
	if err := json.Unmarshal(call.Payload, &req); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox request: %w", err)
	}

	resp := gateway.SandboxResponse{
		TransactionID: uuid.New().String(),
		IsDeferred:    "N",
	}
	status := http.StatusOK
	switch req.LastFourDigits {
	case SandboxDeclinedLastFour:
		resp.ResponseCode = "005"
		resp.ResponseText = "Do not honor"
		status = http.StatusPaymentRequired
	case SandboxUnavailableLastFour:
		resp.ResponseCode = "091"
		resp.ResponseText = "Issuer unavailable"
		status = http.StatusServiceUnavailable
	default:
		resp.ResponseCode = "000"
		resp.ResponseText = "Approved"
		resp.TicketNumber = fmt.Sprintf("%018d", rand.Int63n(1e18))
		resp.ApprovalCode = fmt.Sprintf("%06d", rand.Intn(1e6))
		resp.ApprovedAmount = req.Amount.TotalAmount
		if req.Deferred != nil && req.Deferred.Months > 0 {
			resp.IsDeferred = "Y"
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sandbox response: %w", err)
	}
	return &ports.RawResponse{Body: body, StatusCode: status}, nil
}
