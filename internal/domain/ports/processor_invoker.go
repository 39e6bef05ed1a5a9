package ports

import (
	"context"

	"github.com/kevin07696/card-gateway/internal/domain"
)

// ProcessorCall is a wire request ready to be sent to an acquirer
type ProcessorCall struct {
	Headers       map[string]string
	ProcessorType domain.ProcessorType
	ProcessorName string
	Operation     string
	Payload       []byte
}

// RawResponse is the undecoded acquirer answer
type RawResponse struct {
	Body       []byte
	StatusCode int
}

// ProcessorInvoker sends processor calls over the acquirer's transport.
// Transport failures are returned as *domain.UpstreamFailure.
type ProcessorInvoker interface {
	Invoke(ctx context.Context, call *ProcessorCall) (*RawResponse, error)
}
