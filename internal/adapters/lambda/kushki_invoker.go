package lambda

import (
	"context"
	"errors"
	"net/http"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// KushkiInvoker sends Kushki acquirer calls to its Lambda function
type KushkiInvoker struct {
	client       LambdaAPI
	functionName string
	logger       *zap.Logger
}

// NewKushkiInvoker creates the Kushki acquirer invoker
func NewKushkiInvoker(client LambdaAPI, functionName string, logger *zap.Logger) *KushkiInvoker {
	return &KushkiInvoker{
		client:       client,
		functionName: functionName,
		logger:       logger,
	}
}

// Invoke implements ports.ProcessorInvoker. The operation travels inside the payload.
func (k *KushkiInvoker) Invoke(ctx context.Context, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	body, err := invokeSync(ctx, k.client, k.functionName, call.Payload)
	if err != nil {
		var fail *domain.UpstreamFailure
		if errors.As(err, &fail) {
			k.logger.Warn("Kushki acquirer unreachable",
				zap.String("function", k.functionName),
				zap.String("operation", call.Operation),
				zap.Error(err))
			return nil, err
		}
		k.logger.Error("Kushki acquirer function failed",
			zap.String("function", k.functionName),
			zap.String("operation", call.Operation),
			zap.Error(err))
		return nil, domain.WrapError(domain.ErrorCodeUnexpected, err)
	}

	return &ports.RawResponse{Body: body, StatusCode: http.StatusOK}, nil
}
