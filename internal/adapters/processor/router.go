package processor

import (
	"context"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
)

// Router dispatches each call to the invoker registered for its processor type
type Router struct {
	invokers map[domain.ProcessorType]ports.ProcessorInvoker
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{invokers: make(map[domain.ProcessorType]ports.ProcessorInvoker)}
}

// Register binds a processor type to its invoker
func (r *Router) Register(t domain.ProcessorType, invoker ports.ProcessorInvoker) *Router {
	r.invokers[t] = invoker
	return r
}

// Invoke implements ports.ProcessorInvoker
func (r *Router) Invoke(ctx context.Context, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	invoker, ok := r.invokers[call.ProcessorType]
	if !ok {
		return nil, domain.NewConfigurationError("no invoker registered for processor type %q", call.ProcessorType)
	}
	return invoker.Invoke(ctx, call)
}
