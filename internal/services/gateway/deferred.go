package gateway

import (
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/pkg/observability"
)

// Default deferred marker for processors that require one on every card sale
var defaultDeferred = domain.Deferred{CreditType: "03", GraceMonths: "0"}

// DeferredResolver decides which deferred fields reach the acquirer
type DeferredResolver struct {
	cfg    *config.DeferredConfig
	logger ports.Logger
}

// NewDeferredResolver creates a resolver over the deferred configuration
func NewDeferredResolver(cfg *config.DeferredConfig, logger ports.Logger) *DeferredResolver {
	return &DeferredResolver{cfg: cfg, logger: logger}
}

// Resolve returns the deferred fields to send, or nil when none apply
func (r *DeferredResolver) Resolve(currency, processorName string, isCardTransaction bool, in *domain.Deferred) *domain.Deferred {
	if r.cfg.IsExemptCurrency(currency) {
		return nil
	}

	if in == nil {
		if processorName == domain.ProcessorNameDatafast && isCardTransaction {
			d := defaultDeferred
			return &d
		}
		return nil
	}

	if in.CreditType != "" && in.CreditType == r.cfg.NoInterestCreditType {
		return nil
	}

	out := *in
	if len(out.CreditType) > 2 {
		// Malformed upstream value; truncation is provisional and monitored
		r.logger.Warn("deferred credit type longer than 2 characters, truncating",
			ports.String("credit_type", out.CreditType),
			ports.String("processor_name", processorName),
		)
		observability.RecordCreditTypeTruncated()
		out.CreditType = out.CreditType[1:]
	}
	return &out
}
