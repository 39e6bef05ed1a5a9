package gateway

import (
	"strings"

	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
)

const (
	placeholderCVV     = "000"
	placeholderAmexCVV = "0000"
)

// CVVPolicy decides when a placeholder CVV is injected
type CVVPolicy struct {
	cfg *config.CVVConfig
}

// NewCVVPolicy creates a policy over the CVV configuration
func NewCVVPolicy(cfg *config.CVVConfig) *CVVPolicy {
	return &CVVPolicy{cfg: cfg}
}

// Resolve returns the CVV to send. A caller-supplied CVV is never replaced.
func (p *CVVPolicy) Resolve(processorName, brand string, req *domain.ChargeRequest) string {
	if req == nil {
		return ""
	}
	if req.CVV != "" {
		return req.CVV
	}
	if processorName != p.cfg.ForceProcessor || p.avoid(brand, req) {
		return ""
	}
	if domain.IsAmexFamily(brand) {
		return placeholderAmexCVV
	}
	return placeholderCVV
}

func (p *CVVPolicy) avoid(brand string, req *domain.ChargeRequest) bool {
	if !p.brandScoped(brand) {
		return false
	}
	switch {
	case p.cfg.AvoidSubscriptionValidation && req.IsSubscriptionValidation:
		return true
	case p.cfg.AvoidScheduled && req.SubscriptionTrigger == domain.SubscriptionTriggerScheduled:
		return true
	case p.cfg.AvoidOnDemand && req.SubscriptionTrigger == domain.SubscriptionTriggerOnDemand:
		return true
	}
	return false
}

// brandScoped reports whether the avoid flags apply to brand
func (p *CVVPolicy) brandScoped(brand string) bool {
	if len(p.cfg.AvoidBrands) == 0 {
		return true
	}
	for _, b := range p.cfg.AvoidBrands {
		if normalizeBrand(b) == normalizeBrand(brand) {
			return true
		}
	}
	return false
}

func normalizeBrand(brand string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(brand), " ", ""))
}
