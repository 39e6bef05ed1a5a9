// Package gateway builds acquirer-specific requests from canonical input and
// decodes acquirer answers into the normalized processor response.
package gateway

import (
	"fmt"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
)

// Operation paths shared by the acquirers
const (
	OpCharge          = "charge"
	OpPreauthorize    = "preAuthorization"
	OpReauthorize     = "reauthorization"
	OpCapture         = "capture"
	OpVoid            = "void"
	OpValidateAccount = "validateAccount"
)

// OperationFor maps a transaction type to the acquirer operation
func OperationFor(t domain.TransactionType) string {
	switch t {
	case domain.TransactionTypePreauthorization:
		return OpPreauthorize
	case domain.TransactionTypeReauthorization:
		return OpReauthorize
	case domain.TransactionTypeCapture:
		return OpCapture
	case domain.TransactionTypeVoid:
		return OpVoid
	case domain.TransactionTypeAccountValidation:
		return OpValidateAccount
	}
	return OpCharge
}

// Input is the canonical, fully resolved input of a processor request
type Input struct {
	Token     *domain.TokenInfo
	Merchant  *domain.MerchantInfo
	Processor *domain.ProcessorInfo
	Charge    *domain.ChargeRequest // nil for capture, reauthorization and void
	Original  *domain.Transaction   // referenced transaction for capture, reauthorization and void
	Deferred  *domain.Deferred      // already resolved by ResolveDeferred
	Metadata  map[string]interface{}

	Amount               domain.ProcessorAmount
	Currency             string
	Operation            domain.TransactionType
	TransactionReference string
	CVV                  string // already resolved by ResolveCVV
	PartialAmount        bool   // the follow-up named its own amount instead of reusing the original
}

// IsCardTransaction reports a direct card charge (not subscription originated)
func (in *Input) IsCardTransaction() bool {
	return in.Charge == nil || in.Charge.IsCardTransaction()
}

// Brand returns the card brand in lowercase, or empty when unknown
func (in *Input) Brand() string {
	if in.Token != nil && in.Token.BinInfo != nil {
		return normalizeBrand(in.Token.BinInfo.Brand)
	}
	if in.Original != nil {
		return normalizeBrand(in.Original.PaymentBrand)
	}
	return ""
}

// Acquirer builds and decodes one acquirer's wire format
type Acquirer interface {
	Type() domain.ProcessorType
	BuildRequest(in *Input) (*ports.ProcessorCall, error)
	// ParseResponse decodes a raw answer. Rejections are returned as errors:
	// *domain.UpstreamFailure for vendor-coded failures that still need
	// classification, *domain.DomainError when already normalized.
	ParseResponse(in *Input, raw *ports.RawResponse) (*domain.ProcessorResponse, error)
}

// Registry selects the acquirer serving a processor
type Registry struct {
	acquirers map[domain.ProcessorType]Acquirer
}

// NewRegistry creates a registry over the given acquirers
func NewRegistry(acquirers ...Acquirer) *Registry {
	r := &Registry{acquirers: make(map[domain.ProcessorType]Acquirer, len(acquirers))}
	for _, a := range acquirers {
		r.acquirers[a.Type()] = a
	}
	return r
}

// Get returns the acquirer for a processor type
func (r *Registry) Get(t domain.ProcessorType) (Acquirer, error) {
	a, ok := r.acquirers[t]
	if !ok {
		return nil, domain.NewConfigurationError("no acquirer registered for processor type %q", t)
	}
	return a, nil
}

// For returns the acquirer serving a processor. Processors without a type
// are served by Aurus, which fronts every legacy processor.
func (r *Registry) For(p *domain.ProcessorInfo) (Acquirer, error) {
	if p == nil {
		return nil, fmt.Errorf("processor info is required")
	}
	t := p.ProcessorType
	if t == "" {
		t = domain.ProcessorTypeAurus
	}
	return r.Get(t)
}
