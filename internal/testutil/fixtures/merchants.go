package fixtures

import (
	"github.com/kevin07696/card-gateway/internal/domain"
)

// MerchantBuilder provides fluent API for building test merchants.
type MerchantBuilder struct {
	merchant *domain.MerchantInfo
}

// NewMerchant creates a new merchant builder with sensible defaults.
func NewMerchant() *MerchantBuilder {
	return &MerchantBuilder{
		merchant: &domain.MerchantInfo{
			MerchantID:       "20000000100000000000",
			MerchantName:     "Test Merchant",
			Country:          "Ecuador",
			SocialReason:     "Test Merchant S.A.",
			TaxID:            "1790000000001",
			CategoryMerchant: "retail",
		},
	}
}

func (b *MerchantBuilder) WithID(id string) *MerchantBuilder {
	b.merchant.MerchantID = id
	return b
}

func (b *MerchantBuilder) WithCountry(country string) *MerchantBuilder {
	b.merchant.Country = country
	return b
}

func (b *MerchantBuilder) WithSiftScience() *MerchantBuilder {
	b.merchant.SiftScience = true
	return b
}

func (b *MerchantBuilder) Build() *domain.MerchantInfo {
	m := *b.merchant
	return &m
}

// ProcessorBuilder provides fluent API for building test processors.
type ProcessorBuilder struct {
	processor *domain.ProcessorInfo
}

// NewProcessor creates a processor builder defaulting to an Aurus processor.
func NewProcessor() *ProcessorBuilder {
	return &ProcessorBuilder{
		processor: &domain.ProcessorInfo{
			ProcessorID:         "proc-public-1",
			PrivateID:           "proc-private-1",
			ProcessorName:       domain.ProcessorNameCredimatic,
			ProcessorType:       domain.ProcessorTypeAurus,
			ProcessorMerchantID: "PMID-1",
			TerminalID:          "T0001",
			AcquirerBank:        "Banco Pichincha",
			MerchantCategory:    "5411",
		},
	}
}

func (b *ProcessorBuilder) WithID(id string) *ProcessorBuilder {
	b.processor.ProcessorID = id
	return b
}

func (b *ProcessorBuilder) WithName(name string) *ProcessorBuilder {
	b.processor.ProcessorName = name
	return b
}

func (b *ProcessorBuilder) WithType(t domain.ProcessorType) *ProcessorBuilder {
	b.processor.ProcessorType = t
	return b
}

func (b *ProcessorBuilder) Build() *domain.ProcessorInfo {
	p := *b.processor
	return &p
}

// KushkiProcessor creates the in-house acquirer processor.
func KushkiProcessor() *domain.ProcessorInfo {
	return NewProcessor().
		WithID("proc-kushki").
		WithName(domain.ProcessorNameKushki).
		WithType(domain.ProcessorTypeKushki).
		Build()
}
