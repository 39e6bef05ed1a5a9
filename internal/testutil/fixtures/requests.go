package fixtures

import (
	"github.com/kevin07696/card-gateway/internal/domain"
)

// ChargeBuilder provides fluent API for building charge requests.
type ChargeBuilder struct {
	req *domain.ChargeRequest
}

// NewCharge creates a charge of 112.00 USD (100 + 12 IVA).
func NewCharge() *ChargeBuilder {
	return &ChargeBuilder{
		req: &domain.ChargeRequest{
			Amount: domain.Amount{
				Currency:    "USD",
				SubtotalIVA: Dec("100"),
				IVA:         Dec("12"),
			},
			TokenID:    "tok-0001",
			MerchantID: "20000000100000000000",
			Type:       domain.TransactionTypeSale,
		},
	}
}

func (b *ChargeBuilder) WithAmount(a domain.Amount) *ChargeBuilder {
	b.req.Amount = a
	return b
}

func (b *ChargeBuilder) WithType(t domain.TransactionType) *ChargeBuilder {
	b.req.Type = t
	return b
}

func (b *ChargeBuilder) WithCVV(cvv string) *ChargeBuilder {
	b.req.CVV = cvv
	return b
}

func (b *ChargeBuilder) WithSubMerchant(s *domain.SubMerchant) *ChargeBuilder {
	b.req.SubMerchant = s
	return b
}

func (b *ChargeBuilder) WithDeferred(d *domain.Deferred) *ChargeBuilder {
	b.req.Deferred = d
	return b
}

func (b *ChargeBuilder) WithSubscription(id string, trigger domain.SubscriptionTrigger) *ChargeBuilder {
	b.req.SubscriptionID = id
	b.req.SubscriptionTrigger = trigger
	return b
}

func (b *ChargeBuilder) WithThreeDS(detail *domain.ThreeDSDetail) *ChargeBuilder {
	b.req.ThreeDomainSecure = detail
	return b
}

func (b *ChargeBuilder) CardValidation() *ChargeBuilder {
	b.req.IsCardValidation = true
	return b
}

func (b *ChargeBuilder) SubscriptionValidation() *ChargeBuilder {
	b.req.IsSubscriptionValidation = true
	return b
}

func (b *ChargeBuilder) Build() *domain.ChargeRequest {
	r := *b.req
	return &r
}

// CompleteSubMerchant returns a sub-merchant with every required field.
func CompleteSubMerchant() *domain.SubMerchant {
	return &domain.SubMerchant{
		IDAffiliation:  "AF-1",
		SocialReason:   "Sub Merchant S.A.",
		Address:        "Av. Amazonas 123",
		City:           "Quito",
		Zip:            "170150",
		CountryAns:     "ECU",
		IDCompany:      "CO-1",
		SoftDescriptor: "SUBMERCH",
		MCC:            "5411",
	}
}
