// Package amount converts canonical amounts into the breakdown acquirers expect.
package amount

import (
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// Rates of the closed-form reallocation used by exempt processors
	exemptIVARate = decimal.RequireFromString("0.15")
	exemptICERate = decimal.RequireFromString("0.10")

	// 1 + ice + iva*(1+ice)
	exemptDivisor = decimal.NewFromInt(1).
			Add(exemptICERate).
			Add(exemptIVARate.Mul(decimal.NewFromInt(1).Add(exemptICERate)))
)

// Normalizer derives processor amounts from canonical amounts
type Normalizer struct {
	cfg *config.AmountConfig
}

// NewNormalizer creates a normalizer over the amount configuration
func NewNormalizer(cfg *config.AmountConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize returns the processor breakdown of amount. tokenAmount is the
// total captured at tokenization, used only by exempt processors.
func (n *Normalizer) Normalize(amount domain.Amount, processorID string, tokenAmount *decimal.Decimal) (domain.ProcessorAmount, error) {
	var sub, sub0, iva, ice decimal.Decimal

	switch {
	case tokenAmount != nil && n.cfg.IsExemptProcessor(processorID):
		sub, ice, iva = Reallocate(*tokenAmount)
		sub0 = decimal.Zero
	case amount.IVA.IsZero():
		sub, sub0, iva, ice = amount.SubtotalIVA, amount.SubtotalIVA0, amount.IVA, amount.ICEValue()
	default:
		rate, ok := n.cfg.IVARate(amount.Currency)
		if !ok {
			return domain.ProcessorAmount{}, domain.NewConfigurationError("no IVA rate configured for currency %s", amount.Currency)
		}
		sub = amount.SubtotalIVA.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
		iva = amount.SubtotalIVA.Sub(sub)
		sub0, ice = amount.SubtotalIVA0, amount.ICEValue()
	}

	out := domain.ProcessorAmount{
		ICE:          fixed(ice),
		IVA:          fixed(iva),
		SubtotalIVA:  fixed(sub),
		SubtotalIVA0: fixed(sub0),
	}

	total := sub.Round(2).Add(sub0.Round(2)).Add(iva.Round(2)).Add(ice.Round(2))
	for _, line := range amount.ExtraTaxes.Lines() {
		out.Tax = append(out.Tax, domain.TaxLine{
			ID:     line.ID,
			Name:   line.Name,
			Amount: fixed(line.Amount),
		})
		total = total.Add(line.Amount.Round(2))
	}
	out.TotalAmount = fixed(total)

	return out, nil
}

// Reallocate splits a known total into subtotal, ICE and IVA so that the three
// parts sum exactly to total. The rounding residual is absorbed by ICE.
func Reallocate(total decimal.Decimal) (sub, ice, iva decimal.Decimal) {
	sub = total.Div(exemptDivisor).Round(2)
	ice = sub.Mul(exemptICERate).Round(2)
	iva = sub.Add(ice).Mul(exemptIVARate).Round(2)

	residual := total.Round(2).Sub(sub.Add(ice).Add(iva))
	ice = ice.Add(residual)
	return sub, ice, iva
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
