package domain

import (
	"github.com/shopspring/decimal"
)

// Tax line names sent to processors
const (
	TaxPropina           = "PROPINA"
	TaxTasaAeroportuaria = "TASA_AEROPORTUARIA"
	TaxAgenciaDeViaje    = "AGENCIA_DE_VIAJE"
	TaxIAC               = "IAC"
)

// ExtraTaxes holds the optional taxes some merchants charge on top of IVA/ICE
type ExtraTaxes struct {
	Propina           *decimal.Decimal `json:"propina,omitempty"`
	TasaAeroportuaria *decimal.Decimal `json:"tasaAeroportuaria,omitempty"`
	AgenciaDeViaje    *decimal.Decimal `json:"agenciaDeViaje,omitempty"`
	Iac               *decimal.Decimal `json:"iac,omitempty"`
}

// NamedTax is one extra tax with its wire name
type NamedTax struct {
	Name   string
	ID     string
	Amount decimal.Decimal
}

// Lines returns the present extra taxes in a stable order
func (e *ExtraTaxes) Lines() []NamedTax {
	if e == nil {
		return nil
	}
	var lines []NamedTax
	add := func(name, id string, v *decimal.Decimal) {
		if v != nil {
			lines = append(lines, NamedTax{Name: name, ID: id, Amount: *v})
		}
	}
	add(TaxPropina, "3", e.Propina)
	add(TaxTasaAeroportuaria, "4", e.TasaAeroportuaria)
	add(TaxAgenciaDeViaje, "5", e.AgenciaDeViaje)
	add(TaxIAC, "6", e.Iac)
	return lines
}

// Total sums every present extra tax
func (e *ExtraTaxes) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines() {
		total = total.Add(l.Amount)
	}
	return total
}

// Amount is the canonical money breakdown of a request
type Amount struct {
	ICE          *decimal.Decimal `json:"ice,omitempty"`
	ExtraTaxes   *ExtraTaxes      `json:"extraTaxes,omitempty"`
	Currency     string           `json:"currency" validate:"required,len=3"`
	IVA          decimal.Decimal  `json:"iva"`
	SubtotalIVA  decimal.Decimal  `json:"subtotalIva"`
	SubtotalIVA0 decimal.Decimal  `json:"subtotalIva0"`
}

// ICEValue returns ICE or zero
func (a Amount) ICEValue() decimal.Decimal {
	if a.ICE == nil {
		return decimal.Zero
	}
	return *a.ICE
}

// Total = subtotalIva + subtotalIva0 + iva + ice + sum(extraTaxes)
func (a Amount) Total() decimal.Decimal {
	return a.SubtotalIVA.
		Add(a.SubtotalIVA0).
		Add(a.IVA).
		Add(a.ICEValue()).
		Add(a.ExtraTaxes.Total())
}

// TaxLine is a named extra tax on the processor wire amount
type TaxLine struct {
	ID     string `json:"taxId"`
	Name   string `json:"taxName"`
	Amount string `json:"taxAmount"`
}

// ProcessorAmount is the wire form of an amount; numeric fields are fixed 2-decimal strings
type ProcessorAmount struct {
	ICE          string    `json:"ICE"`
	IVA          string    `json:"IVA"`
	SubtotalIVA  string    `json:"Subtotal_IVA"`
	SubtotalIVA0 string    `json:"Subtotal_IVA0"`
	TotalAmount  string    `json:"Total_amount"`
	Tax          []TaxLine `json:"tax,omitempty"`
}

// Total parses Total_amount back into a decimal
func (p ProcessorAmount) Total() decimal.Decimal {
	d, err := decimal.NewFromString(p.TotalAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}
