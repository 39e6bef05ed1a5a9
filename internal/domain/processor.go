package domain

import "strings"

// ProcessorType identifies the acquirer integration that serves a processor
type ProcessorType string

const (
	ProcessorTypeAurus     ProcessorType = "aurus"
	ProcessorTypeTransbank ProcessorType = "transbank"
	ProcessorTypeKushki    ProcessorType = "kushki"
	ProcessorTypeSandbox   ProcessorType = "sandbox"
)

// Processor names with processor-specific behavior
const (
	ProcessorNameKushki     = "Kushki Acquirer Processor"
	ProcessorNameTransbank  = "Transbank Processor"
	ProcessorNameSandbox    = "Sandbox Processor"
	ProcessorNameCredimatic = "Credimatic Processor"
	ProcessorNameDatafast   = "Datafast Processor"
	ProcessorNameElavon     = "Elavon Processor"
	ProcessorNameNiubiz     = "Niubiz Processor"
	ProcessorNameBillpocket = "Billpocket Processor"

	// DefaultProcessorName is reported on errors that carry no processor identity
	DefaultProcessorName = "AURUS"
)

// Card brands
const (
	BrandVisa       = "visa"
	BrandMastercard = "mastercard"
	BrandAmex       = "amex"
	BrandDiners     = "diners"
)

// IsAmexFamily reports brands that use a 4-digit CVV
func IsAmexFamily(brand string) bool {
	b := strings.ToLower(strings.ReplaceAll(brand, " ", ""))
	return b == BrandAmex || b == "americanexpress"
}

// ProcessorInfo is the merchant's configured processor
type ProcessorInfo struct {
	Categories          []string      `json:"categories,omitempty"`
	ProcessorID         string        `json:"public_id"`
	PrivateID           string        `json:"private_id"`
	ProcessorName       string        `json:"processor_name"`
	ProcessorType       ProcessorType `json:"processor_type"`
	ProcessorMerchantID string        `json:"processor_merchant_id"`
	TerminalID          string        `json:"terminal_id"`
	UniqueCode          string        `json:"unique_code"`
	AcquirerBank        string        `json:"acquirer_bank"`
	SubMccCode          string        `json:"sub_mcc_code"`
	MerchantCategory    string        `json:"merchant_category_code"`
	FailoverProcessorID string        `json:"failover_processor_id,omitempty"`
}

// IsKushkiAcquirer reports the internal pass-through acquirer
func (p *ProcessorInfo) IsKushkiAcquirer() bool {
	return p != nil && p.ProcessorName == ProcessorNameKushki
}
