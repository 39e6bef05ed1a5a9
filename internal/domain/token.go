package domain

import "github.com/shopspring/decimal"

// BinInfo is metadata derived from a card's first digits
type BinInfo struct {
	Bin       string `json:"bin"`
	Bank      string `json:"bank"`
	Brand     string `json:"brand"`
	Country   string `json:"country"`
	CardType  string `json:"cardType"`
	Processor string `json:"processor,omitempty"`
	Prepaid   bool   `json:"prepaid"`
}

// ThreeDSDetail is the outcome of a 3DS authentication attached to a token or charge
type ThreeDSDetail struct {
	Cavv                 string `json:"cavv,omitempty"`
	Eci                  string `json:"eci,omitempty"`
	Xid                  string `json:"xid,omitempty"`
	Version              string `json:"specificationVersion,omitempty"`
	DirectoryServerTrxID string `json:"directoryServerTransactionID,omitempty"`
	AcceptRisk           bool   `json:"acceptRisk,omitempty"`
	ReasonCode           string `json:"reasonCode,omitempty"`
}

// TokenInfo is the result of a token fetch
type TokenInfo struct {
	ID                   string             `json:"id"`
	Amount               decimal.Decimal    `json:"amount"`
	Currency             string             `json:"currency"`
	BinInfo              *BinInfo           `json:"binInfo,omitempty"`
	CardHolderName       string             `json:"cardHolderName"`
	MaskedCardNumber     string             `json:"maskedCardNumber"`
	LastFourDigits       string             `json:"lastFourDigits"`
	TransactionReference string             `json:"transactionReference"`
	SecureService        string             `json:"secureService,omitempty"`
	SecureID             string             `json:"secureId,omitempty"`
	SecurityIdentity     []SecurityIdentity `json:"securityIdentity,omitempty"`
	ThreeDS              *ThreeDSDetail     `json:"3ds,omitempty"`
	KushkiInfo           *KushkiInfo        `json:"kushkiInfo,omitempty"`
	SessionID            string             `json:"sessionId,omitempty"`
	UserAgent            string             `json:"userAgent,omitempty"`
	IP                   string             `json:"ip,omitempty"`
	VaultToken           string             `json:"vaultToken,omitempty"`
	CreditInfo           *CreditInfo        `json:"creditInfo,omitempty"`
}

// CreditInfo is the bin-level credit type detected at tokenization
type CreditInfo struct {
	AccountType string `json:"accountType,omitempty"`
	CardType    string `json:"cardType,omitempty"`
}

// MerchantInfo is the merchant configuration needed by the pipeline
type MerchantInfo struct {
	MerchantID       string   `json:"public_id"`
	MerchantName     string   `json:"merchant_name"`
	Country          string   `json:"country"`
	SocialReason     string   `json:"social_reason"`
	TaxID            string   `json:"tax_id"`
	CategoryMerchant string   `json:"category_merchant"`
	Whitelist        []string `json:"whitelist,omitempty"`
	SiftScience      bool     `json:"sift_science"`
}

// Rule is a single rule-engine verdict
type Rule struct {
	Name    string `json:"name,omitempty"` // Partner label the rule belongs to (sift, transunion, ...)
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RuleResponse is the rule engine's decision for a transaction
type RuleResponse struct {
	Processor     string         `json:"processor"`
	PublicID      string         `json:"publicId"`
	Rules         []Rule         `json:"rules,omitempty"`
	SecureService string         `json:"secureService,omitempty"`
	SecureID      string         `json:"secureId,omitempty"`
	ThreeDS       *ThreeDSDetail `json:"3ds,omitempty"`
	Type          string         `json:"type,omitempty"`
	Partners      []string       `json:"partners,omitempty"`
}
