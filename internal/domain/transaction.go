package domain

import (
	"strings"
)

// TransactionStatus is the outcome recorded for a transaction
type TransactionStatus string

const (
	TransactionStatusApproval    TransactionStatus = "APPROVAL"
	TransactionStatusDeclined    TransactionStatus = "DECLINED"
	TransactionStatusInitialized TransactionStatus = "INITIALIZED"
)

// TransactionType is the operation a transaction represents
type TransactionType string

const (
	TransactionTypeSale              TransactionType = "SALE"
	TransactionTypeDeferred          TransactionType = "DEFERRED"
	TransactionTypePreauthorization  TransactionType = "PREAUTHORIZATION"
	TransactionTypeReauthorization   TransactionType = "REAUTHORIZATION"
	TransactionTypeCapture           TransactionType = "CAPTURE"
	TransactionTypeVoid              TransactionType = "VOID"
	TransactionTypeAccountValidation TransactionType = "VALIDATE_ACCOUNT"
)

// Method returns the lowercase invocation method recorded with the transaction
func (t TransactionType) Method() string {
	switch t {
	case TransactionTypeSale:
		return "charge"
	case TransactionTypeDeferred:
		return "deferred"
	case TransactionTypePreauthorization:
		return "preAuthorization"
	case TransactionTypeReauthorization:
		return "reauthorization"
	case TransactionTypeCapture:
		return "capture"
	case TransactionTypeVoid:
		return "void"
	case TransactionTypeAccountValidation:
		return "validateAccount"
	}
	return strings.ToLower(string(t))
}

// IsChargeLike reports operations that move money on the card
func (t TransactionType) IsChargeLike() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeDeferred, TransactionTypePreauthorization,
		TransactionTypeReauthorization, TransactionTypeCapture:
		return true
	}
	return false
}

// ProcessorDetail is the acquirer's own response code/message
type ProcessorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transaction is the persisted transaction record
type Transaction struct {
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	Processor                 *ProcessorDetail       `json:"processor,omitempty"`
	Security                  *SecurityBlock         `json:"security,omitempty"`
	KushkiInfo                *KushkiInfo            `json:"kushkiInfo,omitempty"`
	ContactDetails            *ContactDetails        `json:"contact_details,omitempty"`
	SubMerchant               *SubMerchant           `json:"sub_merchant,omitempty"`
	ConvertedAmount           *ConvertedAmount       `json:"-"`
	SubscriptionPlan          *SubscriptionPlan      `json:"subscription_plan,omitempty"`
	Rules                     []Rule                 `json:"rules,omitempty"`
	SecurityIdentity          []SecurityIdentity     `json:"securityIdentity,omitempty"`
	TransactionID             string                 `json:"transaction_id"`
	TransactionReference      string                 `json:"transaction_reference"`
	TicketNumber              string                 `json:"ticket_number,omitempty"`
	SaleTicketNumber          string                 `json:"sale_ticket_number,omitempty"`
	MerchantID                string                 `json:"merchant_id"`
	MerchantName              string                 `json:"merchant_name"`
	Country                   string                 `json:"country,omitempty"`
	ProcessorID               string                 `json:"processor_id"`
	ProcessorName             string                 `json:"processor_name"`
	ProcessorType             ProcessorType          `json:"processor_type"`
	ProcessorBankName         string                 `json:"processor_bank_name,omitempty"`
	ProcessorMerchantID       string                 `json:"processor_merchant_id,omitempty"`
	CurrencyCode              string                 `json:"currency_code"`
	TransactionStatus         TransactionStatus      `json:"transaction_status"`
	TransactionType           TransactionType        `json:"transaction_type"`
	Method                    string                 `json:"method,omitempty"`
	ResponseCode              string                 `json:"response_code,omitempty"`
	ResponseText              string                 `json:"response_text,omitempty"`
	ApprovalCode              string                 `json:"approval_code,omitempty"`
	Recap                     string                 `json:"recap,omitempty"`
	PaymentBrand              string                 `json:"payment_brand,omitempty"`
	CardType                  string                 `json:"card_type,omitempty"`
	CardTypeBin               string                 `json:"card_type_bin,omitempty"`
	BinCard                   string                 `json:"bin_card,omitempty"`
	LastFourDigits            string                 `json:"last_four_digits,omitempty"`
	CardHolderName            string                 `json:"card_holder_name,omitempty"`
	IssuingBank               string                 `json:"issuing_bank,omitempty"`
	CardCountry               string                 `json:"card_country,omitempty"`
	CardCountryCode           string                 `json:"card_country_code,omitempty"`
	AccountType               string                 `json:"account_type,omitempty"`
	CreditType                string                 `json:"credit_type,omitempty"`
	GraceMonths               string                 `json:"grace_months,omitempty"`
	TokenID                   string                 `json:"token,omitempty"`
	SubscriptionID            string                 `json:"subscription_id,omitempty"`
	SubscriptionTrigger       string                 `json:"subscription_trigger,omitempty"`
	SecureCode                string                 `json:"secure_code,omitempty"`
	SecureMessage             string                 `json:"secure_message,omitempty"`
	SocialReason              string                 `json:"social_reason,omitempty"`
	CategoryMerchant          string                 `json:"category_merchant,omitempty"`
	TaxID                     string                 `json:"tax_id,omitempty"`
	ExternalReferenceID       string                 `json:"external_reference_id,omitempty"`
	Channel                   string                 `json:"channel,omitempty"`
	SubscriptionCreation      string                 `json:"subscription_creation_status,omitempty"`
	RequestAmount             float64                `json:"request_amount"`
	ApprovedTransactionAmount float64                `json:"approved_transaction_amount"`
	SubtotalIVA               float64                `json:"subtotal_iva"`
	SubtotalIVA0              float64                `json:"subtotal_iva0"`
	IVAValue                  float64                `json:"iva_value"`
	ICEValue                  float64                `json:"ice_value"`
	Created                   int64                  `json:"created"`
	NumberOfMonths            int                    `json:"number_of_months,omitempty"`
	ForeignCard               bool                   `json:"foreign_card"`
	IsSubscriptionValidation  bool                   `json:"is_subscription_validation,omitempty"`
	IsInitialCof              bool                   `json:"is_initial_cof,omitempty"`
}

// IsApproved returns true if the transaction was approved
func (t *Transaction) IsApproved() bool {
	return t.TransactionStatus == TransactionStatusApproval
}

// IsDeclined returns true if the transaction was declined, directly or by subscription creation
func (t *Transaction) IsDeclined() bool {
	return t.TransactionStatus == TransactionStatusDeclined ||
		TransactionStatus(strings.ToUpper(t.SubscriptionCreation)) == TransactionStatusDeclined
}

// Clone returns a shallow copy safe to strip fields from
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// TransactionDetails is the nested detail block of an acquirer approval
type TransactionDetails struct {
	ApprovalCode         string `json:"approvalCode"`
	BinCard              string `json:"binCard"`
	CardHolderName       string `json:"cardholderName"`
	CardType             string `json:"cardType"`
	IsDeferred           string `json:"isDeferred"`
	LastFourDigitsOfCard string `json:"lastFourDigitsOfCard"`
	MerchantName         string `json:"merchantName"`
	ProcessorBankName    string `json:"processorBankName"`
	ProcessorName        string `json:"processorName"`
	ProcessorCode        string `json:"processorCode,omitempty"`
	ProcessorMessage     string `json:"processorMessage,omitempty"`
}

// ProcessorResponse is the normalized success response of any acquirer
type ProcessorResponse struct {
	TransactionDetails   TransactionDetails `json:"transaction_details"`
	TransactionID        string             `json:"transaction_id"`
	TicketNumber         string             `json:"ticket_number"`
	ApprovedAmount       string             `json:"approved_amount"`
	ResponseCode         string             `json:"response_code"`
	ResponseText         string             `json:"response_text"`
	RecapID              string             `json:"recap"`
	TransactionReference string             `json:"transaction_reference,omitempty"`
}

// IsDeferred reports the acquirer flagged the sale as deferred
func (r *ProcessorResponse) IsDeferred() bool {
	return r != nil && r.TransactionDetails.IsDeferred == "Y"
}
