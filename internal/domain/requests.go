package domain

import "github.com/shopspring/decimal"

// SubscriptionTrigger tells how a subscription charge was started
type SubscriptionTrigger string

const (
	SubscriptionTriggerScheduled SubscriptionTrigger = "scheduled"
	SubscriptionTriggerOnDemand  SubscriptionTrigger = "onDemand"
)

// Deferred is the installment plan of a charge
type Deferred struct {
	GraceMonths string `json:"graceMonths"`
	CreditType  string `json:"creditType"`
	Months      int    `json:"months"`
}

// SubMerchant identifies the final merchant when charging on behalf of a payment facilitator
type SubMerchant struct {
	IDAffiliation  string `json:"idAffiliation"`
	SocialReason   string `json:"socialReason"`
	Address        string `json:"address"`
	City           string `json:"city"`
	CityCode       string `json:"cityCode,omitempty"`
	Zip            string `json:"zipCode"`
	CountryAns     string `json:"countryAns" validate:"required"`
	IDCompany      string `json:"idCompany"`
	SoftDescriptor string `json:"softDescriptor"`
	MCC            string `json:"mcc,omitempty"`
}

// ContactDetails of the card holder
type ContactDetails struct {
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string `json:"phoneNumber,omitempty"`
	DocumentType   string `json:"documentType,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
}

// BillingDetails is the card holder billing address
type BillingDetails struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

// ConvertedAmount is present when the charge went through currency conversion
type ConvertedAmount struct {
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// SubscriptionPlan describes the plan a subscription-validation charge belongs to
type SubscriptionPlan struct {
	PlanName    string `json:"planName,omitempty"`
	Periodicity string `json:"periodicity,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
}

// ChargeRequest is the canonical input of charge, preauthorization and account validation
type ChargeRequest struct {
	Amount                     Amount                 `json:"amount" validate:"required"`
	Metadata                   map[string]interface{} `json:"metadata,omitempty"`
	Deferred                   *Deferred              `json:"deferred,omitempty"`
	ThreeDomainSecure          *ThreeDSDetail         `json:"threeDomainSecure,omitempty"`
	SubMerchant                *SubMerchant           `json:"subMerchant,omitempty"`
	ContactDetails             *ContactDetails        `json:"contactDetails,omitempty"`
	BillingDetails             *BillingDetails        `json:"billingDetails,omitempty"`
	ConvertedAmount            *ConvertedAmount       `json:"convertedAmount,omitempty"`
	SubscriptionPlan           *SubscriptionPlan      `json:"subscriptionPlan,omitempty"`
	KushkiInfo                 *KushkiInfo            `json:"kushkiInfo,omitempty"`
	TokenID                    string                 `json:"token" validate:"required"`
	MerchantID                 string                 `json:"merchantId" validate:"required"`
	CVV                        string                 `json:"cvv,omitempty"`
	SubscriptionID             string                 `json:"subscriptionId,omitempty"`
	SubscriptionTrigger        SubscriptionTrigger    `json:"subscriptionTrigger,omitempty"`
	InitialRecurrenceReference string                 `json:"initialRecurrenceReference,omitempty"`
	ExternalReferenceID        string                 `json:"externalReferenceId,omitempty"`
	Channel                    string                 `json:"channel,omitempty"`
	Type                       TransactionType        `json:"-"`
	Months                     int                    `json:"months,omitempty"`
	IsCardValidation           bool                   `json:"isCardValidation,omitempty"`
	IsSubscriptionValidation   bool                   `json:"isSubscriptionValidation,omitempty"`
	IsInitialCof               bool                   `json:"isInitialCof,omitempty"`
	SiftValidation             bool                   `json:"siftValidation,omitempty"`
	RulesValidation            bool                   `json:"rulesValidation,omitempty"`
	IsFailoverRetry            bool                   `json:"-"`
}

// IsSubscription reports a charge originated by a subscription
func (r *ChargeRequest) IsSubscription() bool {
	return r.SubscriptionID != ""
}

// IsCardTransaction reports a charge made directly with a card token
func (r *ChargeRequest) IsCardTransaction() bool {
	return r.SubscriptionID == ""
}

// CaptureRequest captures a previous preauthorization
type CaptureRequest struct {
	Amount           *Amount                `json:"amount,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	TicketNumber     string                 `json:"ticketNumber" validate:"required"`
	MerchantID       string                 `json:"merchantId" validate:"required"`
	IsCardValidation bool                   `json:"isCardValidation,omitempty"`
}

// ReauthRequest extends the amount of a previous preauthorization
type ReauthRequest struct {
	Amount           Amount                 `json:"amount" validate:"required"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	TicketNumber     string                 `json:"ticketNumber" validate:"required"`
	MerchantID       string                 `json:"merchantId" validate:"required"`
	IsCardValidation bool                   `json:"isCardValidation,omitempty"`
}

// VoidRequest cancels a previous transaction
type VoidRequest struct {
	Amount       *Amount `json:"amount,omitempty"`
	TicketNumber string  `json:"ticketNumber" validate:"required"`
	MerchantID   string  `json:"merchantId" validate:"required"`
}

// DeclineRequest records a transaction rejected before reaching a processor
type DeclineRequest struct {
	Amount         Amount                 `json:"amount" validate:"required"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Rules          []Rule                 `json:"rules,omitempty"`
	Security       *SecurityBlock         `json:"security,omitempty"`
	TokenID        string                 `json:"token,omitempty"`
	Bin            string                 `json:"bin,omitempty"`
	LastFour       string                 `json:"lastFourDigits,omitempty"`
	MerchantID     string                 `json:"merchantId" validate:"required"`
	ResponseCode   string                 `json:"responseCode" validate:"required"`
	ResponseText   string                 `json:"responseText" validate:"required"`
	SubscriptionID string                 `json:"subscriptionId,omitempty"`
}

// RecordRequest brings a late acquirer outcome into the transaction store
type RecordRequest struct {
	TransactionID        string          `json:"transactionId" validate:"required"`
	TransactionReference string          `json:"transactionReference" validate:"required"`
	TicketNumber         string          `json:"ticketNumber,omitempty"`
	ApprovalCode         string          `json:"approvalCode,omitempty"`
	ResponseCode         string          `json:"responseCode"`
	ResponseText         string          `json:"responseText"`
	ApprovedAmount       decimal.Decimal `json:"approvedAmount"`
	Approved             bool            `json:"approved"`
}

// ChargeMetadata is the charge context stored before a processor is invoked
type ChargeMetadata struct {
	TransactionReference string  `json:"transaction_reference"`
	MerchantID           string  `json:"merchant_id"`
	TokenID              string  `json:"token"`
	Bin                  string  `json:"bin"`
	LastFourDigits       string  `json:"last_four_digits"`
	CardHolderName       string  `json:"card_holder_name"`
	ProcessorID          string  `json:"processor_id"`
	Currency             string  `json:"currency_code"`
	RequestAmount        float64 `json:"request_amount"`
	SubtotalIVA          float64 `json:"subtotal_iva"`
	SubtotalIVA0         float64 `json:"subtotal_iva0"`
	IVA                  float64 `json:"iva_value"`
	Method               string  `json:"method"`
	Created              int64   `json:"created"`
}
