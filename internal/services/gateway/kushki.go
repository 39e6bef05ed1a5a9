package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
)

// Kushki-ACQ transaction statuses
const (
	kushkiStatusApproved = "approved"
	kushkiStatusDeclined = "declined"
)

// KushkiAcq serves the in-house acquirer invoked as a function
type KushkiAcq struct{}

// NewKushkiAcq creates the Kushki-ACQ acquirer
func NewKushkiAcq() *KushkiAcq { return &KushkiAcq{} }

// Type implements Acquirer
func (k *KushkiAcq) Type() domain.ProcessorType { return domain.ProcessorTypeKushki }

type kushkiThreeDS struct {
	Cavv                 string `json:"cavv,omitempty"`
	Eci                  string `json:"eci,omitempty"`
	Xid                  string `json:"xid,omitempty"`
	Version              string `json:"version,omitempty"`
	DirectoryServerTrxID string `json:"directory_server_transaction_id,omitempty"`
	AcceptRisk           bool   `json:"accept_risk,omitempty"`
	External             bool   `json:"external"`
}

type kushkiAmexInfo struct {
	CardHolderName string `json:"cardholder_name,omitempty"`
	Address        string `json:"address,omitempty"`
	ZipCode        string `json:"zip_code,omitempty"`
	Email          string `json:"email,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
}

type kushkiSubMerchant struct {
	IDAffiliation  string `json:"id_affiliation,omitempty"`
	SocialReason   string `json:"social_reason,omitempty"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	CityCode       string `json:"city_code,omitempty"`
	ZipCode        string `json:"zip_code,omitempty"`
	CountryAns     string `json:"country_ans"`
	IDCompany      string `json:"id_company,omitempty"`
	SoftDescriptor string `json:"soft_descriptor,omitempty"`
	MCC            string `json:"mcc,omitempty"`
}

type kushkiDeferred struct {
	CreditType  string `json:"credit_type"`
	GraceMonths string `json:"grace_months"`
	Months      int    `json:"months"`
}

type kushkiRequest struct {
	Amount                     domain.ProcessorAmount `json:"amount"`
	ThreeDS                    *kushkiThreeDS         `json:"3ds,omitempty"`
	AmexInfo                   *kushkiAmexInfo        `json:"amex_info,omitempty"`
	SubMerchant                *kushkiSubMerchant     `json:"sub_merchant,omitempty"`
	Deferred                   *kushkiDeferred        `json:"deferred,omitempty"`
	Metadata                   map[string]interface{} `json:"metadata,omitempty"`
	TransactionReference       string                 `json:"transaction_reference"`
	TransactionType            string                 `json:"transaction_type"`
	MerchantID                 string                 `json:"merchant_id"`
	MerchantName               string                 `json:"merchant_name,omitempty"`
	ProcessorID                string                 `json:"processor_id"`
	ProcessorMerchantID        string                 `json:"processor_merchant_id,omitempty"`
	TerminalID                 string                 `json:"terminal_id,omitempty"`
	MCC                        string                 `json:"mcc,omitempty"`
	Currency                   string                 `json:"currency"`
	VaultToken                 string                 `json:"vault_token,omitempty"`
	Brand                      string                 `json:"brand,omitempty"`
	Bin                        string                 `json:"bin,omitempty"`
	LastFourDigits             string                 `json:"last_four_digits,omitempty"`
	CardType                   string                 `json:"card_type,omitempty"`
	CVV2                       string                 `json:"cvv2,omitempty"`
	TicketNumber               string                 `json:"ticket_number,omitempty"`
	SubscriptionTrigger        string                 `json:"subscription_trigger,omitempty"`
	InitialRecurrenceReference string                 `json:"initial_recurrence_reference,omitempty"`
	IsCardValidation           bool                   `json:"is_card_validation,omitempty"`
	IsSubscription             bool                   `json:"is_subscription"`
	IsInitialCof               bool                   `json:"is_initial_cof,omitempty"`
}

type kushkiResponse struct {
	MessageFields        map[string]interface{} `json:"message_fields,omitempty"`
	ApprovalCode         string                 `json:"approval_code"`
	ReferenceNumber      string                 `json:"reference_number"`
	ResponseCode         string                 `json:"response_code"`
	ResponseText         string                 `json:"response_text"`
	TransactionStatus    string                 `json:"transaction_status"`
	TransactionType      string                 `json:"transaction_type"`
	TransactionReference string                 `json:"transaction_reference"`
	TransactionID        string                 `json:"transaction_id"`
	TicketNumber         string                 `json:"ticket_number"`
	ApprovedAmount       string                 `json:"approved_amount"`
	CardType             string                 `json:"card_type"`
	IsDeferred           string                 `json:"is_deferred"`
	Recap                string                 `json:"recap"`
	ErrorMessage         string                 `json:"errorMessage,omitempty"`
}

// BuildRequest implements Acquirer
func (k *KushkiAcq) BuildRequest(in *Input) (*ports.ProcessorCall, error) {
	req := kushkiRequest{
		Amount:               in.Amount,
		Metadata:             in.Metadata,
		TransactionReference: in.TransactionReference,
		TransactionType:      OperationFor(in.Operation),
		ProcessorID:          in.Processor.ProcessorID,
		ProcessorMerchantID:  in.Processor.ProcessorMerchantID,
		TerminalID:           in.Processor.TerminalID,
		MCC:                  in.Processor.MerchantCategory,
		Currency:             in.Currency,
		CVV2:                 in.CVV,
	}
	if in.Merchant != nil {
		req.MerchantID = in.Merchant.MerchantID
		req.MerchantName = in.Merchant.MerchantName
	}
	if in.Token != nil {
		req.VaultToken = in.Token.VaultToken
		req.LastFourDigits = in.Token.LastFourDigits
		if b := in.Token.BinInfo; b != nil {
			req.Brand = normalizeBrand(b.Brand)
			req.Bin = b.Bin
			req.CardType = b.CardType
		}
	}
	if in.Original != nil {
		req.TicketNumber = in.Original.TicketNumber
		if req.Bin == "" {
			req.Bin = in.Original.BinCard
			req.Brand = normalizeBrand(in.Original.PaymentBrand)
			req.LastFourDigits = in.Original.LastFourDigits
		}
	}
	if in.Deferred != nil {
		req.Deferred = &kushkiDeferred{
			CreditType:  in.Deferred.CreditType,
			GraceMonths: in.Deferred.GraceMonths,
			Months:      in.Deferred.Months,
		}
	}

	if c := in.Charge; c != nil {
		req.IsCardValidation = c.IsCardValidation
		req.IsSubscription = c.IsSubscription()
		req.SubscriptionTrigger = string(c.SubscriptionTrigger)
		req.IsInitialCof = c.IsInitialCof
		req.InitialRecurrenceReference = c.InitialRecurrenceReference
		req.ThreeDS = threeDSFor(c, in.Token)
		req.SubMerchant = subMerchantFor(c.SubMerchant)
		if domain.IsAmexFamily(req.Brand) && in.Merchant != nil && isMexico(in.Merchant.Country) {
			req.AmexInfo = amexInfoFor(c, in.Token)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal kushki request: %w", err)
	}

	return &ports.ProcessorCall{
		ProcessorType: domain.ProcessorTypeKushki,
		ProcessorName: in.Processor.ProcessorName,
		Operation:     req.TransactionType,
		Payload:       payload,
	}, nil
}

// threeDSFor prefers the merchant-supplied 3DS block over the token's own authentication
func threeDSFor(c *domain.ChargeRequest, token *domain.TokenInfo) *kushkiThreeDS {
	detail, external := c.ThreeDomainSecure, true
	if detail == nil && token != nil {
		detail, external = token.ThreeDS, false
	}
	if detail == nil {
		return nil
	}
	return &kushkiThreeDS{
		Cavv:                 detail.Cavv,
		Eci:                  detail.Eci,
		Xid:                  detail.Xid,
		Version:              detail.Version,
		DirectoryServerTrxID: detail.DirectoryServerTrxID,
		AcceptRisk:           detail.AcceptRisk,
		External:             external,
	}
}

func subMerchantFor(s *domain.SubMerchant) *kushkiSubMerchant {
	if s == nil {
		return nil
	}
	return &kushkiSubMerchant{
		IDAffiliation:  s.IDAffiliation,
		SocialReason:   s.SocialReason,
		Address:        s.Address,
		City:           s.City,
		CityCode:       s.CityCode,
		ZipCode:        s.Zip,
		CountryAns:     s.CountryAns,
		IDCompany:      s.IDCompany,
		SoftDescriptor: s.SoftDescriptor,
		MCC:            s.MCC,
	}
}

func amexInfoFor(c *domain.ChargeRequest, token *domain.TokenInfo) *kushkiAmexInfo {
	info := &kushkiAmexInfo{}
	if token != nil {
		info.CardHolderName = token.CardHolderName
	}
	if b := c.BillingDetails; b != nil {
		info.Address = b.Address
		info.ZipCode = b.ZipCode
	}
	if cd := c.ContactDetails; cd != nil {
		info.Email = cd.Email
		info.PhoneNumber = cd.Phone
	}
	return info
}

// ParseResponse implements Acquirer. Declines are normalized here to K006
// carrying the raw acquirer answer; any other failure is K002.
func (k *KushkiAcq) ParseResponse(in *Input, raw *ports.RawResponse) (*domain.ProcessorResponse, error) {
	var resp kushkiResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeUnexpected, fmt.Errorf("failed to decode kushki response: %w", err))
	}

	switch strings.ToLower(resp.TransactionStatus) {
	case kushkiStatusApproved:
		if raw.StatusCode < 300 {
			return k.toProcessorResponse(in, &resp), nil
		}
	case kushkiStatusDeclined:
		var rawBody map[string]interface{}
		_ = json.Unmarshal(raw.Body, &rawBody)
		return nil, domain.NewDomainError(domain.ErrorCodeDeclined).WithDetails(map[string]interface{}{
			"kushki_response":       rawBody,
			"message_fields":        resp.MessageFields,
			"reference_number":      resp.ReferenceNumber,
			"transaction_reference": resp.TransactionReference,
			"transaction_status":    resp.TransactionStatus,
			"transaction_type":      resp.TransactionType,
			"response_code":         resp.ResponseCode,
			"response_text":         resp.ResponseText,
			"processorName":         in.Processor.ProcessorName,
		})
	}

	msg := resp.ErrorMessage
	if msg == "" {
		msg = fmt.Sprintf("unexpected kushki status %q (http %d)", resp.TransactionStatus, raw.StatusCode)
	}
	return nil, domain.WrapError(domain.ErrorCodeUnexpected, fmt.Errorf("%s", msg))
}

func (k *KushkiAcq) toProcessorResponse(in *Input, resp *kushkiResponse) *domain.ProcessorResponse {
	isDeferred := resp.IsDeferred
	if isDeferred == "" {
		isDeferred = "N"
	}
	ref := resp.TransactionReference
	if ref == "" {
		ref = in.TransactionReference
	}

	out := &domain.ProcessorResponse{
		TransactionDetails: domain.TransactionDetails{
			ApprovalCode:     resp.ApprovalCode,
			CardType:         resp.CardType,
			IsDeferred:       isDeferred,
			ProcessorName:    in.Processor.ProcessorName,
			ProcessorCode:    resp.ResponseCode,
			ProcessorMessage: resp.ResponseText,
		},
		TransactionID:        resp.TransactionID,
		TicketNumber:         resp.TicketNumber,
		ApprovedAmount:       resp.ApprovedAmount,
		ResponseCode:         "000",
		ResponseText:         "Transacción aprobada",
		RecapID:              resp.Recap,
		TransactionReference: ref,
	}
	if in.Token != nil {
		out.TransactionDetails.BinCard = binOf(in.Token)
		out.TransactionDetails.LastFourDigitsOfCard = in.Token.LastFourDigits
		out.TransactionDetails.CardHolderName = in.Token.CardHolderName
	}
	if in.Merchant != nil {
		out.TransactionDetails.MerchantName = in.Merchant.MerchantName
	}
	return out
}

func binOf(t *domain.TokenInfo) string {
	if t.BinInfo != nil {
		return t.BinInfo.Bin
	}
	return ""
}
