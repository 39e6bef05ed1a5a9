package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
)

// Encryptor encrypts outbound payloads
type Encryptor interface {
	Encrypt(payload string) (string, error)
}

// Aurus serves every processor reached through the Aurus switch
type Aurus struct {
	encryptor Encryptor
}

// NewAurus creates the Aurus acquirer. encryptor may be nil only in tests
// that never build a request.
func NewAurus(encryptor Encryptor) *Aurus {
	return &Aurus{encryptor: encryptor}
}

// Type implements Acquirer
func (a *Aurus) Type() domain.ProcessorType { return domain.ProcessorTypeAurus }

type aurusRequest struct {
	Amount               *domain.ProcessorAmount `json:"transaction_amount,omitempty"`
	Metadata             map[string]interface{}  `json:"metadata,omitempty"`
	MerchantIdentifier   string                  `json:"merchant_identifier"`
	LanguageIndicator    string                  `json:"language_indicator"`
	TransactionToken     string                  `json:"transaction_token,omitempty"`
	TransactionReference string                  `json:"transaction_reference"`
	TicketNumber         string                  `json:"ticket_number,omitempty"`
	CurrencyCode         string                  `json:"currency_code,omitempty"`
	CVV                  string                  `json:"cvv,omitempty"`
	CreditType           string                  `json:"credit_type,omitempty"`
	GraceMonths          string                  `json:"grace_months,omitempty"`
	Months               int                     `json:"months,omitempty"`
	Plcc                 string                  `json:"plcc"`

	// Elavon billing address
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type aurusEnvelope struct {
	Request string `json:"request"`
}

type aurusResponse struct {
	TransactionDetails domain.TransactionDetails `json:"transaction_details"`
	TransactionID      string                    `json:"transaction_id"`
	TicketNumber       string                    `json:"ticket_number"`
	ApprovedAmount     string                    `json:"approved_amount"`
	ResponseCode       string                    `json:"response_code"`
	ResponseText       string                    `json:"response_text"`
	Recap              string                    `json:"recap"`
}

// BuildRequest implements Acquirer
func (a *Aurus) BuildRequest(in *Input) (*ports.ProcessorCall, error) {
	req := aurusRequest{
		Metadata:             in.Metadata,
		MerchantIdentifier:   in.Processor.PrivateID,
		LanguageIndicator:    "es",
		TransactionReference: in.TransactionReference,
		CurrencyCode:         in.Currency,
		CVV:                  in.CVV,
		Plcc:                 "0",
	}

	switch in.Operation {
	case domain.TransactionTypeCapture, domain.TransactionTypeVoid, domain.TransactionTypeReauthorization:
		if in.Original == nil {
			return nil, fmt.Errorf("%s requires the original transaction", in.Operation)
		}
		req.TicketNumber = in.Original.TicketNumber
		// A void without an amount reverses the full original.
		if in.Operation != domain.TransactionTypeVoid || in.PartialAmount {
			amount := in.Amount
			req.Amount = &amount
		}
	default:
		amount := in.Amount
		req.Amount = &amount
		if in.Token != nil {
			req.TransactionToken = in.Token.ID
		}
	}

	if in.Deferred != nil {
		req.CreditType = in.Deferred.CreditType
		req.GraceMonths = in.Deferred.GraceMonths
		req.Months = in.Deferred.Months
	}

	if in.Processor.ProcessorName == domain.ProcessorNameElavon && in.Charge != nil {
		applyElavonAddress(&req, in.Charge)
	}

	plain, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aurus request: %w", err)
	}
	if a.encryptor == nil {
		return nil, domain.NewConfigurationError("aurus encryptor is not configured")
	}
	encrypted, err := a.encryptor.Encrypt(string(plain))
	if err != nil {
		return nil, domain.NewConfigurationError("failed to encrypt aurus request: %v", err)
	}

	payload, err := json.Marshal(aurusEnvelope{Request: encrypted})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aurus envelope: %w", err)
	}

	return &ports.ProcessorCall{
		ProcessorType: domain.ProcessorTypeAurus,
		ProcessorName: in.Processor.ProcessorName,
		Operation:     OperationFor(in.Operation),
		Payload:       payload,
		Headers:       map[string]string{"Content-Type": "application/json"},
	}, nil
}

func applyElavonAddress(req *aurusRequest, charge *domain.ChargeRequest) {
	if b := charge.BillingDetails; b != nil {
		req.Address = b.Address
		req.City = b.City
		req.State = b.Region
		req.Country = b.Country
		req.ZipCode = b.ZipCode
	}
	if c := charge.ContactDetails; c != nil {
		req.Email = c.Email
		req.FirstName = c.FirstName
		req.LastName = c.LastName
	}
}

// ParseResponse implements Acquirer
func (a *Aurus) ParseResponse(in *Input, raw *ports.RawResponse) (*domain.ProcessorResponse, error) {
	var resp aurusResponse
	if len(raw.Body) > 0 {
		if err := json.Unmarshal(raw.Body, &resp); err != nil && raw.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode aurus response: %w", err)
		}
	}

	if raw.StatusCode >= 300 || (resp.ResponseCode != "" && resp.ResponseCode != "000") {
		body := map[string]interface{}{}
		_ = json.Unmarshal(raw.Body, &body)
		return nil, &domain.UpstreamFailure{
			Body:          body,
			Code:          resp.ResponseCode,
			Message:       resp.ResponseText,
			TransactionID: resp.TransactionID,
			TicketNumber:  resp.TicketNumber,
			StatusCode:    raw.StatusCode,
		}
	}

	return &domain.ProcessorResponse{
		TransactionDetails:   resp.TransactionDetails,
		TransactionID:        resp.TransactionID,
		TicketNumber:         resp.TicketNumber,
		ApprovedAmount:       resp.ApprovedAmount,
		ResponseCode:         resp.ResponseCode,
		ResponseText:         resp.ResponseText,
		RecapID:              resp.Recap,
		TransactionReference: in.TransactionReference,
	}, nil
}
