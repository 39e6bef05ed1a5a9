package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
)

// Sandbox serves the test processor. Its invoker answers locally.
type Sandbox struct{}

// NewSandbox creates the sandbox acquirer
func NewSandbox() *Sandbox { return &Sandbox{} }

// Type implements Acquirer
func (s *Sandbox) Type() domain.ProcessorType { return domain.ProcessorTypeSandbox }

// SandboxRequest is the sandbox wire request
type SandboxRequest struct {
	Amount               domain.ProcessorAmount `json:"amount"`
	Deferred             *domain.Deferred       `json:"deferred,omitempty"`
	TransactionReference string                 `json:"transactionReference"`
	Operation            string                 `json:"operation"`
	MerchantID           string                 `json:"merchantId"`
	Bin                  string                 `json:"bin,omitempty"`
	LastFourDigits       string                 `json:"lastFourDigits,omitempty"`
	CardHolderName       string                 `json:"cardHolderName,omitempty"`
	Brand                string                 `json:"brand,omitempty"`
	TicketNumber         string                 `json:"ticketNumber,omitempty"`
}

// SandboxResponse is the sandbox wire response
type SandboxResponse struct {
	TransactionID  string `json:"transactionId"`
	TicketNumber   string `json:"ticketNumber"`
	ApprovalCode   string `json:"approvalCode"`
	ApprovedAmount string `json:"approvedAmount"`
	ResponseCode   string `json:"responseCode"`
	ResponseText   string `json:"responseText"`
	IsDeferred     string `json:"isDeferred"`
}

// BuildRequest implements Acquirer
func (s *Sandbox) BuildRequest(in *Input) (*ports.ProcessorCall, error) {
	req := SandboxRequest{
		Amount:               in.Amount,
		Deferred:             in.Deferred,
		TransactionReference: in.TransactionReference,
		Operation:            OperationFor(in.Operation),
		Brand:                in.Brand(),
	}
	if in.Merchant != nil {
		req.MerchantID = in.Merchant.MerchantID
	}
	if in.Token != nil {
		req.LastFourDigits = in.Token.LastFourDigits
		req.CardHolderName = in.Token.CardHolderName
		req.Bin = binOf(in.Token)
	}
	if in.Original != nil {
		req.TicketNumber = in.Original.TicketNumber
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sandbox request: %w", err)
	}
	return &ports.ProcessorCall{
		ProcessorType: domain.ProcessorTypeSandbox,
		ProcessorName: in.Processor.ProcessorName,
		Operation:     req.Operation,
		Payload:       payload,
	}, nil
}

// ParseResponse implements Acquirer
func (s *Sandbox) ParseResponse(in *Input, raw *ports.RawResponse) (*domain.ProcessorResponse, error) {
	var resp SandboxResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox response: %w", err)
	}
	if raw.StatusCode >= 300 || resp.ResponseCode != "000" {
		return nil, &domain.UpstreamFailure{
			Code:          resp.ResponseCode,
			Message:       resp.ResponseText,
			TransactionID: resp.TransactionID,
			StatusCode:    raw.StatusCode,
		}
	}

	out := &domain.ProcessorResponse{
		TransactionDetails: domain.TransactionDetails{
			ApprovalCode:  resp.ApprovalCode,
			IsDeferred:    resp.IsDeferred,
			ProcessorName: in.Processor.ProcessorName,
		},
		TransactionID:        resp.TransactionID,
		TicketNumber:         resp.TicketNumber,
		ApprovedAmount:       resp.ApprovedAmount,
		ResponseCode:         resp.ResponseCode,
		ResponseText:         resp.ResponseText,
		TransactionReference: in.TransactionReference,
	}
	if in.Token != nil {
		out.TransactionDetails.BinCard = binOf(in.Token)
		out.TransactionDetails.LastFourDigitsOfCard = in.Token.LastFourDigits
		out.TransactionDetails.CardHolderName = in.Token.CardHolderName
	}
	return out, nil
}
