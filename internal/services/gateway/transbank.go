package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/shopspring/decimal"
)

const transbankAuthorized = "AUTHORIZED"

// Transbank serves the Chilean acquirer, which takes plain JSON with integer CLP amounts
type Transbank struct{}

// NewTransbank creates the Transbank acquirer
func NewTransbank() *Transbank { return &Transbank{} }

// Type implements Acquirer
func (t *Transbank) Type() domain.ProcessorType { return domain.ProcessorTypeTransbank }

type transbankRequest struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	SessionID          string `json:"session_id,omitempty"`
	CardToken          string `json:"card_token,omitempty"`
	AuthorizationCode  string `json:"authorization_code,omitempty"`
	Amount             int64  `json:"amount"`
	InstallmentsNumber int    `json:"installments_number,omitempty"`
	CaptureAmount      int64  `json:"capture_amount,omitempty"`
}

type transbankResponse struct {
	Status            string `json:"status"`
	BuyOrder          string `json:"buy_order"`
	AuthorizationCode string `json:"authorization_code"`
	CardNumber        string `json:"card_number"`
	PaymentTypeCode   string `json:"payment_type_code"`
	TransactionID     string `json:"transaction_id"`
	TicketNumber      string `json:"ticket_number"`
	ResponseText      string `json:"response_text"`
	Amount            int64  `json:"amount"`
	ResponseCode      *int   `json:"response_code"`
}

// BuildRequest implements Acquirer
func (t *Transbank) BuildRequest(in *Input) (*ports.ProcessorCall, error) {
	total, err := decimal.NewFromString(in.Amount.TotalAmount)
	if err != nil && in.Operation != domain.TransactionTypeVoid {
		return nil, fmt.Errorf("invalid transbank amount %q: %w", in.Amount.TotalAmount, err)
	}

	req := transbankRequest{
		CommerceCode: in.Processor.ProcessorMerchantID,
		BuyOrder:     in.TransactionReference,
		Amount:       total.Round(0).IntPart(),
	}

	switch in.Operation {
	case domain.TransactionTypeCapture, domain.TransactionTypeVoid, domain.TransactionTypeReauthorization:
		if in.Original == nil {
			return nil, fmt.Errorf("%s requires the original transaction", in.Operation)
		}
		req.BuyOrder = in.Original.TransactionReference
		req.AuthorizationCode = in.Original.ApprovalCode
		if in.Operation == domain.TransactionTypeCapture {
			req.CaptureAmount = req.Amount
		}
	default:
		if in.Token != nil {
			req.CardToken = in.Token.VaultToken
			req.SessionID = in.Token.SessionID
		}
		if in.Deferred != nil {
			req.InstallmentsNumber = in.Deferred.Months
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transbank request: %w", err)
	}

	return &ports.ProcessorCall{
		ProcessorType: domain.ProcessorTypeTransbank,
		ProcessorName: in.Processor.ProcessorName,
		Operation:     OperationFor(in.Operation),
		Payload:       payload,
		Headers:       map[string]string{"Content-Type": "application/json"},
	}, nil
}

// ParseResponse implements Acquirer
func (t *Transbank) ParseResponse(in *Input, raw *ports.RawResponse) (*domain.ProcessorResponse, error) {
	var resp transbankResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil && raw.StatusCode < 300 {
		return nil, fmt.Errorf("failed to decode transbank response: %w", err)
	}

	// A failure without response_code keeps an empty code: "000" means approved.
	code := ""
	if resp.ResponseCode != nil {
		code = fmt.Sprintf("%03d", *resp.ResponseCode)
	}
	approved := raw.StatusCode < 300 && resp.Status == transbankAuthorized && (code == "" || code == "000")
	if !approved {
		if code == "000" {
			code = ""
		}
		body := map[string]interface{}{}
		_ = json.Unmarshal(raw.Body, &body)
		return nil, &domain.UpstreamFailure{
			Body:          body,
			Code:          code,
			Message:       resp.ResponseText,
			TransactionID: resp.TransactionID,
			TicketNumber:  resp.TicketNumber,
			StatusCode:    raw.StatusCode,
		}
	}

	isDeferred := "N"
	if resp.PaymentTypeCode != "" && resp.PaymentTypeCode != "VN" && resp.PaymentTypeCode != "VD" {
		isDeferred = "Y"
	}

	return &domain.ProcessorResponse{
		TransactionDetails: domain.TransactionDetails{
			ApprovalCode:  resp.AuthorizationCode,
			IsDeferred:    isDeferred,
			ProcessorName: in.Processor.ProcessorName,
		},
		TransactionID:        resp.TransactionID,
		TicketNumber:         resp.TicketNumber,
		ApprovedAmount:       strconv.FormatInt(resp.Amount, 10),
		ResponseCode:         "000",
		ResponseText:         resp.ResponseText,
		TransactionReference: in.TransactionReference,
	}, nil
}
