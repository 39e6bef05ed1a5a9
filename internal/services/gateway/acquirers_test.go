package gateway_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/gateway"
	"github.com/kevin07696/card-gateway/internal/testutil/fixtures"
	"github.com/kevin07696/card-gateway/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainEncryptor records the plaintext and returns it with a marker prefix
type plainEncryptor struct {
	plain string
	err   error
}

func (p *plainEncryptor) Encrypt(payload string) (string, error) {
	p.plain = payload
	return "enc:" + payload, p.err
}

func chargeInput(processor *domain.ProcessorInfo) *gateway.Input {
	return &gateway.Input{
		Token:                fixtures.NewToken().Build(),
		Merchant:             fixtures.NewMerchant().Build(),
		Processor:            processor,
		Charge:               fixtures.NewCharge().Build(),
		Amount:               domain.ProcessorAmount{ICE: "0.00", IVA: "12.00", SubtotalIVA: "100.00", SubtotalIVA0: "0.00", TotalAmount: "112.00"},
		Currency:             "USD",
		Operation:            domain.TransactionTypeSale,
		TransactionReference: "ref-0001",
	}
}

func TestRegistry_For(t *testing.T) {
	r := gateway.NewRegistry(gateway.NewAurus(nil), gateway.NewKushkiAcq())

	a, err := r.For(&domain.ProcessorInfo{})
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessorTypeAurus, a.Type())

	a, err = r.For(fixtures.KushkiProcessor())
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessorTypeKushki, a.Type())

	_, err = r.Get(domain.ProcessorTypeTransbank)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestAurus_BuildRequestEncryptsPayload(t *testing.T) {
	enc := &plainEncryptor{}
	in := chargeInput(fixtures.NewProcessor().Build())
	in.Deferred = &domain.Deferred{CreditType: "02", GraceMonths: "0", Months: 3}
	in.CVV = "123"

	call, err := gateway.NewAurus(enc).BuildRequest(in)
	require.NoError(t, err)
	assert.Equal(t, gateway.OpCharge, call.Operation)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(call.Payload, &envelope))
	assert.True(t, strings.HasPrefix(envelope["request"], "enc:"))

	var plain map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(enc.plain), &plain))
	assert.Equal(t, "proc-private-1", plain["merchant_identifier"])
	assert.Equal(t, "tok-0001", plain["transaction_token"])
	assert.Equal(t, "02", plain["credit_type"])
	assert.EqualValues(t, 3, plain["months"])
	assert.Equal(t, "112.00", plain["transaction_amount"].(map[string]interface{})["Total_amount"])
	assert.NotContains(t, plain, "address")
}

func TestAurus_ElavonAddsBillingAddress(t *testing.T) {
	enc := &plainEncryptor{}
	in := chargeInput(fixtures.NewProcessor().WithName(domain.ProcessorNameElavon).Build())
	in.Charge.BillingDetails = &domain.BillingDetails{Address: "Main St 1", City: "Quito", ZipCode: "170150"}
	in.Charge.ContactDetails = &domain.ContactDetails{Email: "jane@example.com"}

	_, err := gateway.NewAurus(enc).BuildRequest(in)
	require.NoError(t, err)

	var plain map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(enc.plain), &plain))
	assert.Equal(t, "Main St 1", plain["address"])
	assert.Equal(t, "jane@example.com", plain["email"])
}

func TestAurus_EncryptionFailureIsConfigurationError(t *testing.T) {
	enc := &plainEncryptor{err: crypto.ErrEmptyPayload}
	_, err := gateway.NewAurus(enc).BuildRequest(chargeInput(fixtures.NewProcessor().Build()))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestAurus_CaptureRequiresOriginal(t *testing.T) {
	in := chargeInput(fixtures.NewProcessor().Build())
	in.Operation = domain.TransactionTypeCapture
	in.Charge = nil

	_, err := gateway.NewAurus(&plainEncryptor{}).BuildRequest(in)
	assert.Error(t, err)

	in.Original = &domain.Transaction{TicketNumber: "T-1"}
	call, err := gateway.NewAurus(&plainEncryptor{}).BuildRequest(in)
	require.NoError(t, err)
	assert.Equal(t, gateway.OpCapture, call.Operation)
}

func TestAurus_VoidAmount(t *testing.T) {
	tests := []struct {
		name       string
		partial    bool
		wantAmount bool
	}{
		{name: "full void omits the amount", partial: false, wantAmount: false},
		{name: "partial void sends the amount", partial: true, wantAmount: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := chargeInput(fixtures.NewProcessor().Build())
			in.Operation = domain.TransactionTypeVoid
			in.Charge = nil
			in.Original = &domain.Transaction{TicketNumber: "T-1"}
			in.PartialAmount = tt.partial
			enc := &plainEncryptor{}

			_, err := gateway.NewAurus(enc).BuildRequest(in)
			require.NoError(t, err)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(enc.plain), &body))
			_, hasAmount := body["transaction_amount"]
			assert.Equal(t, tt.wantAmount, hasAmount)
			assert.Equal(t, "T-1", body["ticket_number"])
		})
	}
}

func TestAurus_ParseResponse(t *testing.T) {
	a := gateway.NewAurus(nil)
	in := chargeInput(fixtures.NewProcessor().Build())

	ok := &ports.RawResponse{StatusCode: 200, Body: []byte(`{
		"response_code":"000","response_text":"Transacción aprobada","transaction_id":"TX1",
		"ticket_number":"TK1","approved_amount":"112.00",
		"transaction_details":{"approvalCode":"A1","isDeferred":"Y","processorName":"Credimatic Processor"}}`)}
	resp, err := a.ParseResponse(in, ok)
	require.NoError(t, err)
	assert.Equal(t, "TX1", resp.TransactionID)
	assert.True(t, resp.IsDeferred())

	failed := &ports.RawResponse{StatusCode: 400, Body: []byte(`{"response_code":"1007","response_text":"Failover","transaction_id":"TX2"}`)}
	_, err = a.ParseResponse(in, failed)
	var uf *domain.UpstreamFailure
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "1007", uf.Code)
	assert.Equal(t, 400, uf.StatusCode)
	assert.Equal(t, "TX2", uf.TransactionID)
}

func TestTransbank_BuildAndParse(t *testing.T) {
	tb := gateway.NewTransbank()
	in := chargeInput(fixtures.NewProcessor().WithName(domain.ProcessorNameTransbank).WithType(domain.ProcessorTypeTransbank).Build())
	in.Amount.TotalAmount = "15000.40"
	in.Deferred = &domain.Deferred{Months: 3}

	call, err := tb.BuildRequest(in)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(call.Payload, &body))
	assert.EqualValues(t, 15000, body["amount"])
	assert.EqualValues(t, 3, body["installments_number"])
	assert.Equal(t, "ref-0001", body["buy_order"])

	resp, err := tb.ParseResponse(in, &ports.RawResponse{StatusCode: 200, Body: []byte(`{"status":"AUTHORIZED","response_code":0,"authorization_code":"1213","payment_type_code":"S3","amount":15000}`)})
	require.NoError(t, err)
	assert.Equal(t, "000", resp.ResponseCode)
	assert.True(t, resp.IsDeferred())

	_, err = tb.ParseResponse(in, &ports.RawResponse{StatusCode: 200, Body: []byte(`{"status":"FAILED","response_code":-1,"response_text":"Rechazo"}`)})
	var uf *domain.UpstreamFailure
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "Rechazo", uf.Message)
}

func TestTransbank_ParseFailureCodes(t *testing.T) {
	tb := gateway.NewTransbank()
	in := chargeInput(fixtures.NewProcessor().WithName(domain.ProcessorNameTransbank).WithType(domain.ProcessorTypeTransbank).Build())

	tests := []struct {
		name       string
		raw        *ports.RawResponse
		wantCode   string
		wantTicket string
	}{
		{name: "empty 4xx body", raw: &ports.RawResponse{StatusCode: 400}, wantCode: ""},
		{name: "zero code on 4xx is not an approval", raw: &ports.RawResponse{StatusCode: 422, Body: []byte(`{"response_code":0}`)}, wantCode: ""},
		{
			name:       "vendor code and ticket kept",
			raw:        &ports.RawResponse{StatusCode: 200, Body: []byte(`{"status":"FAILED","response_code":5,"ticket_number":"TB-77"}`)},
			wantCode:   "005",
			wantTicket: "TB-77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tb.ParseResponse(in, tt.raw)

			var uf *domain.UpstreamFailure
			require.True(t, errors.As(err, &uf))
			assert.Equal(t, tt.wantCode, uf.Code)
			assert.Equal(t, tt.wantTicket, uf.TicketNumber)
		})
	}
}

func TestAurus_ParseFailureKeepsTicket(t *testing.T) {
	aurus := gateway.NewAurus(nil)
	in := chargeInput(fixtures.NewProcessor().Build())

	_, err := aurus.ParseResponse(in, &ports.RawResponse{StatusCode: 400, Body: []byte(`{"response_code":"005","response_text":"Declined","ticket_number":"AU-12"}`)})

	var uf *domain.UpstreamFailure
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "005", uf.Code)
	assert.Equal(t, "AU-12", uf.TicketNumber)
}

func TestKushkiAcq_BuildRequestSubMerchantCityCode(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())
	sub := fixtures.CompleteSubMerchant()
	sub.CityCode = "09"
	in.Charge.SubMerchant = sub

	call, err := gateway.NewKushkiAcq().BuildRequest(in)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(call.Payload, &body))
	sm := body["sub_merchant"].(map[string]interface{})
	assert.Equal(t, "09", sm["city_code"])
	assert.Equal(t, "ECU", sm["country_ans"])
	assert.Equal(t, false, body["is_subscription"])
}

func TestKushkiAcq_BuildRequestThreeDSAndAmex(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())
	in.Token = fixtures.NewToken().WithBrand("American Express").WithThreeDS(&domain.ThreeDSDetail{Cavv: "token-cavv"}).Build()
	in.Merchant = fixtures.NewMerchant().WithCountry("Mexico").Build()
	in.Charge = fixtures.NewCharge().
		WithThreeDS(&domain.ThreeDSDetail{Cavv: "merchant-cavv", Eci: "05"}).
		WithSubscription("sub-1", domain.SubscriptionTriggerOnDemand).
		Build()
	in.Charge.ContactDetails = &domain.ContactDetails{Email: "jane@example.com"}

	call, err := gateway.NewKushkiAcq().BuildRequest(in)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(call.Payload, &body))

	threeDS := body["3ds"].(map[string]interface{})
	assert.Equal(t, "merchant-cavv", threeDS["cavv"])
	assert.Equal(t, true, threeDS["external"])

	amex := body["amex_info"].(map[string]interface{})
	assert.Equal(t, "Jane Doe", amex["cardholder_name"])
	assert.Equal(t, "jane@example.com", amex["email"])

	assert.Equal(t, true, body["is_subscription"])
	assert.Equal(t, "onDemand", body["subscription_trigger"])
}

func TestKushkiAcq_BuildRequestTokenThreeDS(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())
	in.Token = fixtures.NewToken().WithThreeDS(&domain.ThreeDSDetail{Cavv: "token-cavv"}).Build()

	call, err := gateway.NewKushkiAcq().BuildRequest(in)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(call.Payload, &body))
	threeDS := body["3ds"].(map[string]interface{})
	assert.Equal(t, "token-cavv", threeDS["cavv"])
	assert.Equal(t, false, threeDS["external"])
	assert.NotContains(t, body, "amex_info")
}

func TestKushkiAcq_ParseDeclined(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())
	raw := &ports.RawResponse{StatusCode: 200, Body: []byte(`{
		"transaction_status":"declined","transaction_type":"charge","reference_number":"RN1",
		"transaction_reference":"ref-0001","response_code":"05","response_text":"Do not honor",
		"message_fields":{"f39":"05"}}`)}

	_, err := gateway.NewKushkiAcq().ParseResponse(in, raw)
	require.Error(t, err)

	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrorCodeDeclined, de.Code)
	assert.Equal(t, domain.MessageFor(domain.ErrorCodeDeclined), de.Message)
	for _, key := range []string{"kushki_response", "message_fields", "reference_number", "transaction_reference", "transaction_status", "transaction_type"} {
		assert.Contains(t, de.Details, key)
	}
	assert.Equal(t, "RN1", de.Details["reference_number"])
	assert.Equal(t, "declined", de.Details["transaction_status"])
}

func TestKushkiAcq_ParseUnexpected(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())

	for name, raw := range map[string]*ports.RawResponse{
		"function error": {StatusCode: 502, Body: []byte(`{"errorMessage":"Task timed out"}`)},
		"garbage":        {StatusCode: 200, Body: []byte(`not json`)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gateway.NewKushkiAcq().ParseResponse(in, raw)
			assert.Equal(t, domain.ErrorCodeUnexpected, domain.GetErrorCode(err))
			assert.Equal(t, domain.MessageFor(domain.ErrorCodeUnexpected), err.(*domain.DomainError).Message)
		})
	}
}

func TestKushkiAcq_ParseApproved(t *testing.T) {
	in := chargeInput(fixtures.KushkiProcessor())
	raw := &ports.RawResponse{StatusCode: 200, Body: []byte(`{
		"transaction_status":"approved","approval_code":"A9","response_code":"00",
		"response_text":"Aprobada","ticket_number":"TK9","approved_amount":"112.00","card_type":"debit"}`)}

	resp, err := gateway.NewKushkiAcq().ParseResponse(in, raw)
	require.NoError(t, err)
	assert.Equal(t, "00", resp.TransactionDetails.ProcessorCode)
	assert.Equal(t, "Aprobada", resp.TransactionDetails.ProcessorMessage)
	assert.Equal(t, "debit", resp.TransactionDetails.CardType)
	assert.Equal(t, "ref-0001", resp.TransactionReference)
	assert.False(t, resp.IsDeferred())
}

func TestSandbox_RoundTrip(t *testing.T) {
	sb := gateway.NewSandbox()
	in := chargeInput(fixtures.NewProcessor().WithName(domain.ProcessorNameSandbox).WithType(domain.ProcessorTypeSandbox).Build())

	call, err := sb.BuildRequest(in)
	require.NoError(t, err)

	var req gateway.SandboxRequest
	require.NoError(t, json.Unmarshal(call.Payload, &req))
	assert.Equal(t, "4242", req.LastFourDigits)
	assert.Equal(t, "visa", req.Brand)

	_, err = sb.ParseResponse(in, &ports.RawResponse{StatusCode: 200, Body: []byte(`{"responseCode":"005","responseText":"Declinada"}`)})
	var uf *domain.UpstreamFailure
	assert.True(t, errors.As(err, &uf))
}
