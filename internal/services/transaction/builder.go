// Package transaction runs the card transaction pipeline: it assembles the
// persisted transaction from every upstream result and saves it with its side effects.
package transaction

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	"github.com/kevin07696/card-gateway/pkg/observability"
	"github.com/shopspring/decimal"
)

// Rule types that force the transaction type
const (
	RuleTypePreauthorization = "preauthorization"
	RuleTypeCapture          = "capture"
)

// RuleCode3DSSuccess marks a successful 3DS authentication on an approved transaction
const RuleCode3DSSuccess = "3DS000"

// Credimatic expects 3-digit credit types
const credimaticCreditTypeLength = 3

// BuildContext is everything the builder merges into a transaction
type BuildContext struct {
	Response  *domain.ProcessorResponse // nil when Err is set
	Err       error                     // classified processor or rule-engine error
	Token     *domain.TokenInfo
	Processor *domain.ProcessorInfo
	Merchant  *domain.MerchantInfo
	Rules     *domain.RuleResponse
	Charge    *domain.ChargeRequest // nil for capture, reauthorization and void
	Original  *domain.Transaction   // referenced transaction for capture, reauthorization and void
	Deferred  *domain.Deferred      // resolved deferred fields sent to the acquirer
	Metadata  map[string]interface{}

	Amount               domain.Amount
	Operation            domain.TransactionType
	TransactionReference string
	Country              string // merchant country
}

// Builder assembles transactions. It reads nothing but its configuration and the context.
type Builder struct {
	audit    *config.AuditConfig
	messages *config.MessagesConfig
	logger   ports.Logger
	now      func() time.Time
	newID    func() string
}

// NewBuilder creates a transaction builder
func NewBuilder(audit *config.AuditConfig, messages *config.MessagesConfig, logger ports.Logger) *Builder {
	return &Builder{
		audit:    audit,
		messages: messages,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Build merges the context into a single transaction record
func (b *Builder) Build(bc BuildContext) *domain.Transaction {
	trx := &domain.Transaction{
		Metadata:             bc.Metadata,
		TransactionReference: bc.TransactionReference,
		Country:              bc.Country,
		Method:               bc.Operation.Method(),
		Created:              b.now().UnixMilli(),
	}
	b.applyMerchant(trx, bc)
	b.applyProcessor(trx, bc.Processor)
	b.applyCard(trx, bc)
	b.applyAmount(trx, bc.Amount)
	b.applyCharge(trx, bc.Charge)
	b.applyRules(trx, bc)
	b.applyDeferred(trx, bc)
	trx.TransactionType = transactionType(bc)

	if bc.Err != nil {
		b.applyError(trx, bc)
	} else {
		b.applyResponse(trx, bc)
	}

	if trx.TransactionID == "" {
		trx.TransactionID = b.newID()
	}

	b.applyTraceability(trx, bc)
	return trx
}

func (b *Builder) applyMerchant(trx *domain.Transaction, bc BuildContext) {
	m := bc.Merchant
	if m == nil {
		return
	}
	trx.MerchantID = m.MerchantID
	trx.MerchantName = m.MerchantName
	trx.SocialReason = m.SocialReason
	trx.CategoryMerchant = m.CategoryMerchant
	trx.TaxID = m.TaxID
	if trx.Country == "" {
		trx.Country = m.Country
	}
}

func (b *Builder) applyProcessor(trx *domain.Transaction, p *domain.ProcessorInfo) {
	if p == nil {
		return
	}
	trx.ProcessorID = p.ProcessorID
	trx.ProcessorName = p.ProcessorName
	trx.ProcessorType = p.ProcessorType
	trx.ProcessorBankName = p.AcquirerBank
	trx.ProcessorMerchantID = p.ProcessorMerchantID
}

func (b *Builder) applyCard(trx *domain.Transaction, bc BuildContext) {
	if o := bc.Original; o != nil {
		trx.TokenID = o.TokenID
		trx.BinCard = o.BinCard
		trx.LastFourDigits = o.LastFourDigits
		trx.CardHolderName = o.CardHolderName
		trx.PaymentBrand = o.PaymentBrand
		trx.IssuingBank = o.IssuingBank
		trx.CardCountry = o.CardCountry
		trx.CardType = o.CardType
		trx.SaleTicketNumber = o.TicketNumber
		trx.SubscriptionID = o.SubscriptionID
		trx.ForeignCard = o.ForeignCard
	}

	t := bc.Token
	if t == nil {
		return
	}
	trx.TokenID = t.ID
	trx.LastFourDigits = t.LastFourDigits
	trx.CardHolderName = t.CardHolderName
	if bin := t.BinInfo; bin != nil {
		trx.BinCard = bin.Bin
		trx.PaymentBrand = bin.Brand
		trx.IssuingBank = bin.Bank
		trx.CardCountry = bin.Country
		trx.CardType = bin.CardType
		trx.CardTypeBin = bin.CardType
		trx.ForeignCard = bin.Country != "" && !strings.EqualFold(strings.TrimSpace(bc.Country), strings.TrimSpace(bin.Country))
	}
	if ci := t.CreditInfo; ci != nil {
		trx.AccountType = ci.AccountType
	}
}

func (b *Builder) applyAmount(trx *domain.Transaction, a domain.Amount) {
	trx.CurrencyCode = a.Currency
	trx.RequestAmount = a.Total().InexactFloat64()
	trx.SubtotalIVA = a.SubtotalIVA.InexactFloat64()
	trx.SubtotalIVA0 = a.SubtotalIVA0.InexactFloat64()
	trx.IVAValue = a.IVA.InexactFloat64()
	trx.ICEValue = a.ICEValue().InexactFloat64()
}

func (b *Builder) applyCharge(trx *domain.Transaction, c *domain.ChargeRequest) {
	if c == nil {
		return
	}
	trx.ContactDetails = c.ContactDetails
	trx.SubMerchant = c.SubMerchant
	trx.ConvertedAmount = c.ConvertedAmount
	trx.SubscriptionPlan = c.SubscriptionPlan
	trx.SubscriptionID = c.SubscriptionID
	trx.SubscriptionTrigger = string(c.SubscriptionTrigger)
	trx.ExternalReferenceID = c.ExternalReferenceID
	trx.Channel = c.Channel
	trx.IsSubscriptionValidation = c.IsSubscriptionValidation
	trx.IsInitialCof = c.IsInitialCof
}

func (b *Builder) applyRules(trx *domain.Transaction, bc BuildContext) {
	sec := &domain.SecurityBlock{}
	if t := bc.Token; t != nil {
		sec.ID = t.SecureID
		sec.Service = t.SecureService
	}
	if r := bc.Rules; r != nil {
		trx.Rules = append(trx.Rules, r.Rules...)
		if r.SecureService != "" {
			sec.Service = r.SecureService
		}
		if r.SecureID != "" {
			sec.ID = r.SecureID
		}
		sec.Partners = append(sec.Partners, r.Partners...)
	}
	if sec.ID != "" || sec.Service != "" || len(sec.Partners) > 0 {
		trx.Security = sec
	}
}

func (b *Builder) applyDeferred(trx *domain.Transaction, bc BuildContext) {
	d := bc.Deferred
	if d == nil {
		return
	}
	trx.CreditType = d.CreditType
	trx.GraceMonths = d.GraceMonths
	trx.NumberOfMonths = d.Months

	if len(trx.CreditType) == credimaticCreditTypeLength-1 &&
		bc.Processor != nil && bc.Processor.ProcessorName == domain.ProcessorNameCredimatic {
		trx.CreditType = "0" + trx.CreditType
	}
}

// transactionType lets an explicit rule type win over the acquirer's deferred flag
func transactionType(bc BuildContext) domain.TransactionType {
	if bc.Rules != nil {
		switch strings.ToLower(bc.Rules.Type) {
		case RuleTypePreauthorization:
			return domain.TransactionTypePreauthorization
		case RuleTypeCapture:
			return domain.TransactionTypeCapture
		}
	}

	switch bc.Operation {
	case domain.TransactionTypeSale, domain.TransactionTypeDeferred:
		if bc.Response != nil {
			if bc.Response.IsDeferred() {
				return domain.TransactionTypeDeferred
			}
			return domain.TransactionTypeSale
		}
		if bc.Deferred != nil && bc.Deferred.Months > 0 {
			return domain.TransactionTypeDeferred
		}
		return domain.TransactionTypeSale
	}
	return bc.Operation
}

func (b *Builder) applyError(trx *domain.Transaction, bc BuildContext) {
	trx.TransactionStatus = domain.TransactionStatusDeclined

	coded, ok := domain.AsCoded(bc.Err)
	if !ok {
		coded = classifier.Normalize(bc.Err)
	}
	code := coded.ErrorCode()
	details := coded.ErrorMetadata()

	switch domain.ErrorCode(code) {
	case domain.ErrorCodeRuleRejected:
		trx.ResponseCode = RuleCodeRejected
		trx.ResponseText = coded.ErrorMessage()
		b.applyRuleRejection(trx, details)
		return
	case domain.ErrorCodeSecureValidationRejected:
		trx.ResponseCode = RuleCodeRejected
		trx.ResponseText = coded.ErrorMessage()
		if text, ok := details["responseText"].(string); ok && text != "" {
			trx.ResponseText = text
		}
		b.applyRuleRejection(trx, details)
		return
	}

	trx.ResponseCode = code
	trx.ResponseText = coded.ErrorMessage()
	if v, ok := details["response_code"].(string); ok && v != "" {
		trx.ResponseCode = v
	}
	if v, ok := details["response_text"].(string); ok && v != "" {
		trx.ResponseText = v
	}
	if trx.ResponseCode == "" || trx.ResponseText == "" {
		normalized := classifier.Normalize(bc.Err)
		if trx.ResponseCode == "" {
			trx.ResponseCode = string(normalized.Code)
		}
		if trx.ResponseText == "" {
			trx.ResponseText = normalized.Message
		}
	}

	info := classifier.Homologate(trx.ResponseCode)
	trx.Processor = &domain.ProcessorDetail{Code: info.ProcessorCode, Message: info.ProcessorMessage}

	var pe *domain.ProcessorError
	if errors.As(bc.Err, &pe) {
		if pe.ProcessorName != "" && trx.ProcessorName == "" {
			trx.ProcessorName = pe.ProcessorName
		}
		if pe.StatusCode >= http.StatusInternalServerError && bc.Token != nil && bc.Token.TransactionReference != "" {
			trx.TransactionReference = bc.Token.TransactionReference
		}
		var fail *domain.UpstreamFailure
		if errors.As(pe.Err, &fail) {
			if fail.TransactionID != "" {
				trx.TransactionID = fail.TransactionID
			}
			if fail.TicketNumber != "" {
				trx.TicketNumber = fail.TicketNumber
			}
		}
	}

	// 228 never keeps a ticket, even one the acquirer sent.
	if trx.ResponseCode == classifier.CodeUnreachable {
		trx.TicketNumber = ""
	}
}

// applyRuleRejection copies the rule-engine verdict carried by the error
func (b *Builder) applyRuleRejection(trx *domain.Transaction, details map[string]interface{}) {
	if rules, ok := details["rules"].([]domain.Rule); ok {
		trx.Rules = append(trx.Rules, rules...)
	}

	limitMerchant, hasMerchant := floatDetail(details, "limitMerchant")
	limitProcessor, hasProcessor := floatDetail(details, "limitProcessor")
	if hasMerchant || hasProcessor {
		if trx.Security == nil {
			trx.Security = &domain.SecurityBlock{}
		}
		if hasMerchant {
			trx.Security.LimitMerchant = &limitMerchant
		}
		if hasProcessor {
			trx.Security.LimitProcessor = &limitProcessor
		}
	}

	secureCode, _ := details["secureCode"].(string)
	if secureCode == "" {
		for _, r := range trx.Rules {
			if secureServiceErrorCodes[r.Code] && r.Code != RuleCodeRejected {
				secureCode = r.Code
				break
			}
		}
	}
	if secureCode == "" {
		return
	}
	trx.SecureCode = secureCode
	if secureCode == RuleCodeOTPRejected {
		trx.SecureMessage = b.messages.OTPSecureMessage
		return
	}
	if msg, ok := details["secureMessage"].(string); ok && msg != "" {
		trx.SecureMessage = msg
		return
	}
	for _, r := range trx.Rules {
		if r.Code == secureCode {
			trx.SecureMessage = r.Message
			return
		}
	}
}

func floatDetail(details map[string]interface{}, key string) (float64, bool) {
	switch v := details[key].(type) {
	case float64:
		return v, true
	case *float64:
		if v != nil {
			return *v, true
		}
	case decimal.Decimal:
		return v.InexactFloat64(), true
	}
	return 0, false
}

func (b *Builder) applyResponse(trx *domain.Transaction, bc BuildContext) {
	resp := bc.Response
	trx.TransactionStatus = domain.TransactionStatusApproval
	if resp == nil {
		trx.ApprovedTransactionAmount = trx.RequestAmount
		return
	}

	trx.TransactionID = resp.TransactionID
	trx.TicketNumber = resp.TicketNumber
	trx.ApprovalCode = resp.TransactionDetails.ApprovalCode
	trx.Recap = resp.RecapID
	trx.ResponseCode = resp.ResponseCode
	trx.ResponseText = resp.ResponseText
	if resp.TransactionDetails.CardType != "" {
		trx.CardType = resp.TransactionDetails.CardType
	}

	approved := trx.RequestAmount
	if a, err := decimal.NewFromString(resp.ApprovedAmount); err == nil {
		approved = a.InexactFloat64()
	}
	trx.ApprovedTransactionAmount = approved

	if bc.Processor.IsKushkiAcquirer() {
		trx.Processor = &domain.ProcessorDetail{
			Code:    resp.TransactionDetails.ProcessorCode,
			Message: resp.TransactionDetails.ProcessorMessage,
		}
	}

	b.apply3DSSuccess(trx, bc)
	b.auditAmount(trx, bc)
}

func (b *Builder) apply3DSSuccess(trx *domain.Transaction, bc BuildContext) {
	external := bc.Charge != nil && bc.Charge.ThreeDomainSecure != nil
	kushki := false
	if bc.Token != nil {
		p, ok := domain.ParsePartner(bc.Token.SecureService)
		kushki = ok && p == domain.Partner3DS
	}
	if !external && !kushki {
		return
	}

	msg := b.messages.ThreeDSKushkiMessage
	if external {
		msg = b.messages.ThreeDSMerchantMsg
	}
	trx.Rules = append(trx.Rules, domain.Rule{Code: RuleCode3DSSuccess, Message: msg})
}

// auditAmount flags approved sales whose approved amount drifted from the request
func (b *Builder) auditAmount(trx *domain.Transaction, bc BuildContext) {
	if trx.TransactionType != domain.TransactionTypeSale || trx.ConvertedAmount != nil {
		return
	}
	if b.audit.IsExemptMerchant(trx.MerchantID) {
		return
	}
	diff := decimal.NewFromFloat(trx.ApprovedTransactionAmount).Sub(bc.Amount.Total()).Abs()
	if diff.LessThanOrEqual(b.audit.AmountThreshold) {
		return
	}

	observability.RecordAmountMismatch(trx.ProcessorName)
	b.logger.Warn("Approved amount differs from requested amount",
		ports.String("transaction_id", trx.TransactionID),
		ports.String("merchant_id", trx.MerchantID),
		ports.String("processor_name", trx.ProcessorName),
		ports.Float64("request_amount", trx.RequestAmount),
		ports.Float64("approved_amount", trx.ApprovedTransactionAmount),
	)
}

func (b *Builder) applyTraceability(trx *domain.Transaction, bc BuildContext) {
	flags := domain.PartnerFlags{
		ResponseCode:   trx.ResponseCode,
		Rules:          trx.Rules,
		SubscriptionID: trx.SubscriptionID,
	}
	var existing []domain.SecurityIdentity
	if c := bc.Charge; c != nil {
		flags.SiftValidation = c.SiftValidation
		flags.RulesValidation = c.RulesValidation
		flags.KushkiInfo = c.KushkiInfo
	}
	if t := bc.Token; t != nil {
		existing = t.SecurityIdentity
		if flags.KushkiInfo == nil {
			flags.KushkiInfo = t.KushkiInfo
		}
		if t.ThreeDS != nil {
			flags.ThreeDSReason = t.ThreeDS.ReasonCode
		}
	}
	if r := bc.Rules; r != nil && r.ThreeDS != nil && r.ThreeDS.ReasonCode != "" {
		flags.ThreeDSReason = r.ThreeDS.ReasonCode
	}
	if bc.Merchant != nil && bc.Merchant.SiftScience {
		flags.SiftValidation = true
	}

	t := MergeTraceability(existing, trx.Security, flags)
	trx.KushkiInfo = t.KushkiInfo
	trx.SecurityIdentity = t.SecurityIdentity
}
