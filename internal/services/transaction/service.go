package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/amount"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	"github.com/kevin07696/card-gateway/internal/services/gateway"
	"github.com/kevin07696/card-gateway/pkg/observability"
	"github.com/kevin07696/card-gateway/pkg/resilience"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Dependencies are the external collaborators of the service
type Dependencies struct {
	Tokens        ports.TokenFetcher
	Merchants     ports.MerchantFetcher
	Rules         ports.RuleEngine
	Invoker       ports.ProcessorInvoker
	Repo          ports.TransactionRepository
	ChargeMeta    ports.ChargeMetadataStore
	FailedCharges ports.FailedChargeRecorder
	BinInfo       ports.BinInfoProvider
	BinStore      ports.BinCardTypeStore
	Attempts      ports.AttemptPublisher
	Registry      *gateway.Registry
	Timeouts      *resilience.TimeoutConfig
}

// Service runs every card transaction operation
type Service struct {
	tokens     ports.TokenFetcher
	merchants  ports.MerchantFetcher
	rules      ports.RuleEngine
	invoker    ports.ProcessorInvoker
	repo       ports.TransactionRepository
	chargeMeta ports.ChargeMetadataStore
	binInfo    ports.BinInfoProvider
	registry   *gateway.Registry
	timeouts   *resilience.TimeoutConfig
	failover   *config.FailoverConfig

	validator  *gateway.Validator
	normalizer *amount.Normalizer
	deferred   *gateway.DeferredResolver
	cvv        *gateway.CVVPolicy
	classifier *classifier.Classifier
	builder    *Builder
	persister  *Persister
	logger     ports.Logger
}

// NewService wires the pipeline components from the configuration
func NewService(deps Dependencies, cfg *config.Config, logger ports.Logger) *Service {
	timeouts := deps.Timeouts
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	pc := PersisterConfig{
		BinInfo:         deps.BinInfo,
		BinStore:        deps.BinStore,
		Attempts:        deps.Attempts,
		CorrectionRate:  rate.Limit(cfg.AWS.BinCorrectionRPS),
		CorrectionBurst: cfg.AWS.BinCorrectionBurst,
	}
	if cfg.AWS.BinCorrectionDisabled {
		pc.BinStore = nil
	}
	persister := NewPersister(deps.Repo, pc, logger)

	return &Service{
		tokens:     deps.Tokens,
		merchants:  deps.Merchants,
		rules:      deps.Rules,
		invoker:    deps.Invoker,
		repo:       deps.Repo,
		chargeMeta: deps.ChargeMeta,
		binInfo:    deps.BinInfo,
		registry:   deps.Registry,
		timeouts:   timeouts,
		failover:   &cfg.Failover,
		validator:  gateway.NewValidator(),
		normalizer: amount.NewNormalizer(&cfg.Amount),
		deferred:   gateway.NewDeferredResolver(&cfg.Deferred, logger),
		cvv:        gateway.NewCVVPolicy(&cfg.CVV),
		classifier: classifier.New(&cfg.Failover, &cfg.Messages, deps.FailedCharges, logger),
		builder:    NewBuilder(&cfg.Audit, &cfg.Messages, logger),
		persister:  persister,
		logger:     logger,
	}
}

// Persister exposes the persister so callers can wait for background corrections on shutdown
func (s *Service) Persister() *Persister {
	return s.persister
}

// pipeline is the resolved state of one operation
type pipeline struct {
	op        domain.TransactionType
	charge    *domain.ChargeRequest
	original  *domain.Transaction
	token     *domain.TokenInfo
	merchant  *domain.MerchantInfo
	processor *domain.ProcessorInfo
	rules     *domain.RuleResponse
	amount    domain.Amount
	metadata  map[string]interface{}
	reference string
	retry     bool
	partial   bool // a follow-up carried its own amount
}

// Charge runs a sale
func (s *Service) Charge(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error) {
	return s.runCharge(ctx, req, domain.TransactionTypeSale)
}

// PreAuthorize holds funds without capturing them
func (s *Service) PreAuthorize(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error) {
	return s.runCharge(ctx, req, domain.TransactionTypePreauthorization)
}

// ValidateAccount verifies a card with a zero-amount authorization
func (s *Service) ValidateAccount(ctx context.Context, req *domain.ChargeRequest) (*domain.Transaction, error) {
	req.IsCardValidation = true
	return s.runCharge(ctx, req, domain.TransactionTypeAccountValidation)
}

func (s *Service) runCharge(ctx context.Context, req *domain.ChargeRequest, op domain.TransactionType) (*domain.Transaction, error) {
	if req == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidBody)
	}
	req.Type = op
	if err := s.validator.ValidateCharge(op, req); err != nil {
		return nil, classifier.Normalize(err)
	}

	var (
		token    *domain.TokenInfo
		merchant *domain.MerchantInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tokens.GetToken(gctx, req.TokenID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidToken, "token")
		}
		token = t
		return nil
	})
	g.Go(func() error {
		m, err := s.merchants.GetMerchant(gctx, req.MerchantID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidMerchant, "merchant")
		}
		merchant = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, classifier.Normalize(err)
	}

	binCountry := ""
	if token.BinInfo != nil {
		binCountry = token.BinInfo.Country
	}
	if err := s.validator.ValidateSubMerchant(req.SubMerchant, merchant.Country, binCountry); err != nil {
		return nil, classifier.Normalize(err)
	}

	p := &pipeline{
		op:        op,
		charge:    req,
		token:     token,
		merchant:  merchant,
		amount:    req.Amount,
		metadata:  req.Metadata,
		reference: token.TransactionReference,
	}
	if p.reference == "" {
		p.reference = uuid.New().String()
	}

	rules, err := s.rules.Evaluate(ctx, ruleRequest(p))
	if err != nil {
		if domain.IsKind(err, domain.KindRuleEngineRejected) {
			return nil, s.decline(ctx, p, err)
		}
		return nil, classifier.Normalize(err)
	}
	p.rules = rules

	processor, err := s.merchants.GetProcessor(ctx, rules.PublicID)
	if err != nil {
		return nil, classifier.Normalize(lookupError(err, domain.ErrorCodeInvalidMerchant, "processor"))
	}
	p.processor = processor

	return s.execute(ctx, p)
}

// Capture settles a previous preauthorization
func (s *Service) Capture(ctx context.Context, req *domain.CaptureRequest) (*domain.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, classifier.Normalize(err)
	}
	return s.runFollowUp(ctx, followUp{
		op:               domain.TransactionTypeCapture,
		merchantID:       req.MerchantID,
		ticket:           req.TicketNumber,
		amount:           req.Amount,
		metadata:         req.Metadata,
		isCardValidation: req.IsCardValidation,
	})
}

// Reauthorize extends a previous preauthorization
func (s *Service) Reauthorize(ctx context.Context, req *domain.ReauthRequest) (*domain.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, classifier.Normalize(err)
	}
	return s.runFollowUp(ctx, followUp{
		op:               domain.TransactionTypeReauthorization,
		merchantID:       req.MerchantID,
		ticket:           req.TicketNumber,
		amount:           &req.Amount,
		metadata:         req.Metadata,
		isCardValidation: req.IsCardValidation,
	})
}

// Void cancels a previous transaction
func (s *Service) Void(ctx context.Context, req *domain.VoidRequest) (*domain.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, classifier.Normalize(err)
	}
	return s.runFollowUp(ctx, followUp{
		op:         domain.TransactionTypeVoid,
		merchantID: req.MerchantID,
		ticket:     req.TicketNumber,
		amount:     req.Amount,
	})
}

// followUp is an operation on a previous transaction, located by ticket number
type followUp struct {
	op               domain.TransactionType
	merchantID       string
	ticket           string
	amount           *domain.Amount // nil reuses the original amount
	metadata         map[string]interface{}
	isCardValidation bool
}

func (s *Service) runFollowUp(ctx context.Context, f followUp) (*domain.Transaction, error) {
	op, merchantID, ticket := f.op, f.merchantID, f.ticket
	original, err := s.repo.GetByTicketNumber(ctx, ticket)
	if err != nil {
		return nil, classifier.Normalize(lookupError(err, domain.ErrorCodeTransactionNotFound, "transaction"))
	}
	if original.MerchantID != merchantID {
		return nil, domain.NewDomainError(domain.ErrorCodeTransactionNotFound).WithDetail("ticketNumber", ticket)
	}

	requested := amountOf(original)
	if f.amount != nil {
		requested = *f.amount
	}
	if err := s.validator.ValidateAmount(op, requested, f.isCardValidation); err != nil {
		return nil, classifier.Normalize(err)
	}

	var (
		merchant  *domain.MerchantInfo
		processor *domain.ProcessorInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.merchants.GetMerchant(gctx, merchantID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidMerchant, "merchant")
		}
		merchant = m
		return nil
	})
	g.Go(func() error {
		pr, err := s.merchants.GetProcessor(gctx, original.ProcessorID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidMerchant, "processor")
		}
		processor = pr
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, classifier.Normalize(err)
	}

	return s.execute(ctx, &pipeline{
		op:        op,
		original:  original,
		merchant:  merchant,
		processor: processor,
		amount:    requested,
		metadata:  f.metadata,
		reference: uuid.New().String(),
		partial:   f.amount != nil,
	})
}

// execute normalizes, invokes and records one processor attempt
func (s *Service) execute(ctx context.Context, p *pipeline) (*domain.Transaction, error) {
	acq, err := s.registry.For(p.processor)
	if err != nil {
		return nil, classifier.Normalize(err)
	}

	var tokenAmount *decimal.Decimal
	if p.token != nil && !p.token.Amount.IsZero() {
		ta := p.token.Amount
		tokenAmount = &ta
	}
	wire, err := s.normalizer.Normalize(p.amount, p.processor.ProcessorID, tokenAmount)
	if err != nil {
		return nil, classifier.Normalize(err)
	}

	in := s.input(p, wire)
	call, err := acq.BuildRequest(in)
	if err != nil {
		s.logger.Error("Failed to build processor request",
			ports.String("processor_name", p.processor.ProcessorName),
			ports.String("transaction_reference", p.reference),
			ports.Err(err))
		return nil, classifier.Normalize(err)
	}

	s.saveChargeMetadata(ctx, p)

	resp, err := s.invoke(ctx, acq, in, call)
	if err == nil {
		return s.finish(ctx, p, in, resp, nil)
	}

	var fail *domain.UpstreamFailure
	if !errors.As(err, &fail) {
		return s.finish(ctx, p, in, nil, err)
	}

	failoverID := s.failoverProcessorID(p.processor)
	outcome, cerr := s.classifier.Classify(ctx, fail, classifier.Context{
		Metadata:             p.metadata,
		Operation:            p.op,
		TransactionReference: p.reference,
		MerchantID:           p.merchant.MerchantID,
		ProcessorID:          p.processor.ProcessorID,
		ProcessorName:        p.processor.ProcessorName,
		Remaining:            resilience.Remaining(ctx),
		IsCardTransaction:    in.IsCardTransaction(),
		FailoverEligible:     failoverID != "",
		IsFailoverRetry:      p.retry,
	})
	if cerr != nil {
		return s.finish(ctx, p, in, nil, cerr)
	}

	switch outcome.Verdict {
	case classifier.VerdictIgnore:
		return s.alreadyProcessed(ctx, fail)
	case classifier.VerdictFailover:
		next, err := s.merchants.GetProcessor(ctx, failoverID)
		if err != nil {
			s.logger.Error("Failed to resolve failover processor",
				ports.String("processor_id", failoverID),
				ports.Err(err))
			return s.finish(ctx, p, in, nil, &domain.ProcessorError{
				Err:           fail,
				Code:          fail.Code,
				Message:       fail.Message,
				ProcessorName: p.processor.ProcessorName,
				StatusCode:    fail.StatusCode,
				Metadata:      map[string]interface{}{"processorCode": fail.Code},
			})
		}
		observability.RecordFailover(p.processor.ProcessorName)
		s.logger.Info("Re-routing transaction to failover processor",
			ports.String("from_processor", p.processor.ProcessorName),
			ports.String("to_processor", next.ProcessorName),
			ports.String("transaction_reference", p.reference))
		retry := *p
		retry.processor = next
		retry.retry = true
		if retry.charge != nil {
			c := *retry.charge
			c.IsFailoverRetry = true
			retry.charge = &c
		}
		return s.execute(ctx, &retry)
	}
	return nil, domain.NewDomainError(domain.ErrorCodeUnexpected)
}

func (s *Service) input(p *pipeline, wire domain.ProcessorAmount) *gateway.Input {
	in := &gateway.Input{
		Token:                p.token,
		Merchant:             p.merchant,
		Processor:            p.processor,
		Charge:               p.charge,
		Original:             p.original,
		Metadata:             p.metadata,
		Amount:               wire,
		Currency:             p.amount.Currency,
		Operation:            p.op,
		TransactionReference: p.reference,
		PartialAmount:        p.partial,
	}
	if p.charge != nil {
		in.Deferred = s.deferred.Resolve(p.amount.Currency, p.processor.ProcessorName, in.IsCardTransaction(), p.charge.Deferred)
		in.CVV = s.cvv.Resolve(p.processor.ProcessorName, in.Brand(), p.charge)
	}
	return in
}

// invoke races the acquirer call against the execution budget. A late answer is discarded.
func (s *Service) invoke(ctx context.Context, acq gateway.Acquirer, in *gateway.Input, call *ports.ProcessorCall) (*domain.ProcessorResponse, error) {
	upstreamCtx, cancel := s.timeouts.UpstreamContext(ctx)
	defer cancel()

	type result struct {
		raw *ports.RawResponse
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		raw, err := s.invoker.Invoke(upstreamCtx, call)
		done <- result{raw: raw, err: err}
	}()

	processorType := string(call.ProcessorType)
	timedOut := func() (*domain.ProcessorResponse, error) {
		observability.RecordProcessorCall(processorType, "unreachable", time.Since(start).Seconds())
		s.logger.Warn("Processor call timed out",
			ports.String("processor_name", call.ProcessorName),
			ports.String("operation", call.Operation),
			ports.String("transaction_reference", in.TransactionReference))
		return nil, &domain.UpstreamFailure{Timeout: true, Err: upstreamCtx.Err()}
	}

	select {
	case <-upstreamCtx.Done():
		return timedOut()
	case r := <-done:
		if r.err != nil && errors.Is(upstreamCtx.Err(), context.DeadlineExceeded) {
			return timedOut()
		}
		if r.err != nil {
			// Invokers report transport failures as *domain.UpstreamFailure; anything
			// else is unexpected and reaches the caller as K002.
			observability.RecordProcessorCall(processorType, "unreachable", time.Since(start).Seconds())
			return nil, r.err
		}
		resp, err := acq.ParseResponse(in, r.raw)
		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		observability.RecordProcessorCall(processorType, outcome, time.Since(start).Seconds())
		return resp, err
	}
}

// finish builds, saves and returns the transaction. Declines are saved and returned as normalized errors.
func (s *Service) finish(ctx context.Context, p *pipeline, in *gateway.Input, resp *domain.ProcessorResponse, procErr error) (*domain.Transaction, error) {
	if procErr != nil && domain.IsKind(procErr, domain.KindConfiguration) {
		s.logger.Error("Configuration error while processing transaction",
			ports.String("transaction_reference", p.reference),
			ports.Err(procErr))
		return nil, classifier.Normalize(procErr)
	}

	trx := s.builder.Build(BuildContext{
		Response:             resp,
		Err:                  procErr,
		Token:                p.token,
		Processor:            p.processor,
		Merchant:             p.merchant,
		Rules:                p.rules,
		Charge:               p.charge,
		Original:             p.original,
		Deferred:             in.Deferred,
		Metadata:             p.metadata,
		Amount:               p.amount,
		Operation:            p.op,
		TransactionReference: p.reference,
		Country:              p.merchant.Country,
	})

	saved, err := s.persister.FinishSaving(ctx, trx)
	if err != nil {
		return nil, classifier.Normalize(err)
	}

	if procErr != nil {
		s.logger.Info("Transaction declined",
			ports.String("transaction_id", saved.TransactionID),
			ports.String("response_code", saved.ResponseCode),
			ports.String("processor_name", saved.ProcessorName))
		return nil, classifier.Normalize(procErr).WithDetail("transactionId", saved.TransactionID)
	}

	s.logger.Info("Transaction approved",
		ports.String("transaction_id", saved.TransactionID),
		ports.String("transaction_type", string(saved.TransactionType)),
		ports.String("processor_name", saved.ProcessorName))
	return saved, nil
}

// decline saves a transaction rejected by the rule engine before any processor call
func (s *Service) decline(ctx context.Context, p *pipeline, ruleErr error) error {
	trx := s.builder.Build(BuildContext{
		Err:                  ruleErr,
		Token:                p.token,
		Merchant:             p.merchant,
		Charge:               p.charge,
		Metadata:             p.metadata,
		Amount:               p.amount,
		Operation:            p.op,
		TransactionReference: p.reference,
		Country:              p.merchant.Country,
	})
	if _, err := s.persister.FinishSaving(ctx, trx); err != nil {
		s.logger.Error("Failed to save rule-rejected transaction",
			ports.String("transaction_reference", p.reference),
			ports.Err(err))
	}
	return classifier.Normalize(ruleErr).WithDetail("transactionId", trx.TransactionID)
}

// alreadyProcessed returns the stored transaction when the acquirer reports a duplicate.
// A nil transaction without error means there is nothing new to report.
func (s *Service) alreadyProcessed(ctx context.Context, fail *domain.UpstreamFailure) (*domain.Transaction, error) {
	if fail.TransactionID == "" {
		return nil, nil
	}
	existing, err := s.repo.GetByID(ctx, fail.TransactionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Failed to load already processed transaction",
				ports.String("transaction_id", fail.TransactionID),
				ports.Err(err))
		}
		return nil, nil
	}
	return stripReportingFields(existing), nil
}

func (s *Service) failoverProcessorID(p *domain.ProcessorInfo) string {
	if id, ok := s.failover.Processors[p.ProcessorName]; ok && id != "" {
		return id
	}
	return p.FailoverProcessorID
}

func (s *Service) saveChargeMetadata(ctx context.Context, p *pipeline) {
	if s.chargeMeta == nil || p.token == nil || !p.op.IsChargeLike() {
		return
	}
	meta := &domain.ChargeMetadata{
		TransactionReference: p.reference,
		MerchantID:           p.merchant.MerchantID,
		TokenID:              p.token.ID,
		LastFourDigits:       p.token.LastFourDigits,
		CardHolderName:       p.token.CardHolderName,
		ProcessorID:          p.processor.ProcessorID,
		Currency:             p.amount.Currency,
		RequestAmount:        p.amount.Total().InexactFloat64(),
		SubtotalIVA:          p.amount.SubtotalIVA.InexactFloat64(),
		SubtotalIVA0:         p.amount.SubtotalIVA0.InexactFloat64(),
		IVA:                  p.amount.IVA.InexactFloat64(),
		Method:               p.op.Method(),
		Created:              time.Now().UnixMilli(),
	}
	if p.token.BinInfo != nil {
		meta.Bin = p.token.BinInfo.Bin
	}

	storageCtx, cancel := s.timeouts.StorageContext(ctx)
	defer cancel()
	if err := s.chargeMeta.SaveChargeMetadata(storageCtx, meta); err != nil {
		s.logger.Warn("Failed to save charge metadata",
			ports.String("transaction_reference", p.reference),
			ports.Err(err))
	}
}

func ruleRequest(p *pipeline) *ports.RuleRequest {
	req := &ports.RuleRequest{
		TransactionReference: p.reference,
		MerchantID:           p.merchant.MerchantID,
		TokenID:              p.token.ID,
		Currency:             p.amount.Currency,
		Country:              p.merchant.Country,
		TransactionType:      p.op,
		SubscriptionID:       p.charge.SubscriptionID,
		Amount:               p.amount.Total(),
	}
	if bin := p.token.BinInfo; bin != nil {
		req.Bin = bin.Bin
		req.Brand = bin.Brand
	}
	return req
}

func amountOf(trx *domain.Transaction) domain.Amount {
	ice := decimal.NewFromFloat(trx.ICEValue)
	return domain.Amount{
		Currency:     trx.CurrencyCode,
		IVA:          decimal.NewFromFloat(trx.IVAValue),
		SubtotalIVA:  decimal.NewFromFloat(trx.SubtotalIVA),
		SubtotalIVA0: decimal.NewFromFloat(trx.SubtotalIVA0),
		ICE:          &ice,
	}
}

// lookupError maps a missing record onto the caller code, anything else stays unexpected
func lookupError(err error, notFound domain.ErrorCode, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.WrapError(notFound, err).WithDetail("resource", what)
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}
	return domain.WrapError(domain.ErrorCodeUnexpected, err)
}
