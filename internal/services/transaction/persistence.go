package transaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/pkg/observability"
	"golang.org/x/time/rate"
)

// Brands whose card type the Kushki acquirer detects reliably
var trustedBrands = map[string]bool{
	domain.BrandVisa:       true,
	domain.BrandMastercard: true,
}

const binCorrectionTimeout = 5 * time.Second

// PersisterConfig holds the optional collaborators of a Persister
type PersisterConfig struct {
	BinInfo         ports.BinInfoProvider  // nil disables bin correction
	BinStore        ports.BinCardTypeStore // nil disables bin correction
	Attempts        ports.AttemptPublisher // nil disables subscription-attempt events
	CorrectionRate  rate.Limit
	CorrectionBurst int
}

// Persister writes transactions and runs their side effects
type Persister struct {
	repo     ports.TransactionRepository
	binInfo  ports.BinInfoProvider
	binStore ports.BinCardTypeStore
	attempts ports.AttemptPublisher
	limiter  *rate.Limiter
	logger   ports.Logger
	wg       sync.WaitGroup
}

// NewPersister creates a persister
func NewPersister(repo ports.TransactionRepository, cfg PersisterConfig, logger ports.Logger) *Persister {
	burst := cfg.CorrectionBurst
	if burst <= 0 {
		burst = 1
	}
	limit := cfg.CorrectionRate
	if limit == 0 {
		limit = rate.Inf
	}
	return &Persister{
		repo:     repo,
		binInfo:  cfg.BinInfo,
		binStore: cfg.BinStore,
		attempts: cfg.Attempts,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// FinishSaving writes the transaction at most once and returns the caller-facing copy
func (p *Persister) FinishSaving(ctx context.Context, trx *domain.Transaction) (*domain.Transaction, error) {
	record := trx.Clone()
	record.CardTypeBin = ""
	// Empty ticket numbers are dropped by the store's omitempty marshalling

	if err := p.repo.Put(ctx, record); err != nil {
		if !errors.Is(err, domain.ErrTransactionExists) {
			p.logger.Error("Failed to save transaction",
				ports.String("transaction_id", trx.TransactionID),
				ports.Err(err))
			return nil, err
		}
		if dupErr := p.checkDuplicate(ctx, trx); dupErr != nil {
			return nil, dupErr
		}
	} else {
		observability.RecordTransaction(string(trx.ProcessorType), string(trx.TransactionType),
			string(trx.TransactionStatus), trx.ResponseCode)
	}

	if p.needsBinCorrection(trx) {
		p.correctBinCardType(trx.BinCard, trx.CardType)
	}

	if trx.IsSubscriptionValidation && trx.IsDeclined() {
		p.publishAttempt(ctx, trx)
	}

	return stripReportingFields(trx), nil
}

// checkDuplicate tells a retry of the same logical transaction from an id collision
func (p *Persister) checkDuplicate(ctx context.Context, trx *domain.Transaction) error {
	existing, err := p.repo.GetByID(ctx, trx.TransactionID)
	if err == nil && existing.TransactionReference == trx.TransactionReference {
		observability.RecordDuplicateWrite("benign")
		p.logger.Info("Transaction already saved",
			ports.String("transaction_id", trx.TransactionID),
			ports.String("transaction_reference", trx.TransactionReference))
		return nil
	}

	observability.RecordDuplicateWrite("conflict")
	p.logger.Error("Transaction id collision",
		ports.String("transaction_id", trx.TransactionID),
		ports.String("transaction_reference", trx.TransactionReference))
	return domain.WrapError(domain.ErrorCodeDuplicateTransaction, domain.ErrTransactionExists).
		WithDetail("transaction_id", trx.TransactionID)
}

func (p *Persister) needsBinCorrection(trx *domain.Transaction) bool {
	if p.binInfo == nil || p.binStore == nil || trx.BinCard == "" {
		return false
	}
	if trx.ProcessorName != domain.ProcessorNameKushki {
		return false
	}
	return !trustedBrands[strings.ToLower(strings.TrimSpace(trx.PaymentBrand))]
}

// correctBinCardType runs in the background and never affects the saved transaction
func (p *Persister) correctBinCardType(bin, detected string) {
	if !p.limiter.Allow() {
		observability.RecordBinCorrection("throttled")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), binCorrectionTimeout)
		defer cancel()

		info, err := p.binInfo.GetBinInfo(ctx, bin)
		if err != nil || info == nil || info.CardType == "" {
			observability.RecordBinCorrection("failed")
			p.logger.Warn("Bin info lookup failed during card type correction",
				ports.String("bin", bin),
				ports.Err(err))
			return
		}

		stored, err := p.binStore.GetCardType(ctx, bin)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			observability.RecordBinCorrection("failed")
			p.logger.Warn("Failed to read stored card type",
				ports.String("bin", bin),
				ports.Err(err))
			return
		}
		if strings.EqualFold(stored, info.CardType) {
			observability.RecordBinCorrection("unchanged")
			return
		}

		if err := p.binStore.UpdateCardType(ctx, bin, strings.ToLower(info.CardType)); err != nil {
			observability.RecordBinCorrection("failed")
			p.logger.Warn("Failed to correct bin card type",
				ports.String("bin", bin),
				ports.Err(err))
			return
		}
		observability.RecordBinCorrection("corrected")
		p.logger.Info("Bin card type corrected",
			ports.String("bin", bin),
			ports.String("stored", stored),
			ports.String("detected", detected),
			ports.String("authoritative", info.CardType))
	}()
}

// Wait blocks until background corrections finish
func (p *Persister) Wait() {
	p.wg.Wait()
}

func (p *Persister) publishAttempt(ctx context.Context, trx *domain.Transaction) {
	if p.attempts == nil {
		return
	}
	code, message := attemptReason(trx)
	attempt := &domain.SubscriptionAttempt{
		ID:                   uuid.New().String(),
		Code:                 code,
		Message:              message,
		Description:          message,
		TransactionReference: trx.TransactionReference,
		MerchantID:           trx.MerchantID,
		SubscriptionID:       trx.SubscriptionID,
		Created:              trx.Created,
	}
	if plan := trx.SubscriptionPlan; plan != nil {
		attempt.PlanName = plan.PlanName
		attempt.Periodicity = plan.Periodicity
		attempt.StartDate = plan.StartDate
	}

	if err := p.attempts.PublishAttempt(ctx, attempt); err != nil {
		observability.RecordSubscriptionAttempt("failed")
		p.logger.Error("Failed to publish subscription attempt",
			ports.String("transaction_reference", trx.TransactionReference),
			ports.Err(err))
		return
	}
	observability.RecordSubscriptionAttempt("published")
}

// attemptReason prefers rule data, then the response text, then a generic text
func attemptReason(trx *domain.Transaction) (string, string) {
	for _, r := range trx.Rules {
		if r.Code != "" && r.Code != RuleCodeOK && r.Code != RuleCode3DSSuccess {
			msg := r.Message
			if msg == "" {
				msg = domain.DefaultAttemptMessage
			}
			return r.Code, msg
		}
	}
	if trx.ResponseText != "" {
		return trx.ResponseCode, trx.ResponseText
	}
	return trx.ResponseCode, domain.DefaultAttemptMessage
}

// stripReportingFields drops the fields only the stored record needs
func stripReportingFields(trx *domain.Transaction) *domain.Transaction {
	out := trx.Clone()
	out.CardTypeBin = ""
	out.SocialReason = ""
	out.CategoryMerchant = ""
	out.TaxID = ""
	out.CardCountry = ""
	out.CardCountryCode = ""
	out.AccountType = ""
	out.SecureCode = ""
	out.SecureMessage = ""
	return out
}
