package transaction

import (
	"context"
	"errors"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var methodTypes = map[string]domain.TransactionType{
	"charge":           domain.TransactionTypeSale,
	"deferred":         domain.TransactionTypeDeferred,
	"preAuthorization": domain.TransactionTypePreauthorization,
	"reauthorization":  domain.TransactionTypeReauthorization,
	"capture":          domain.TransactionTypeCapture,
	"void":             domain.TransactionTypeVoid,
	"validateAccount":  domain.TransactionTypeAccountValidation,
}

// Record brings a late acquirer outcome into the transaction store. The stored
// transaction and the charge metadata are read concurrently; bin info is then
// resolved from the metadata.
func (s *Service) Record(ctx context.Context, req *domain.RecordRequest) (*domain.Transaction, error) {
	if req == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidBody)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, classifier.Normalize(err)
	}
	if s.chargeMeta == nil {
		return nil, classifier.Normalize(domain.NewConfigurationError("charge metadata store is not configured"))
	}

	var (
		existing *domain.Transaction
		meta     *domain.ChargeMetadata
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trx, err := s.repo.GetByID(gctx, req.TransactionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		existing = trx
		return nil
	})
	g.Go(func() error {
		m, err := s.chargeMeta.GetChargeMetadata(gctx, req.TransactionReference)
		if err != nil {
			return lookupError(err, domain.ErrorCodeTransactionNotFound, "charge")
		}
		meta = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, classifier.Normalize(err)
	}

	if existing != nil {
		s.logger.Info("Transaction already recorded",
			ports.String("transaction_id", req.TransactionID))
		return stripReportingFields(existing), nil
	}

	token := &domain.TokenInfo{
		ID:                   meta.TokenID,
		LastFourDigits:       meta.LastFourDigits,
		CardHolderName:       meta.CardHolderName,
		TransactionReference: meta.TransactionReference,
		BinInfo:              &domain.BinInfo{Bin: meta.Bin},
	}

	var (
		merchant  *domain.MerchantInfo
		processor *domain.ProcessorInfo
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.binInfo == nil || meta.Bin == "" {
			return nil
		}
		info, err := s.binInfo.GetBinInfo(gctx, meta.Bin)
		if err != nil {
			s.logger.Warn("Bin info unavailable while recording transaction",
				ports.String("bin", meta.Bin),
				ports.Err(err))
			return nil
		}
		token.BinInfo = info
		return nil
	})
	g.Go(func() error {
		m, err := s.merchants.GetMerchant(gctx, meta.MerchantID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidMerchant, "merchant")
		}
		merchant = m
		return nil
	})
	g.Go(func() error {
		p, err := s.merchants.GetProcessor(gctx, meta.ProcessorID)
		if err != nil {
			return lookupError(err, domain.ErrorCodeInvalidMerchant, "processor")
		}
		processor = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, classifier.Normalize(err)
	}

	op, ok := methodTypes[meta.Method]
	if !ok {
		op = domain.TransactionTypeSale
	}

	bc := BuildContext{
		Token:     token,
		Processor: processor,
		Merchant:  merchant,
		Amount: domain.Amount{
			Currency:     meta.Currency,
			IVA:          decimal.NewFromFloat(meta.IVA),
			SubtotalIVA:  decimal.NewFromFloat(meta.SubtotalIVA),
			SubtotalIVA0: decimal.NewFromFloat(meta.SubtotalIVA0),
		},
		Operation:            op,
		TransactionReference: req.TransactionReference,
		Country:              merchant.Country,
	}
	if req.Approved {
		bc.Response = &domain.ProcessorResponse{
			TransactionDetails: domain.TransactionDetails{
				ApprovalCode:  req.ApprovalCode,
				ProcessorName: processor.ProcessorName,
			},
			TransactionID:        req.TransactionID,
			TicketNumber:         req.TicketNumber,
			ApprovedAmount:       req.ApprovedAmount.StringFixed(2),
			ResponseCode:         req.ResponseCode,
			ResponseText:         req.ResponseText,
			TransactionReference: req.TransactionReference,
		}
	} else {
		bc.Err = &domain.ProcessorError{
			Err:           &domain.UpstreamFailure{TransactionID: req.TransactionID, Code: req.ResponseCode, Message: req.ResponseText},
			Code:          req.ResponseCode,
			Message:       req.ResponseText,
			ProcessorName: processor.ProcessorName,
		}
	}

	trx := s.builder.Build(bc)
	saved, err := s.persister.FinishSaving(ctx, trx)
	if err != nil {
		return nil, classifier.Normalize(err)
	}
	s.logger.Info("Late transaction outcome recorded",
		ports.String("transaction_id", saved.TransactionID),
		ports.String("transaction_status", string(saved.TransactionStatus)))
	return saved, nil
}
