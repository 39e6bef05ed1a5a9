package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	"github.com/shopspring/decimal"
)

// SaveDeclineTrx records a transaction rejected before any charge was attempted.
// Only subtotalIva0 carries the attempted amount.
func (s *Service) SaveDeclineTrx(ctx context.Context, req *domain.DeclineRequest) (*domain.Transaction, error) {
	if req == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidBody)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, classifier.Normalize(err)
	}

	merchant, err := s.merchants.GetMerchant(ctx, req.MerchantID)
	if err != nil {
		return nil, classifier.Normalize(lookupError(err, domain.ErrorCodeInvalidMerchant, "merchant"))
	}

	token, err := s.declineToken(ctx, req)
	if err != nil {
		return nil, classifier.Normalize(err)
	}

	rules := &domain.RuleResponse{Rules: req.Rules}
	if sec := req.Security; sec != nil {
		rules.SecureService = sec.Service
		rules.SecureID = sec.ID
		rules.Partners = sec.Partners
	}

	reference := token.TransactionReference
	if reference == "" {
		reference = uuid.New().String()
	}
	trx := s.builder.Build(BuildContext{
		Err: &domain.ProcessorError{
			Code:    req.ResponseCode,
			Message: req.ResponseText,
		},
		Token:    token,
		Merchant: merchant,
		Rules:    rules,
		Charge: &domain.ChargeRequest{
			SubscriptionID: req.SubscriptionID,
		},
		Metadata: req.Metadata,
		Amount: domain.Amount{
			Currency:     req.Amount.Currency,
			IVA:          decimal.Zero,
			SubtotalIVA:  decimal.Zero,
			SubtotalIVA0: req.Amount.Total(),
		},
		Operation:            domain.TransactionTypeSale,
		TransactionReference: reference,
		Country:              merchant.Country,
	})
	trx.ResponseCode = req.ResponseCode
	trx.ResponseText = req.ResponseText
	if sec := req.Security; sec != nil && trx.Security != nil {
		trx.Security.LimitMerchant = sec.LimitMerchant
		trx.Security.LimitProcessor = sec.LimitProcessor
	}

	saved, err := s.persister.FinishSaving(ctx, trx)
	if err != nil {
		return nil, classifier.Normalize(err)
	}
	s.logger.Info("Declined transaction saved",
		ports.String("transaction_id", saved.TransactionID),
		ports.String("merchant_id", saved.MerchantID),
		ports.String("response_code", saved.ResponseCode))
	return saved, nil
}

// declineToken resolves card data from the token, or from the bin when no token exists
func (s *Service) declineToken(ctx context.Context, req *domain.DeclineRequest) (*domain.TokenInfo, error) {
	if req.TokenID != "" {
		token, err := s.tokens.GetToken(ctx, req.TokenID)
		if err != nil {
			return nil, lookupError(err, domain.ErrorCodeInvalidToken, "token")
		}
		return token, nil
	}

	token := &domain.TokenInfo{LastFourDigits: req.LastFour}
	if req.Bin == "" || s.binInfo == nil {
		return token, nil
	}
	info, err := s.binInfo.GetBinInfo(ctx, req.Bin)
	if err != nil {
		s.logger.Warn("Bin info unavailable for declined transaction",
			ports.String("bin", req.Bin),
			ports.Err(err))
		token.BinInfo = &domain.BinInfo{Bin: req.Bin}
		return token, nil
	}
	token.BinInfo = info
	return token, nil
}
