package ports

import (
	"context"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// TokenFetcher resolves card tokens
type TokenFetcher interface {
	GetToken(ctx context.Context, tokenID string) (*domain.TokenInfo, error)
}

// MerchantFetcher resolves merchant and processor configuration
type MerchantFetcher interface {
	GetMerchant(ctx context.Context, merchantID string) (*domain.MerchantInfo, error)
	GetProcessor(ctx context.Context, processorID string) (*domain.ProcessorInfo, error)
}

// RuleRequest is the input of a rule-engine evaluation
type RuleRequest struct {
	TransactionReference string
	MerchantID           string
	TokenID              string
	Currency             string
	Bin                  string
	Brand                string
	Country              string
	TransactionType      domain.TransactionType
	SubscriptionID       string
	Amount               decimal.Decimal
}

// RuleEngine chooses the processor and may reject a transaction before charging.
// Rejections are returned as *domain.DomainError with code K322.
type RuleEngine interface {
	Evaluate(ctx context.Context, req *RuleRequest) (*domain.RuleResponse, error)
}

// BinInfoProvider resolves authoritative bin metadata
type BinInfoProvider interface {
	GetBinInfo(ctx context.Context, bin string) (*domain.BinInfo, error)
}

// BinCardTypeStore is the side table holding the card type detected per bin
type BinCardTypeStore interface {
	GetCardType(ctx context.Context, bin string) (string, error)
	UpdateCardType(ctx context.Context, bin, cardType string) error
}

// AttemptPublisher emits subscription-attempt events
type AttemptPublisher interface {
	PublishAttempt(ctx context.Context, attempt *domain.SubscriptionAttempt) error
}
