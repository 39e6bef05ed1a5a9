package dynamo

import (
	"context"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tokenItem stores the token amount as a plain number
type tokenItem struct {
	domain.TokenInfo
	Amount float64 `json:"amount"`
}

// TokenRepository implements ports.TokenFetcher on the tokens table
type TokenRepository struct {
	client DynamoDBAPI
	table  string
	logger *zap.Logger
}

// NewTokenRepository creates a token repository
func NewTokenRepository(client DynamoDBAPI, table string, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{client: client, table: table, logger: logger}
}

// GetToken resolves a card token
func (r *TokenRepository) GetToken(ctx context.Context, tokenID string) (*domain.TokenInfo, error) {
	var item tokenItem
	if err := getItem(ctx, r.client, r.table, "id", tokenID, &item); err != nil {
		return nil, err
	}
	token := item.TokenInfo
	token.Amount = decimal.NewFromFloat(item.Amount)
	return &token, nil
}

// MerchantRepository implements ports.MerchantFetcher on the merchant and processor tables
type MerchantRepository struct {
	client         DynamoDBAPI
	merchantTable  string
	processorTable string
	logger         *zap.Logger
}

// NewMerchantRepository creates a merchant repository
func NewMerchantRepository(client DynamoDBAPI, merchantTable, processorTable string, logger *zap.Logger) *MerchantRepository {
	return &MerchantRepository{
		client:         client,
		merchantTable:  merchantTable,
		processorTable: processorTable,
		logger:         logger,
	}
}

// GetMerchant resolves a merchant by its public id
func (r *MerchantRepository) GetMerchant(ctx context.Context, merchantID string) (*domain.MerchantInfo, error) {
	var merchant domain.MerchantInfo
	if err := getItem(ctx, r.client, r.merchantTable, "public_id", merchantID, &merchant); err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetProcessor resolves a processor by its public id
func (r *MerchantRepository) GetProcessor(ctx context.Context, processorID string) (*domain.ProcessorInfo, error) {
	var processor domain.ProcessorInfo
	if err := getItem(ctx, r.client, r.processorTable, "public_id", processorID, &processor); err != nil {
		return nil, err
	}
	return &processor, nil
}
