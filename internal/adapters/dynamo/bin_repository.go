package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kevin07696/card-gateway/internal/domain"
	"go.uber.org/zap"
)

// BinRepository serves bin metadata and the per-bin card type side table
type BinRepository struct {
	client DynamoDBAPI
	table  string
	logger *zap.Logger
	now    func() time.Time
}

// NewBinRepository creates a bin repository
func NewBinRepository(client DynamoDBAPI, table string, logger *zap.Logger) *BinRepository {
	return &BinRepository{client: client, table: table, logger: logger, now: time.Now}
}

// GetBinInfo implements ports.BinInfoProvider
func (r *BinRepository) GetBinInfo(ctx context.Context, bin string) (*domain.BinInfo, error) {
	var info domain.BinInfo
	if err := getItem(ctx, r.client, r.table, "bin", bin, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetCardType implements ports.BinCardTypeStore. An unknown bin has no card type.
func (r *BinRepository) GetCardType(ctx context.Context, bin string) (string, error) {
	info, err := r.GetBinInfo(ctx, bin)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return info.CardType, nil
}

// UpdateCardType implements ports.BinCardTypeStore
func (r *BinRepository) UpdateCardType(ctx context.Context, bin, cardType string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              stringKey("bin", bin),
		UpdateExpression: aws.String("SET cardType = :type, updated = :updated"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type":    &types.AttributeValueMemberS{Value: cardType},
			":updated": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", r.now().UnixMilli())},
		},
	})
	if err != nil {
		return fmt.Errorf("update bin card type: %w", err)
	}

	r.logger.Info("Bin card type updated",
		zap.String("bin", bin),
		zap.String("card_type", cardType))
	return nil
}
