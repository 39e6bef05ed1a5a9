package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/kevin07696/card-gateway/internal/domain"
	"go.uber.org/zap"
)

// ChargeRepository stores charge metadata and failed-charge audit records
type ChargeRepository struct {
	client      DynamoDBAPI
	chargeTable string
	failedTable string
	logger      *zap.Logger
}

// NewChargeRepository creates a charge repository
func NewChargeRepository(client DynamoDBAPI, chargeTable, failedTable string, logger *zap.Logger) *ChargeRepository {
	return &ChargeRepository{
		client:      client,
		chargeTable: chargeTable,
		failedTable: failedTable,
		logger:      logger,
	}
}

// SaveChargeMetadata implements ports.ChargeMetadataStore
func (r *ChargeRepository) SaveChargeMetadata(ctx context.Context, meta *domain.ChargeMetadata) error {
	return r.put(ctx, r.chargeTable, meta)
}

// GetChargeMetadata implements ports.ChargeMetadataStore
func (r *ChargeRepository) GetChargeMetadata(ctx context.Context, transactionReference string) (*domain.ChargeMetadata, error) {
	var meta domain.ChargeMetadata
	if err := getItem(ctx, r.client, r.chargeTable, "transaction_reference", transactionReference, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// RecordFailedCharge implements ports.FailedChargeRecorder
func (r *ChargeRepository) RecordFailedCharge(ctx context.Context, rec *domain.FailedCharge) error {
	if err := r.put(ctx, r.failedTable, rec); err != nil {
		r.logger.Error("Failed to record failed charge",
			zap.String("transaction_reference", rec.TransactionReference),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *ChargeRepository) put(ctx context.Context, table string, v interface{}) error {
	item, err := marshalItem(v)
	if err != nil {
		return err
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item into %s: %w", table, err)
	}
	return nil
}
