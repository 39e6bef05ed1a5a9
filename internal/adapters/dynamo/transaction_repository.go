package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kevin07696/card-gateway/internal/domain"
	"go.uber.org/zap"
)

// TransactionRepository implements ports.TransactionRepository on the transactions table
type TransactionRepository struct {
	client      DynamoDBAPI
	table       string
	ticketIndex string
	logger      *zap.Logger
}

// NewTransactionRepository creates a transaction repository. ticketIndex is the
// global secondary index keyed by ticket_number.
func NewTransactionRepository(client DynamoDBAPI, table, ticketIndex string, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		client:      client,
		table:       table,
		ticketIndex: ticketIndex,
		logger:      logger,
	}
}

// Put inserts the transaction unless its transaction_id already exists
func (r *TransactionRepository) Put(ctx context.Context, trx *domain.Transaction) error {
	item, err := marshalItem(trx)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(transaction_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrTransactionExists
		}
		r.logger.Error("Failed to put transaction",
			zap.String("transaction_id", trx.TransactionID),
			zap.Error(err))
		return fmt.Errorf("put transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var trx domain.Transaction
	if err := getItem(ctx, r.client, r.table, "transaction_id", transactionID, &trx); err != nil {
		return nil, err
	}
	return &trx, nil
}

// GetByTicketNumber retrieves the transaction an acquirer ticket belongs to
func (r *TransactionRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Transaction, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.ticketIndex),
		KeyConditionExpression: aws.String("ticket_number = :ticket"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ticket": &types.AttributeValueMemberS{Value: ticketNumber},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query transaction by ticket: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, domain.ErrNotFound
	}

	var trx domain.Transaction
	if err := unmarshalItem(resp.Items[0], &trx); err != nil {
		return nil, err
	}
	return &trx, nil
}
