package ports

import (
	"context"

	"github.com/kevin07696/card-gateway/internal/domain"
)

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// Put inserts a transaction only if its transaction_id does not exist yet.
	// Returns domain.ErrTransactionExists when the condition fails.
	Put(ctx context.Context, trx *domain.Transaction) error

	// GetByID retrieves a transaction by its ID, domain.ErrNotFound when absent
	GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// GetByTicketNumber retrieves the transaction an acquirer ticket belongs to
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Transaction, error)
}

// FailedChargeRecorder stores audit records of charges that failed upstream
type FailedChargeRecorder interface {
	RecordFailedCharge(ctx context.Context, rec *domain.FailedCharge) error
}

// ChargeMetadataStore keeps the charge context needed to reconcile late acquirer outcomes
type ChargeMetadataStore interface {
	SaveChargeMetadata(ctx context.Context, meta *domain.ChargeMetadata) error
	GetChargeMetadata(ctx context.Context, transactionReference string) (*domain.ChargeMetadata, error)
}
