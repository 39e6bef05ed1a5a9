// Package mocks provides shared mock implementations of the domain ports for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository mocks ports.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Put(ctx context.Context, trx *domain.Transaction) error {
	args := m.Called(ctx, trx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Transaction, error) {
	args := m.Called(ctx, ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockFailedChargeRecorder mocks ports.FailedChargeRecorder
type MockFailedChargeRecorder struct {
	mock.Mock
}

func (m *MockFailedChargeRecorder) RecordFailedCharge(ctx context.Context, rec *domain.FailedCharge) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockChargeMetadataStore mocks ports.ChargeMetadataStore
type MockChargeMetadataStore struct {
	mock.Mock
}

func (m *MockChargeMetadataStore) SaveChargeMetadata(ctx context.Context, meta *domain.ChargeMetadata) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockChargeMetadataStore) GetChargeMetadata(ctx context.Context, transactionReference string) (*domain.ChargeMetadata, error) {
	args := m.Called(ctx, transactionReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeMetadata), args.Error(1)
}

// MockProcessorInvoker mocks ports.ProcessorInvoker
type MockProcessorInvoker struct {
	mock.Mock
}

func (m *MockProcessorInvoker) Invoke(ctx context.Context, call *ports.ProcessorCall) (*ports.RawResponse, error) {
	args := m.Called(ctx, call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RawResponse), args.Error(1)
}

// MockTokenFetcher mocks ports.TokenFetcher
type MockTokenFetcher struct {
	mock.Mock
}

func (m *MockTokenFetcher) GetToken(ctx context.Context, tokenID string) (*domain.TokenInfo, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenInfo), args.Error(1)
}

// MockMerchantFetcher mocks ports.MerchantFetcher
type MockMerchantFetcher struct {
	mock.Mock
}

func (m *MockMerchantFetcher) GetMerchant(ctx context.Context, merchantID string) (*domain.MerchantInfo, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MerchantInfo), args.Error(1)
}

func (m *MockMerchantFetcher) GetProcessor(ctx context.Context, processorID string) (*domain.ProcessorInfo, error) {
	args := m.Called(ctx, processorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorInfo), args.Error(1)
}

// MockRuleEngine mocks ports.RuleEngine
type MockRuleEngine struct {
	mock.Mock
}

func (m *MockRuleEngine) Evaluate(ctx context.Context, req *ports.RuleRequest) (*domain.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RuleResponse), args.Error(1)
}

// MockBinInfoProvider mocks ports.BinInfoProvider
type MockBinInfoProvider struct {
	mock.Mock
}

func (m *MockBinInfoProvider) GetBinInfo(ctx context.Context, bin string) (*domain.BinInfo, error) {
	args := m.Called(ctx, bin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BinInfo), args.Error(1)
}

// MockBinCardTypeStore mocks ports.BinCardTypeStore
type MockBinCardTypeStore struct {
	mock.Mock
}

func (m *MockBinCardTypeStore) GetCardType(ctx context.Context, bin string) (string, error) {
	args := m.Called(ctx, bin)
	return args.String(0), args.Error(1)
}

func (m *MockBinCardTypeStore) UpdateCardType(ctx context.Context, bin, cardType string) error {
	args := m.Called(ctx, bin, cardType)
	return args.Error(0)
}

// MockAttemptPublisher mocks ports.AttemptPublisher
type MockAttemptPublisher struct {
	mock.Mock
}

func (m *MockAttemptPublisher) PublishAttempt(ctx context.Context, attempt *domain.SubscriptionAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// RecordingLogger captures log entries without expectations
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

// LogEntry is one captured log call
type LogEntry struct {
	Level   string
	Message string
	Fields  []ports.Field
}

func (l *RecordingLogger) record(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (l *RecordingLogger) Info(msg string, fields ...ports.Field)  { l.record("info", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...ports.Field) { l.record("error", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...ports.Field)  { l.record("warn", msg, fields) }
func (l *RecordingLogger) Debug(msg string, fields ...ports.Field) { l.record("debug", msg, fields) }

// Has reports whether a message was logged at level
func (l *RecordingLogger) Has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
