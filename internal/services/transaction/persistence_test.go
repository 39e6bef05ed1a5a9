package transaction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/services/transaction"
	"github.com/kevin07696/card-gateway/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func savedTransaction() *domain.Transaction {
	return &domain.Transaction{
		TransactionID:        "TX-1",
		TransactionReference: "ref-0001",
		MerchantID:           "20000000100000000000",
		TransactionStatus:    domain.TransactionStatusApproval,
		TransactionType:      domain.TransactionTypeSale,
		ProcessorName:        domain.ProcessorNameCredimatic,
		BinCard:              "424242",
		PaymentBrand:         "VISA",
		CardType:             "credit",
		CardTypeBin:          "debit",
		SocialReason:         "Test Merchant S.A.",
		CategoryMerchant:     "retail",
		TaxID:                "1790000000001",
		CardCountry:          "Ecuador",
		AccountType:          "CC",
		SecureCode:           "323",
		SecureMessage:        "OTP rechazado",
	}
}

func TestFinishSaving_StoresRecordAndStripsResponse(t *testing.T) {
	repo := &mocks.MockTransactionRepository{}
	var stored *domain.Transaction
	repo.On("Put", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Transaction) }).
		Return(nil)

	p := transaction.NewPersister(repo, transaction.PersisterConfig{}, &mocks.RecordingLogger{})
	trx := savedTransaction()

	out, err := p.FinishSaving(context.Background(), trx)
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Empty(t, stored.CardTypeBin, "card type bin never reaches the store")
	assert.Equal(t, "Test Merchant S.A.", stored.SocialReason)
	assert.Equal(t, "323", stored.SecureCode)

	assert.Equal(t, "TX-1", out.TransactionID)
	assert.Empty(t, out.CardTypeBin)
	assert.Empty(t, out.SocialReason)
	assert.Empty(t, out.CategoryMerchant)
	assert.Empty(t, out.TaxID)
	assert.Empty(t, out.CardCountry)
	assert.Empty(t, out.AccountType)
	assert.Empty(t, out.SecureCode)
	assert.Empty(t, out.SecureMessage)

	assert.Equal(t, "debit", trx.CardTypeBin, "input is left untouched")
	repo.AssertExpectations(t)
}

func TestFinishSaving_Duplicate(t *testing.T) {
	tests := []struct {
		name         string
		existing     *domain.Transaction
		lookupErr    error
		wantErr      bool
		wantLogLevel string
		wantLogMsg   string
	}{
		{
			name:         "same logical transaction",
			existing:     &domain.Transaction{TransactionID: "TX-1", TransactionReference: "ref-0001"},
			wantLogLevel: "info",
			wantLogMsg:   "Transaction already saved",
		},
		{
			name:         "different reference",
			existing:     &domain.Transaction{TransactionID: "TX-1", TransactionReference: "ref-9999"},
			wantErr:      true,
			wantLogLevel: "error",
			wantLogMsg:   "Transaction id collision",
		},
		{
			name:         "lookup failure",
			lookupErr:    errors.New("throttled"),
			wantErr:      true,
			wantLogLevel: "error",
			wantLogMsg:   "Transaction id collision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockTransactionRepository{}
			repo.On("Put", mock.Anything, mock.Anything).Return(domain.ErrTransactionExists)
			if tt.existing != nil {
				repo.On("GetByID", mock.Anything, "TX-1").Return(tt.existing, nil)
			} else {
				repo.On("GetByID", mock.Anything, "TX-1").Return(nil, tt.lookupErr)
			}
			logger := &mocks.RecordingLogger{}
			p := transaction.NewPersister(repo, transaction.PersisterConfig{}, logger)

			out, err := p.FinishSaving(context.Background(), savedTransaction())

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, out)
				assert.Equal(t, domain.ErrorCodeDuplicateTransaction, domain.GetErrorCode(err))
				assert.ErrorIs(t, err, domain.ErrTransactionExists)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "TX-1", out.TransactionID)
			}
			assert.True(t, logger.Has(tt.wantLogLevel, tt.wantLogMsg))
		})
	}
}

func TestFinishSaving_PutFailure(t *testing.T) {
	repo := &mocks.MockTransactionRepository{}
	boom := errors.New("provisioned throughput exceeded")
	repo.On("Put", mock.Anything, mock.Anything).Return(boom)
	logger := &mocks.RecordingLogger{}
	p := transaction.NewPersister(repo, transaction.PersisterConfig{}, logger)

	out, err := p.FinishSaving(context.Background(), savedTransaction())

	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
	assert.True(t, logger.Has("error", "Failed to save transaction"))
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func kushkiTransaction(brand string) *domain.Transaction {
	trx := savedTransaction()
	trx.ProcessorName = domain.ProcessorNameKushki
	trx.ProcessorType = domain.ProcessorTypeKushki
	trx.PaymentBrand = brand
	trx.BinCard = "601234"
	trx.CardType = "credit"
	return trx
}

func TestFinishSaving_BinCorrection(t *testing.T) {
	tests := []struct {
		name       string
		trx        *domain.Transaction
		stored     string
		storedErr  error
		authority  string
		wantLookup bool
		wantUpdate bool
	}{
		{
			name:       "stored card type differs",
			trx:        kushkiTransaction("Carnet"),
			stored:     "credit",
			authority:  "DEBIT",
			wantLookup: true,
			wantUpdate: true,
		},
		{
			name:       "bin not stored yet",
			trx:        kushkiTransaction("Carnet"),
			storedErr:  domain.ErrNotFound,
			authority:  "debit",
			wantLookup: true,
			wantUpdate: true,
		},
		{
			name:       "stored card type already correct",
			trx:        kushkiTransaction("Carnet"),
			stored:     "debit",
			authority:  "Debit",
			wantLookup: true,
		},
		{
			name: "trusted brand",
			trx:  kushkiTransaction("Visa"),
		},
		{
			name: "other processor",
			trx:  savedTransaction(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockTransactionRepository{}
			repo.On("Put", mock.Anything, mock.Anything).Return(nil)
			binInfo := &mocks.MockBinInfoProvider{}
			binStore := &mocks.MockBinCardTypeStore{}
			if tt.wantLookup {
				binInfo.On("GetBinInfo", mock.Anything, "601234").
					Return(&domain.BinInfo{Bin: "601234", CardType: tt.authority}, nil)
				binStore.On("GetCardType", mock.Anything, "601234").Return(tt.stored, tt.storedErr)
			}
			if tt.wantUpdate {
				binStore.On("UpdateCardType", mock.Anything, "601234", "debit").Return(nil)
			}

			p := transaction.NewPersister(repo, transaction.PersisterConfig{
				BinInfo:  binInfo,
				BinStore: binStore,
			}, &mocks.RecordingLogger{})

			_, err := p.FinishSaving(context.Background(), tt.trx)
			require.NoError(t, err)
			p.Wait()

			binInfo.AssertExpectations(t)
			binStore.AssertExpectations(t)
			if !tt.wantLookup {
				binInfo.AssertNotCalled(t, "GetBinInfo", mock.Anything, mock.Anything)
			}
			if !tt.wantUpdate {
				binStore.AssertNotCalled(t, "UpdateCardType", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestFinishSaving_BinCorrectionFailureDoesNotFailSave(t *testing.T) {
	repo := &mocks.MockTransactionRepository{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	binInfo := &mocks.MockBinInfoProvider{}
	binInfo.On("GetBinInfo", mock.Anything, "601234").Return(nil, errors.New("bin service down"))
	logger := &mocks.RecordingLogger{}

	p := transaction.NewPersister(repo, transaction.PersisterConfig{
		BinInfo:  binInfo,
		BinStore: &mocks.MockBinCardTypeStore{},
	}, logger)

	out, err := p.FinishSaving(context.Background(), kushkiTransaction("Carnet"))
	p.Wait()

	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.True(t, logger.Has("warn", "Bin info lookup failed during card type correction"))
}

func declinedValidation() *domain.Transaction {
	trx := savedTransaction()
	trx.TransactionStatus = domain.TransactionStatusDeclined
	trx.IsSubscriptionValidation = true
	trx.SubscriptionID = "sub-1"
	trx.ResponseCode = "051"
	trx.ResponseText = "Fondos insuficientes"
	trx.SubscriptionPlan = &domain.SubscriptionPlan{PlanName: "gold", Periodicity: "monthly", StartDate: "2026-01-01"}
	return trx
}

func TestFinishSaving_SubscriptionAttempt(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(trx *domain.Transaction)
		wantCode    string
		wantMessage string
	}{
		{
			name: "first failing rule",
			mutate: func(trx *domain.Transaction) {
				trx.Rules = []domain.Rule{
					{Code: transaction.RuleCodeOK, Message: "ok"},
					{Code: transaction.RuleCode3DSSuccess, Message: "3ds ok"},
					{Code: "323", Message: "OTP fallido"},
				}
			},
			wantCode:    "323",
			wantMessage: "OTP fallido",
		},
		{
			name:        "response text",
			mutate:      func(trx *domain.Transaction) {},
			wantCode:    "051",
			wantMessage: "Fondos insuficientes",
		},
		{
			name:        "default message",
			mutate:      func(trx *domain.Transaction) { trx.ResponseText = "" },
			wantCode:    "051",
			wantMessage: domain.DefaultAttemptMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockTransactionRepository{}
			repo.On("Put", mock.Anything, mock.Anything).Return(nil)
			attempts := &mocks.MockAttemptPublisher{}
			var published *domain.SubscriptionAttempt
			attempts.On("PublishAttempt", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { published = args.Get(1).(*domain.SubscriptionAttempt) }).
				Return(nil)

			p := transaction.NewPersister(repo, transaction.PersisterConfig{Attempts: attempts}, &mocks.RecordingLogger{})
			trx := declinedValidation()
			tt.mutate(trx)

			_, err := p.FinishSaving(context.Background(), trx)
			require.NoError(t, err)

			require.NotNil(t, published)
			assert.NotEmpty(t, published.ID)
			assert.Equal(t, tt.wantCode, published.Code)
			assert.Equal(t, tt.wantMessage, published.Message)
			assert.Equal(t, "ref-0001", published.TransactionReference)
			assert.Equal(t, "sub-1", published.SubscriptionID)
			assert.Equal(t, "gold", published.PlanName)
			assert.Equal(t, "monthly", published.Periodicity)
		})
	}
}

func TestFinishSaving_NoAttemptForApprovedValidation(t *testing.T) {
	repo := &mocks.MockTransactionRepository{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	attempts := &mocks.MockAttemptPublisher{}

	p := transaction.NewPersister(repo, transaction.PersisterConfig{Attempts: attempts}, &mocks.RecordingLogger{})
	trx := declinedValidation()
	trx.TransactionStatus = domain.TransactionStatusApproval

	_, err := p.FinishSaving(context.Background(), trx)
	require.NoError(t, err)
	attempts.AssertNotCalled(t, "PublishAttempt", mock.Anything, mock.Anything)
}

func TestFinishSaving_AttemptPublishFailureIsLogged(t *testing.T) {
	repo := &mocks.MockTransactionRepository{}
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	attempts := &mocks.MockAttemptPublisher{}
	attempts.On("PublishAttempt", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	logger := &mocks.RecordingLogger{}

	p := transaction.NewPersister(repo, transaction.PersisterConfig{Attempts: attempts}, logger)

	out, err := p.FinishSaving(context.Background(), declinedValidation())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.True(t, logger.Has("error", "Failed to publish subscription attempt"))
}
