package gateway_test

import (
	"testing"

	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/services/gateway"
	"github.com/kevin07696/card-gateway/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
)

func newDeferredResolver() (*gateway.DeferredResolver, *mocks.RecordingLogger) {
	logger := &mocks.RecordingLogger{}
	return gateway.NewDeferredResolver(&config.DeferredConfig{
		ExemptCurrencies:     []string{"CLP"},
		NoInterestCreditType: "01",
	}, logger), logger
}

func TestDeferredResolver_Resolve(t *testing.T) {
	tests := []struct {
		name          string
		currency      string
		processorName string
		isCard        bool
		in            *domain.Deferred
		want          *domain.Deferred
	}{
		{
			name:     "exempt currency skips deferred",
			currency: "clp",
			in:       &domain.Deferred{CreditType: "02", Months: 3},
			want:     nil,
		},
		{
			name:     "no-interest credit type skips deferred",
			currency: "USD",
			in:       &domain.Deferred{CreditType: "01", Months: 3},
			want:     nil,
		},
		{
			name:          "datafast card sale without deferred gets default marker",
			currency:      "USD",
			processorName: domain.ProcessorNameDatafast,
			isCard:        true,
			want:          &domain.Deferred{CreditType: "03", GraceMonths: "0"},
		},
		{
			name:          "datafast subscription without deferred gets nothing",
			currency:      "USD",
			processorName: domain.ProcessorNameDatafast,
			isCard:        false,
			want:          nil,
		},
		{
			name:          "other processor without deferred gets nothing",
			currency:      "USD",
			processorName: domain.ProcessorNameCredimatic,
			isCard:        true,
			want:          nil,
		},
		{
			name:     "copied as is",
			currency: "USD",
			in:       &domain.Deferred{CreditType: "02", GraceMonths: "1", Months: 6},
			want:     &domain.Deferred{CreditType: "02", GraceMonths: "1", Months: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newDeferredResolver()
			got := r.Resolve(tt.currency, tt.processorName, tt.isCard, tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeferredResolver_TruncatesLongCreditType(t *testing.T) {
	r, logger := newDeferredResolver()
	in := &domain.Deferred{CreditType: "002", GraceMonths: "0", Months: 3}

	got := r.Resolve("USD", domain.ProcessorNameCredimatic, true, in)

	assert.Equal(t, "02", got.CreditType)
	assert.Equal(t, "002", in.CreditType, "input must not be mutated")
	assert.True(t, logger.Has("warn", "deferred credit type longer than 2 characters, truncating"))
}
