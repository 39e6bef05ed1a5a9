package classifier_test

import (
	"testing"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/services/classifier"
	pkgerrors "github.com/kevin07696/card-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHomologate(t *testing.T) {
	tests := []struct {
		code         string
		wantCode     string
		wantKushki   domain.ErrorCode
		wantCategory pkgerrors.ErrorCategory
	}{
		{"051", "51", domain.ErrorCodeDeclined, pkgerrors.CategoryInsufficientFunds},
		{"51", "51", domain.ErrorCodeDeclined, pkgerrors.CategoryInsufficientFunds},
		{"5", "05", domain.ErrorCodeDeclined, pkgerrors.CategoryDeclined},
		{"228", "91", domain.ErrorCodeProcessorUnreachable, pkgerrors.CategoryNetworkError},
		{"212", "03", domain.ErrorCodeInvalidMerchant, pkgerrors.CategoryInvalidRequest},
		{"8888", "8888", domain.ErrorCodeDeclined, pkgerrors.CategoryDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			info := classifier.Homologate(tt.code)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, tt.wantCode, info.ProcessorCode)
			assert.Equal(t, tt.wantKushki, info.KushkiCode)
			assert.Equal(t, tt.wantCategory, info.Category)
			assert.NotEmpty(t, info.ProcessorMessage)
		})
	}
}

func TestHomologate_TransportCategories(t *testing.T) {
	assert.True(t, classifier.Homologate("228").Category.IsTransport())
	assert.True(t, classifier.Homologate("096").Category.IsTransport())
	assert.False(t, classifier.Homologate("051").Category.IsTransport())
}
