package security

import (
	"errors"
	"testing"

	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_ConvertsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Warn("credit type truncated",
		ports.String("credit_type", "002"),
		ports.Int("months", 3),
		ports.Err(errors.New("boom")),
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "credit type truncated", entries[0].Message)
		assert.Equal(t, "002", ctx["credit_type"])
		assert.EqualValues(t, 3, ctx["months"])
	}
}

func TestZapLoggerAdapter_RedactsCardData(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info("request built",
		ports.String("CVV", "123"),
		ports.String("card_number", "4111111111111111"),
		ports.String("bin", "411111"),
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, redacted, ctx["CVV"])
		assert.Equal(t, redacted, ctx["card_number"])
		assert.Equal(t, "411111", ctx["bin"])
	}
}

func TestZapLoggerAdapter_ErrorField(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	NewZapLogger(zap.New(core)).Error("persist failed", ports.Err(errors.New("throttled")))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "throttled", entries[0].ContextMap()["error"])
	}
}
