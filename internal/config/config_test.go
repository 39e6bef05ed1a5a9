package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DYNAMO_TRANSACTION", "transactions")
	t.Setenv("LAMBDA_KUSHKI_ACQ", "kushki-acq-charge")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	rate, ok := cfg.Amount.IVARate("usd")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.15")))
	assert.Equal(t, "01", cfg.Deferred.NoInterestCreditType)
	assert.True(t, cfg.Deferred.IsExemptCurrency("clp"))
	assert.Equal(t, "Kushki Acquirer Processor", cfg.CVV.ForceProcessor)
	assert.Equal(t, 10*time.Second, cfg.Failover.MinRemaining)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("DYNAMO_TRANSACTION", "")
	t.Setenv("LAMBDA_KUSHKI_ACQ", "fn")

	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "DYNAMO_TRANSACTION")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("IVA_RATES", "USD:0.12, COP:0.19")
	t.Setenv("AMOUNT_EXEMPT_PROCESSORS", "proc-1, proc-2")
	t.Setenv("FAILOVER_PROCESSORS", "Credimatic Processor=proc-9;Datafast Processor=proc-8")
	t.Setenv("FAILOVER_MIN_REMAINING", "4s")
	t.Setenv("AUDIT_EXEMPT_MERCHANTS", "m1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	rate, ok := cfg.Amount.IVARate("USD")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.12")))
	_, ok = cfg.Amount.IVARate("PEN")
	assert.False(t, ok)

	assert.True(t, cfg.Amount.IsExemptProcessor("proc-2"))
	assert.False(t, cfg.Amount.IsExemptProcessor("proc-3"))
	assert.Equal(t, "proc-9", cfg.Failover.Processors["Credimatic Processor"])
	assert.Equal(t, 4*time.Second, cfg.Failover.MinRemaining)
	assert.True(t, cfg.Audit.IsExemptMerchant("m1"))
}

func TestLoadFromEnv_InvalidRates(t *testing.T) {
	setRequired(t)
	t.Setenv("IVA_RATES", "USD=0.12")

	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "IVA_RATES")
}
