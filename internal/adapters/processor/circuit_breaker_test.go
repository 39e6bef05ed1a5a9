package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, OpenTimeout: time.Second, MaxProbes: 1})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	assert.Equal(t, uint32(5), cfg.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.OpenTimeout)
	assert.Equal(t, uint32(1), cfg.MaxProbes)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	for i := 0; i < 3; i++ {
		assert.NoError(t, cb.Allow("Aurus"))
		cb.Record("Aurus", true)
	}

	assert.Equal(t, StateOpen, cb.State("Aurus"))
	assert.ErrorIs(t, cb.Allow("Aurus"), ErrCircuitOpen)
	assert.Equal(t, StateClosed, cb.State("Transbank"), "circuits are per processor")
	assert.NoError(t, cb.Allow("Transbank"))
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	cb.Record("Aurus", true)
	cb.Record("Aurus", true)
	cb.Record("Aurus", false)
	cb.Record("Aurus", true)
	cb.Record("Aurus", true)

	assert.Equal(t, StateClosed, cb.State("Aurus"))
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name      string
		probeFail bool
		want      CircuitState
	}{
		{name: "probe success closes", probeFail: false, want: StateClosed},
		{name: "probe failure reopens", probeFail: true, want: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			cb := newTestBreaker(&now)
			for i := 0; i < 3; i++ {
				cb.Record("Aurus", true)
			}

			now = now.Add(2 * time.Second)
			assert.NoError(t, cb.Allow("Aurus"))
			assert.Equal(t, StateHalfOpen, cb.State("Aurus"))
			assert.ErrorIs(t, cb.Allow("Aurus"), ErrCircuitOpen, "only one probe at a time")

			cb.Record("Aurus", tt.probeFail)
			assert.Equal(t, tt.want, cb.State("Aurus"))
		})
	}
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
