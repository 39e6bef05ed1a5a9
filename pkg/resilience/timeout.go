package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines timeout values for the request timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//
//	HTTP Handler (29s)
//	  ↓
//	Upstream acquirer call (remaining budget - SafetyMargin, never below UpstreamFloor)
//	  ↓
//	Storage call (StorageCall)
//
// The safety margin leaves room to classify the failure and persist the
// declined transaction after an upstream call is abandoned.
type TimeoutConfig struct {
	HTTPHandler   time.Duration // Overall request budget (default: 29s)
	SafetyMargin  time.Duration // Reserved after the upstream call (default: 2s)
	UpstreamFloor time.Duration // Minimum upstream timeout (default: 5s)
	StorageCall   time.Duration // Single storage operation (default: 3s)
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   29 * time.Second,
		SafetyMargin:  2 * time.Second,
		UpstreamFloor: 5 * time.Second,
		StorageCall:   3 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   2 * time.Second,
		SafetyMargin:  100 * time.Millisecond,
		UpstreamFloor: 200 * time.Millisecond,
		StorageCall:   500 * time.Millisecond,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// StorageContext creates a context for a single storage operation
func (tc *TimeoutConfig) StorageContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.StorageCall)
}

// BudgetTimeout returns the upstream timeout for ctx: the remaining time until
// the deadline minus the safety margin, clamped to the floor. Without a
// deadline the floor is returned.
func (tc *TimeoutConfig) BudgetTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return tc.UpstreamFloor
	}
	budget := time.Until(deadline) - tc.SafetyMargin
	if budget < tc.UpstreamFloor {
		return tc.UpstreamFloor
	}
	return budget
}

// Remaining returns the time left before the context deadline, or 0 without one
func Remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return 0
}

// UpstreamContext creates the context used for a single acquirer invocation
func (tc *TimeoutConfig) UpstreamContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.BudgetTimeout(parent))
}
