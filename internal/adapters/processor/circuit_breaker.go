package processor

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of a processor circuit
type CircuitState int

const (
	// StateClosed lets calls through
	StateClosed CircuitState = iota
	// StateOpen fails calls immediately
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a processor circuit rejects the call
var ErrCircuitOpen = errors.New("processor circuit is open")

// CircuitBreakerConfig configures the per-processor circuits
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening
	MaxFailures uint32
	// OpenTimeout is how long a circuit stays open before probing
	OpenTimeout time.Duration
	// MaxProbes is how many calls a half-open circuit lets through
	MaxProbes uint32
}

// DefaultCircuitBreakerConfig returns the production defaults
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
		MaxProbes:   1,
	}
}

type circuit struct {
	state     CircuitState
	failures  uint32
	probes    uint32
	changedAt time.Time
}

// CircuitBreaker tracks one circuit per processor name. Only transport
// failures and acquirer 5xx answers count; declines never trip a circuit.
type CircuitBreaker struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	config   CircuitBreakerConfig
	now      func() time.Time
}

// NewCircuitBreaker creates a breaker with all circuits closed
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		circuits: make(map[string]*circuit),
		config:   config,
		now:      time.Now,
	}
}

// Allow reports whether a call to the processor may proceed
func (cb *CircuitBreaker) Allow(processor string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuit(processor)
	switch c.state {
	case StateOpen:
		if cb.now().Sub(c.changedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transition(c, StateHalfOpen)
		c.probes++
		return nil
	case StateHalfOpen:
		if c.probes >= cb.config.MaxProbes {
			return ErrCircuitOpen
		}
		c.probes++
		return nil
	}
	return nil
}

// Record stores the outcome of an allowed call
func (cb *CircuitBreaker) Record(processor string, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuit(processor)
	if !failed {
		if c.state == StateHalfOpen {
			cb.transition(c, StateClosed)
		}
		c.failures = 0
		return
	}

	c.failures++
	switch c.state {
	case StateClosed:
		if c.failures >= cb.config.MaxFailures {
			cb.transition(c, StateOpen)
		}
	case StateHalfOpen:
		cb.transition(c, StateOpen)
	}
}

// State returns the current state of a processor circuit
func (cb *CircuitBreaker) State(processor string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.circuit(processor).state
}

func (cb *CircuitBreaker) circuit(processor string) *circuit {
	c, ok := cb.circuits[processor]
	if !ok {
		c = &circuit{state: StateClosed, changedAt: cb.now()}
		cb.circuits[processor] = c
	}
	return c
}

func (cb *CircuitBreaker) transition(c *circuit, state CircuitState) {
	if c.state == state {
		return
	}
	c.state = state
	c.changedAt = cb.now()
	c.probes = 0
	if state != StateOpen {
		c.failures = 0
	}
}
