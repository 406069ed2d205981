package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of a circuit breaker
type CircuitState int

const (
	// StateClosed lets calls through
	StateClosed CircuitState = iota
	// StateOpen fails calls immediately until the cooldown elapses
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

var (
	// ErrCircuitOpen is returned while the breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned when the half-open probe budget is used up
	ErrTooManyProbes = errors.New("circuit breaker is probing")
)

// CircuitBreakerConfig configures breaker thresholds
type CircuitBreakerConfig struct {
	// Name identifies the upstream in logs
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before probing
	Cooldown time.Duration
	// MaxProbes is how many calls may run while half-open
	MaxProbes uint32
	// OnStateChange is called with the lock released after every transition
	OnStateChange func(name string, from, to CircuitState)
}

// BCVCircuitBreakerConfig returns settings for the rate page scraper.
//
// The page is fetched once a day plus on-demand cron calls, so a few
// failures in a row mean the site is down; retry after fifteen minutes.
func BCVCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        "bcv",
		MaxFailures: 3,
		Cooldown:    15 * time.Minute,
		MaxProbes:   1,
	}
}

// CircuitBreaker fails fast against an upstream that keeps failing
type CircuitBreaker struct {
	mu        sync.Mutex
	state     CircuitState
	failures  uint32
	probes    uint32
	changedAt time.Time
	config    CircuitBreakerConfig
	now       func() time.Time
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 1
	}
	if config.MaxProbes == 0 {
		config.MaxProbes = 1
	}
	return &CircuitBreaker{
		state:     StateClosed,
		changedAt: time.Now(),
		config:    config,
		now:       time.Now,
	}
}

// Execute runs fn when the breaker allows it and records the outcome
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.changedAt) < cb.config.Cooldown {
			return ErrCircuitOpen
		}
		transition = cb.setState(StateHalfOpen)
		cb.probes++
		return nil
	default:
		if cb.probes >= cb.config.MaxProbes {
			return ErrTooManyProbes
		}
		cb.probes++
		return nil
	}
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	var transition func()
	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
			transition = cb.setState(StateOpen)
		}
	} else {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			transition = cb.setState(StateClosed)
		}
	}
	cb.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// setState must be called with mu held. It returns the notification to run after unlocking.
func (cb *CircuitBreaker) setState(to CircuitState) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.changedAt = cb.now()
	cb.probes = 0
	if to != StateOpen {
		cb.failures = 0
	}

	if cb.config.OnStateChange == nil {
		return nil
	}
	name, hook := cb.config.Name, cb.config.OnStateChange
	return func() { hook(name, from, to) }
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
