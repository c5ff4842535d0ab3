// Package breaker implements per-destination failure isolation as a
// three-state circuit breaker. A breaker trips OPEN after a run of
// consecutive failures, fails fast while open, and probes the
// destination through a HALF_OPEN trial phase before closing again.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
	"github.com/VictoriaMetrics/metrics"
	"github.com/bitmark-inc/logger"
)

// State of a breaker.
type State uint8

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config holds breaker tuning. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker OPEN.
	FailureThreshold int
	// ResetTimeout is how long an OPEN breaker rejects calls before the
	// next call is allowed through as a HALF_OPEN trial.
	ResetTimeout time.Duration
	// MonitorWindow bounds how failures count as consecutive: a failure
	// older than the window no longer contributes. Zero disables the
	// window.
	MonitorWindow time.Duration
	// HalfOpenSuccesses is the number of consecutive trial successes
	// required to close the breaker again.
	HalfOpenSuccesses int
}

// DefaultConfig trips after 5 consecutive failures, cools down for 30s
// and requires 3 trial successes.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		ResetTimeout:      30 * time.Second,
		MonitorWindow:     time.Minute,
		HalfOpenSuccesses: 3,
	}
}

// Status is a point-in-time snapshot of a breaker, for diagnostics.
type Status struct {
	Destination         string    `json:"destination"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at"`
	HalfOpenSuccesses   int       `json:"half_open_successes"`
}

// Breaker is the per-destination state machine. All methods are safe for
// concurrent use.
type Breaker struct {
	destination string
	cfg         Config
	log         *logger.L
	clock       func() time.Time

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	halfOpenSuccesses   int
}

// New creates a CLOSED breaker for one destination.
func New(destination string, cfg Config) *Breaker {
	return &Breaker{
		destination: destination,
		cfg:         cfg,
		log:         logger.New("breaker"),
		clock:       time.Now,
	}
}

// Do executes op under the breaker. While the breaker is OPEN and the
// reset timeout has not elapsed, op is not invoked and a
// cache.ErrCircuitOpen is returned immediately.
func (b *Breaker) Do(op func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := op()
	b.after(err)
	return err
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the breaker's current status.
func (b *Breaker) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Destination:         b.destination,
		State:               b.state.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureAt:       b.lastFailureAt,
		HalfOpenSuccesses:   b.halfOpenSuccesses,
	}
}

// --------------------------------------------------------------------------
// State Machine
// --------------------------------------------------------------------------

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()

	switch b.state {
	case StateOpen:
		if now.Sub(b.lastFailureAt) > b.cfg.ResetTimeout {
			// cooled down: the next call becomes the trial
			b.transition(StateHalfOpen)
			b.halfOpenSuccesses = 0
			return nil
		}
		return fmt.Errorf("%w: %s", cache.ErrCircuitOpen, b.destination)

	case StateClosed:
		// failures outside the monitor window are no longer consecutive
		if b.cfg.MonitorWindow > 0 && b.consecutiveFailures > 0 &&
			now.Sub(b.lastFailureAt) > b.cfg.MonitorWindow {
			b.consecutiveFailures = 0
		}
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case StateHalfOpen:
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.cfg.HalfOpenSuccesses {
				b.transition(StateClosed)
				b.consecutiveFailures = 0
				b.halfOpenSuccesses = 0
			}
		case StateClosed:
			b.consecutiveFailures = 0
		}
		return
	}

	b.lastFailureAt = b.clock()

	switch b.state {
	case StateHalfOpen:
		// a single trial failure re-opens immediately
		b.transition(StateOpen)
		b.halfOpenSuccesses = 0
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	}
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to

	metrics.GetOrCreateCounter(fmt.Sprintf(
		`tiercache_breaker_transitions_total{destination=%q,to=%q}`,
		b.destination, to.String(),
	)).Inc()

	if to == StateOpen {
		b.log.Warnf("%s: %s -> %s after %d consecutive failures",
			b.destination, from, to, b.consecutiveFailures)
	} else {
		b.log.Infof("%s: %s -> %s", b.destination, from, to)
	}
}
