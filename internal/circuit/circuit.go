// Package circuit wraps sony/gobreaker with the presets the search backend
// adapters need, logging state transitions through zerolog instead of the
// standard library logger.
package circuit

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Config tunes a single breaker instance.
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// BackendConfig is tuned for outbound search-backend HTTP calls: tolerant of
// occasional failures, recovers quickly once the endpoint is healthy again.
func BackendConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// SummarizerConfig is tuned for LLM summarization calls: fewer requests
// needed to trip, longer cooldown since provider-side throttling tends to
// last longer than a transient network blip.
func SummarizerConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          45 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

// Breaker is a thin, named wrapper around gobreaker.CircuitBreaker.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a Breaker from Config.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &Breaker{breaker: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// Execute runs fn through the breaker. Returns gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests when the breaker itself rejects the call.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.breaker.Execute(fn)
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.name }

// IsOpen reports whether the breaker is currently rejecting calls.
func (b *Breaker) IsOpen() bool { return b.breaker.State() == gobreaker.StateOpen }
