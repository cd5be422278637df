// Package resilience wraps calls to external services in a circuit breaker
// so a degraded provider fails fast instead of holding request goroutines.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// ErrCallTimeout is the cause callers attach to a per-call deadline, with
// context.WithTimeoutCause, when expiring it should count against the provider.
// Any other canceled or expired context means the caller gave up and the
// breaker does not record a failure.
var ErrCallTimeout = errors.New("provider call timed out")

// callerGaveUp marks an error produced by the caller's own context.
type callerGaveUp struct{ err error }

func (e *callerGaveUp) Error() string { return e.err.Error() }
func (e *callerGaveUp) Unwrap() error { return e.err }

// Config holds the configuration for a circuit breaker.
type Config struct {
	Name string

	// MaxRequests is the number of trial requests allowed while half-open
	MaxRequests uint32

	// Interval clears the closed-state counts
	Interval time.Duration

	// Timeout is how long the breaker stays open
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker
	FailureThreshold float64

	// MinRequests must be observed before the ratio is evaluated
	MinRequests uint32
}

// RedditConfig returns the settings used for the Reddit API.
func RedditConfig() Config {
	return Config{
		Name:             "reddit-api",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker is a thin wrapper over gobreaker with a typed Do helper.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// StateChangeFunc is notified when the breaker moves between states.
type StateChangeFunc func(name, from, to string)

// New creates a breaker. onChange may be nil.
func New(cfg Config, onChange StateChangeFunc) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
	}
	settings.IsSuccessful = func(err error) bool {
		var gaveUp *callerGaveUp
		return err == nil || errors.As(err, &gaveUp)
	}
	if onChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onChange(name, from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker. Rejections are reported as ErrOpen.
// ctx is the context fn runs under; see ErrCallTimeout for how its end is counted.
func Do[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if err != nil && ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrCallTimeout) {
			return v, &callerGaveUp{err: err}
		}
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrOpen
		}
		var gaveUp *callerGaveUp
		if errors.As(err, &gaveUp) {
			return zero, gaveUp.err
		}
		return zero, err
	}
	return out.(T), nil
}

// Open reports whether calls are currently rejected.
func (b *Breaker) Open() bool {
	return b != nil && b.cb.State() == gobreaker.StateOpen
}
