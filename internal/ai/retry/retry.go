// Package retry wraps model calls with bounded retries and exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/utils"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 15 * time.Second
)

// Observer receives one event per attempt and per backoff sleep.
type Observer interface {
	ObserveAttempt(op string, attempt int, err error)
	ObserveBackoff(op string, delay time.Duration)
}

// Engine holds the retry policy. The zero value is not usable, use New.
type Engine struct {
	attempts  int
	baseDelay time.Duration
	sleep     func(context.Context, time.Duration) error
	logger    *zap.Logger
	observer  Observer
}

type Option func(*Engine)

func WithAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.baseDelay = d
		}
	}
}

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func New(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		attempts:  DefaultAttempts,
		baseDelay: DefaultBaseDelay,
		sleep:     utils.WaitFor,
		logger:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attempts returns the maximal number of attempts per call.
func (e *Engine) Attempts() int { return e.attempts }

// Delay returns the backoff after the given failed attempt (1-based):
// 2^attempt * base.
func (e *Engine) Delay(attempt int) time.Duration {
	return (time.Duration(1) << attempt) * e.baseDelay
}

// Do runs fn until it succeeds, fails with a terminal error or runs out of
// attempts. Only rate limited failures are retried.
func Do[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	log := logger.WithCallSite(e.logger, op)

	for attempt := 1; attempt <= e.attempts; attempt++ {
		result, err := fn(ctx)
		if e.observer != nil {
			e.observer.ObserveAttempt(op, attempt, err)
		}
		if err == nil {
			if attempt > 1 {
				log.Info("call succeeded after retry", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		switch ai.KindOf(err) {
		case ai.KindQuotaExhausted:
			log.Error("daily quota exhausted", zap.Int("attempt", attempt), zap.Error(err))
			return zero, fmt.Errorf("%w: %w", ai.ErrQuotaExhausted, err)
		case ai.KindMalformed:
			log.Warn("malformed model response", zap.Int("attempt", attempt), zap.Error(err))
			return zero, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
		case ai.KindRateLimited:
		default:
			return zero, err
		}

		if attempt == e.attempts {
			break
		}

		delay := e.Delay(attempt)
		log.Warn("rate limited, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if e.observer != nil {
			e.observer.ObserveBackoff(op, delay)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s: backoff interrupted: %w", op, err)
		}
	}

	log.Error("retries exhausted", zap.Int("attempts", e.attempts), zap.Error(lastErr))
	return zero, fmt.Errorf("%w after %d attempts: %w", ai.ErrRetriesExhausted, e.attempts, lastErr)
}
