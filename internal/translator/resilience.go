package translator

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"book-translator/internal/logger"
)

// WithRateLimit spaces backend calls to at most perSecond requests per
// second. A non-positive rate returns t unchanged.
func WithRateLimit(t Translator, perSecond float64) Translator {
	if perSecond <= 0 {
		return t
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	return Func(func(ctx context.Context, text, source, target string) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}
		return t.Translate(ctx, text, source, target)
	})
}

// BreakerConfig configures WithBreaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe
	// request through.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig opens after 5 consecutive failures for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// WithBreaker stops calling a backend that keeps failing. While the breaker
// is open, calls fail immediately with an error wrapping
// gobreaker.ErrOpenState; the runner retries those after its backoff like
// any other transient failure.
func WithBreaker(t Translator, cfg BreakerConfig) Translator {
	d := DefaultBreakerConfig()
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = d.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = d.OpenTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "translator",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})

	return Func(func(ctx context.Context, text, source, target string) (string, error) {
		out, err := breaker.Execute(func() (string, error) {
			return t.Translate(ctx, text, source, target)
		})
		if IsCircuitOpen(err) {
			return "", &APIError{Backend: "breaker", Message: "backend temporarily disabled", Cause: err}
		}
		return out, err
	})
}

// IsCircuitOpen reports whether err comes from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
