package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"book-translator/internal/logger"
	"book-translator/internal/notify"
	"book-translator/internal/textutil"
)

const (
	// DefaultMaxRetries is the number of attempts made per chunk.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the wait before the second attempt. It doubles
	// for every further attempt.
	DefaultBaseDelay = time.Second

	DefaultSource = "en"
	DefaultTarget = "pt"
)

// Attempt describes one failed try at a chunk.
type Attempt struct {
	Chunk  int
	Number int
	Err    error
	// Delay is the wait before the next attempt, zero after the last one.
	Delay time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Source     string
	Target     string
	MaxRetries int
	BaseDelay  time.Duration
	// Cache, when set, is consulted before and updated after each chunk.
	Cache    *Cache
	Notifier notify.Notifier
	// Sleep replaces the real timer, mostly in tests.
	Sleep SleepFunc
	// OnAttempt is called after every failed attempt.
	OnAttempt func(Attempt)
}

// Runner translates chunks one after another. Either every chunk is
// translated or the run fails at the first chunk that exhausts its attempts.
type Runner struct {
	translator Translator
	source     string
	target     string
	maxRetries int
	baseDelay  time.Duration
	cache      *Cache
	notifier   notify.Notifier
	sleep      SleepFunc
	onAttempt  func(Attempt)
}

// NewRunner creates a Runner around t.
func NewRunner(t Translator, cfg RunnerConfig) *Runner {
	r := &Runner{
		translator: t,
		source:     cfg.Source,
		target:     cfg.Target,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		cache:      cfg.Cache,
		notifier:   notify.OrNop(cfg.Notifier),
		sleep:      cfg.Sleep,
		onAttempt:  cfg.OnAttempt,
	}
	if r.source == "" {
		r.source = DefaultSource
	}
	if r.target == "" {
		r.target = DefaultTarget
	}
	if r.maxRetries <= 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.baseDelay < 0 {
		r.baseDelay = 0
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

// BackoffDelay returns the wait after the given failed attempt (1-based):
// base, 2*base, 4*base...
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<uint(attempt-1))
}

// Translate returns the translation of every chunk, in chunk order. A chunk
// gets up to MaxRetries attempts while its errors are retryable (see
// IsRetryable). An APIError that is not Temporary, such as a rejected key or
// a malformed request, fails the chunk on that attempt without waiting.
func (r *Runner) Translate(ctx context.Context, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	logger.Info("starting translation",
		logger.Int("chunks", len(chunks)),
		logger.String("source", r.source),
		logger.String("target", r.target),
		logger.Int("maxRetries", r.maxRetries))

	results := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		translated, err := r.translateChunk(ctx, i, chunk)
		r.notifier.Progress(notify.StageTranslating, i+1, len(chunks))
		if err != nil {
			logger.Error("chunk translation failed", err, logger.Int("chunk", i+1))
			r.notifier.Error(notify.Event{
				Stage: notify.StageTranslating, Kind: notify.KindChunkFailed,
				Unit: notify.UnitChunk, Index: i + 1,
				Message: "translation failed", Err: err,
			})
			return nil, err
		}
		results = append(results, translated)
	}

	logger.Info("translation completed", logger.Int("chunks", len(results)))
	return results, nil
}

func (r *Runner) translateChunk(ctx context.Context, i int, chunk Chunk) (string, error) {
	if textutil.IsBlank(chunk.Text) {
		return textutil.Clean(chunk.Text), nil
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(chunk.Text, r.source, r.target); ok {
			logger.Debug("chunk served from cache", logger.Int("chunk", i+1))
			r.notifier.Info(notify.Event{
				Stage: notify.StageTranslating, Kind: notify.KindCacheHit,
				Unit: notify.UnitChunk, Index: i + 1,
				Message: "translation reused from cache",
			})
			return cached, nil
		}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &TranslationError{Index: i, Attempts: attempts, Cause: err}
		}

		attempts = attempt
		out, err := r.translator.Translate(ctx, chunk.Text, r.source, r.target)
		if err == nil {
			translated := textutil.Clean(out)
			if r.cache != nil {
				r.cache.Set(chunk.Text, r.source, r.target, translated)
			}
			logger.Debug("chunk translated",
				logger.Int("chunk", i+1),
				logger.Int("attempt", attempt),
				logger.Int("chars", len(translated)))
			return translated, nil
		}
		lastErr = err

		retry := attempt < r.maxRetries && IsRetryable(err) && ctx.Err() == nil
		var delay time.Duration
		if retry {
			delay = BackoffDelay(r.baseDelay, attempt)
		}
		r.reportAttempt(Attempt{Chunk: i, Number: attempt, Err: err, Delay: delay})
		if !retry {
			break
		}

		if err := r.sleep(ctx, delay); err != nil {
			return "", &TranslationError{Index: i, Attempts: attempts, Cause: err}
		}
	}

	return "", &TranslationError{Index: i, Attempts: attempts, Cause: lastErr}
}

func (r *Runner) reportAttempt(a Attempt) {
	logger.Warn("translation attempt failed",
		logger.Int("chunk", a.Chunk+1),
		logger.Int("attempt", a.Number),
		logger.Int("maxRetries", r.maxRetries),
		logger.Duration("retryIn", a.Delay),
		logger.Err(a.Err))

	msg := fmt.Sprintf("attempt %d of %d failed", a.Number, r.maxRetries)
	if a.Delay > 0 {
		msg += fmt.Sprintf(", retrying in %s", a.Delay)
	}
	r.notifier.Warn(notify.Event{
		Stage: notify.StageTranslating, Kind: notify.KindRetry,
		Unit: notify.UnitChunk, Index: a.Chunk + 1,
		Message: msg, Err: a.Err,
	})
	if r.onAttempt != nil {
		r.onAttempt(a)
	}
}

// JoinTranslations reassembles translated chunks into one text.
func JoinTranslations(parts []string) string {
	return strings.Join(parts, "\n")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
