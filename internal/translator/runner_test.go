package translator

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"book-translator/internal/notify"
)

// recordSleep returns a SleepFunc that records delays instead of waiting.
func recordSleep(delays *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func chunksOf(texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{Index: i, Text: text}
	}
	return chunks
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{0, time.Second},
	}
	for _, tt := range tests {
		if got := BackoffDelay(time.Second, tt.attempt); got != tt.want {
			t.Errorf("BackoffDelay(1s, %d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestRunner_AlwaysFailing(t *testing.T) {
	tests := []struct {
		maxRetries int
		want       []time.Duration
	}{
		{1, nil},
		{3, []time.Duration{time.Second, 2 * time.Second}},
		{5, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}},
	}
	for _, tt := range tests {
		calls := 0
		failing := Func(func(context.Context, string, string, string) (string, error) {
			calls++
			return "", errors.New("service unavailable")
		})

		var delays []time.Duration
		r := NewRunner(failing, RunnerConfig{
			MaxRetries: tt.maxRetries,
			BaseDelay:  time.Second,
			Sleep:      recordSleep(&delays),
		})
		out, err := r.Translate(context.Background(), chunksOf("first", "second"))

		if out != nil {
			t.Errorf("maxRetries=%d: expected no partial output, got %q", tt.maxRetries, out)
		}
		var te *TranslationError
		if !errors.As(err, &te) {
			t.Fatalf("maxRetries=%d: expected TranslationError, got %v", tt.maxRetries, err)
		}
		if te.Index != 0 || te.Attempts != tt.maxRetries {
			t.Errorf("maxRetries=%d: got index %d after %d attempts", tt.maxRetries, te.Index, te.Attempts)
		}
		if calls != tt.maxRetries {
			t.Errorf("maxRetries=%d: backend called %d times", tt.maxRetries, calls)
		}
		if !reflect.DeepEqual(delays, tt.want) {
			t.Errorf("maxRetries=%d: delays = %v, want %v", tt.maxRetries, delays, tt.want)
		}
	}
}

func TestRunner_PreservesOrder(t *testing.T) {
	upper := Func(func(_ context.Context, text, _, _ string) (string, error) {
		return strings.ToUpper(text), nil
	})

	r := NewRunner(upper, RunnerConfig{Sleep: recordSleep(new([]time.Duration))})
	out, err := r.Translate(context.Background(), chunksOf("a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if want := []string{"A", "B", "C", "D"}; !reflect.DeepEqual(out, want) {
		t.Errorf("Translate = %q, want %q", out, want)
	}
}

func TestRunner_RecoversAfterRetries(t *testing.T) {
	calls := 0
	flaky := Func(func(_ context.Context, text, _, _ string) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{Backend: "test", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
		}
		return "ok:" + text, nil
	})

	var attempts []Attempt
	rec := &notify.Recorder{}
	r := NewRunner(flaky, RunnerConfig{
		MaxRetries: 3,
		BaseDelay:  10 * time.Millisecond,
		Sleep:      recordSleep(new([]time.Duration)),
		Notifier:   rec,
		OnAttempt:  func(a Attempt) { attempts = append(attempts, a) },
	})
	out, err := r.Translate(context.Background(), chunksOf("x"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out[0] != "ok:x" {
		t.Errorf("got %q", out[0])
	}
	if len(attempts) != 2 || attempts[1].Delay != 20*time.Millisecond {
		t.Errorf("unexpected attempts %+v", attempts)
	}
	if len(rec.WarningsOf(notify.KindRetry)) != 2 {
		t.Errorf("expected 2 retry warnings, got %+v", rec.Warnings)
	}
}

func TestRunner_FailsAtChunkIndex(t *testing.T) {
	backend := Func(func(_ context.Context, text, _, _ string) (string, error) {
		if text == "bad" {
			return "", errors.New("boom")
		}
		return text, nil
	})

	rec := &notify.Recorder{}
	r := NewRunner(backend, RunnerConfig{Sleep: recordSleep(new([]time.Duration)), Notifier: rec})
	_, err := r.Translate(context.Background(), chunksOf("ok", "ok", "bad", "never"))

	var te *TranslationError
	if !errors.As(err, &te) || te.Index != 2 {
		t.Fatalf("expected failure at chunk 2, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk 3") {
		t.Errorf("message should name the 1-based chunk: %v", err)
	}

	if len(rec.Updates) != 3 {
		t.Fatalf("expected progress after each finished chunk, got %+v", rec.Updates)
	}
	if last := rec.Updates[2]; last.Done != 3 || last.Total != 4 {
		t.Errorf("unexpected final progress %+v", last)
	}
	if len(rec.Errors) != 1 || rec.Errors[0].Index != 3 {
		t.Errorf("expected one error event for chunk 3, got %+v", rec.Errors)
	}
}

func TestRunner_PermanentErrorStopsRetrying(t *testing.T) {
	calls := 0
	unauthorized := Func(func(context.Context, string, string, string) (string, error) {
		calls++
		return "", &APIError{Backend: "test", StatusCode: http.StatusUnauthorized, Message: "bad key"}
	})

	var delays []time.Duration
	r := NewRunner(unauthorized, RunnerConfig{MaxRetries: 3, Sleep: recordSleep(&delays)})
	_, err := r.Translate(context.Background(), chunksOf("x"))

	var te *TranslationError
	if !errors.As(err, &te) || te.Attempts != 1 {
		t.Fatalf("expected a single attempt, got %v", err)
	}
	if calls != 1 || len(delays) != 0 {
		t.Errorf("calls = %d, delays = %v", calls, delays)
	}
}

func TestRunner_Sanitizes(t *testing.T) {
	noisy := Func(func(context.Context, string, string, string) (string, error) {
		return "Tradu\x00ção\x07 é\x1f ótima\x7f\n\tfim", nil
	})

	r := NewRunner(noisy, RunnerConfig{})
	out, err := r.Translate(context.Background(), chunksOf("Translation is great"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if want := "Tradução é ótima\n\tfim"; out[0] != want {
		t.Errorf("got %q, want %q", out[0], want)
	}
}

func TestRunner_SkipsBlankChunks(t *testing.T) {
	calls := 0
	backend := Func(func(_ context.Context, text, _, _ string) (string, error) {
		calls++
		return text, nil
	})

	r := NewRunner(backend, RunnerConfig{})
	out, err := r.Translate(context.Background(), chunksOf("", " \n"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("backend called %d times for blank chunks", calls)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 results, got %q", out)
	}
}

func TestRunner_Cache(t *testing.T) {
	calls := 0
	backend := Func(func(_ context.Context, text, _, _ string) (string, error) {
		calls++
		return "pt:" + text, nil
	})

	cache := NewCache("")
	cache.Set("cached", "en", "pt", "em cache")
	rec := &notify.Recorder{}

	r := NewRunner(backend, RunnerConfig{Cache: cache, Notifier: rec})
	out, err := r.Translate(context.Background(), chunksOf("cached", "fresh"))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if want := []string{"em cache", "pt:fresh"}; !reflect.DeepEqual(out, want) {
		t.Errorf("Translate = %q, want %q", out, want)
	}
	if calls != 1 {
		t.Errorf("backend called %d times, want 1", calls)
	}
	if got, ok := cache.Get("fresh", "en", "pt"); !ok || got != "pt:fresh" {
		t.Errorf("fresh translation not cached: %q, %v", got, ok)
	}
	if len(rec.Infos) != 1 || rec.Infos[0].Kind != notify.KindCacheHit {
		t.Errorf("expected a cache hit event, got %+v", rec.Infos)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := Func(func(context.Context, string, string, string) (string, error) {
		cancel()
		return "", errors.New("interrupted")
	})

	r := NewRunner(backend, RunnerConfig{MaxRetries: 3})
	_, err := r.Translate(ctx, chunksOf("a", "b"))
	if !errors.Is(err, context.Canceled) && !IsTranslationFailure(err) {
		t.Fatalf("unexpected error %v", err)
	}
	var te *TranslationError
	if !errors.As(err, &te) || te.Attempts != 1 {
		t.Errorf("expected to stop after the first attempt, got %v", err)
	}
}

func TestRunner_Empty(t *testing.T) {
	r := NewRunner(Func(func(context.Context, string, string, string) (string, error) {
		t.Fatal("backend must not be called")
		return "", nil
	}), RunnerConfig{})
	out, err := r.Translate(context.Background(), nil)
	if err != nil || out != nil {
		t.Errorf("Translate(nil) = %v, %v", out, err)
	}
}

func TestJoinTranslations(t *testing.T) {
	if got := JoinTranslations([]string{"a", "b", "c"}); got != "a\nb\nc" {
		t.Errorf("JoinTranslations = %q", got)
	}
}
