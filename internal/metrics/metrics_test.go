package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"book-translator/internal/notify"
)

// dump writes the metrics to a temporary textfile and returns its content.
func dump(t *testing.T, m *RunMetrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booktranslate.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, text string, lines ...string) {
	t.Helper()
	for _, want := range lines {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q:\n%s", want, text)
		}
	}
}

func TestRunMetrics_CountsEvents(t *testing.T) {
	m := New("livro.pdf")

	m.Warn(notify.Event{Stage: notify.StageExtracting, Kind: notify.KindOCRFallback})
	m.Warn(notify.Event{Stage: notify.StageExtracting, Kind: notify.KindOCRFallback})
	m.Warn(notify.Event{Stage: notify.StageTranslating, Kind: notify.KindRetry})
	m.Info(notify.Event{Stage: notify.StageTranslating, Kind: notify.KindCacheHit})
	m.Error(notify.Event{Stage: notify.StageTranslating, Kind: notify.KindChunkFailed})

	assertContains(t, dump(t, m),
		`booktranslate_events_total{document="livro.pdf",kind="ocr_fallback",stage="extracting"} 2`,
		`booktranslate_events_total{document="livro.pdf",kind="retry",stage="translating"} 1`,
		`booktranslate_events_total{document="livro.pdf",kind="cache_hit",stage="translating"} 1`,
		`booktranslate_errors_total{document="livro.pdf",kind="chunk_failed",stage="translating"} 1`,
	)
}

func TestRunMetrics_Progress(t *testing.T) {
	m := New("livro.pdf")
	m.Progress(notify.StageTranslating, 3, 10)
	m.Progress(notify.StageTranslating, 4, 10)

	assertContains(t, dump(t, m),
		`booktranslate_stage_units_done{document="livro.pdf",stage="translating"} 4`,
		`booktranslate_stage_units_total{document="livro.pdf",stage="translating"} 10`,
	)
}

func TestRunMetrics_StageAndOutcome(t *testing.T) {
	m := New("livro.pdf")
	m.ObserveStage(notify.StageExtracting, 1500*time.Millisecond)
	m.Finish("text")

	assertContains(t, dump(t, m),
		`booktranslate_stage_duration_seconds{document="livro.pdf",stage="extracting"} 1.5`,
		`booktranslate_run_success{document="livro.pdf",output="text"} 1`,
	)
}

func TestRunMetrics_IsNotifier(t *testing.T) {
	var _ notify.Notifier = New("x")
}
