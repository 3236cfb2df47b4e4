// Package notify carries progress and diagnostics from the pipeline stages
// to whatever presents them (terminal, metrics, tests).
package notify

import (
	"fmt"
	"sync"
)

// Stage identifies the pipeline stage an event belongs to.
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageChunking    Stage = "chunking"
	StageTranslating Stage = "translating"
	StageRendering   Stage = "rendering"
	StageComplete    Stage = "complete"
)

// Unit names what an event's Index counts.
type Unit string

const (
	UnitDocument  Unit = "document"
	UnitPage      Unit = "page"
	UnitChunk     Unit = "chunk"
	UnitParagraph Unit = "paragraph"
	UnitSentence  Unit = "sentence"
)

// Kind classifies warnings so observers can count them without parsing text.
type Kind string

const (
	KindOCRFallback       Kind = "ocr_fallback"
	KindPageUnreadable    Kind = "page_unreadable"
	KindRetry             Kind = "retry"
	KindChunkFailed       Kind = "chunk_failed"
	KindParagraphFallback Kind = "paragraph_fallback"
	KindSentenceDropped   Kind = "sentence_dropped"
	KindStageFailed       Kind = "stage_failed"
	KindCacheHit          Kind = "cache_hit"
	KindInfo              Kind = "info"
)

// Event is a single diagnostic. Index is 1-based within its Unit; zero means
// the event is not tied to one unit.
type Event struct {
	Stage   Stage
	Kind    Kind
	Unit    Unit
	Index   int
	Message string
	Err     error
}

// String renders the event as the user-facing message.
func (e Event) String() string {
	s := e.Message
	if e.Index > 0 && e.Unit != "" {
		s = fmt.Sprintf("%s %d: %s", e.Unit, e.Index, s)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Notifier observes a pipeline run.
type Notifier interface {
	// Progress reports done out of total units completed in stage.
	Progress(stage Stage, done, total int)
	// Info reports a status line.
	Info(e Event)
	// Warn reports a recovered problem.
	Warn(e Event)
	// Error reports a terminal problem for the stage.
	Error(e Event)
}

// Fraction converts a done/total pair to [0,1].
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(done) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// Nop discards everything.
type Nop struct{}

func (Nop) Progress(Stage, int, int) {}
func (Nop) Info(Event)               {}
func (Nop) Warn(Event)               {}
func (Nop) Error(Event)              {}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}

type multi []Notifier

// Multi fans every call out to all non-nil notifiers, in order.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) Progress(stage Stage, done, total int) {
	for _, n := range m {
		n.Progress(stage, done, total)
	}
}

func (m multi) Info(e Event) {
	for _, n := range m {
		n.Info(e)
	}
}

func (m multi) Warn(e Event) {
	for _, n := range m {
		n.Warn(e)
	}
}

func (m multi) Error(e Event) {
	for _, n := range m {
		n.Error(e)
	}
}

// ProgressUpdate is one recorded Progress call.
type ProgressUpdate struct {
	Stage Stage
	Done  int
	Total int
}

// Recorder keeps every call. It is meant for tests and post-run summaries.
type Recorder struct {
	mu       sync.Mutex
	Updates  []ProgressUpdate
	Infos    []Event
	Warnings []Event
	Errors   []Event
}

func (r *Recorder) Progress(stage Stage, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates = append(r.Updates, ProgressUpdate{Stage: stage, Done: done, Total: total})
}

func (r *Recorder) Info(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infos = append(r.Infos, e)
}

func (r *Recorder) Warn(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, e)
}

func (r *Recorder) Error(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, e)
}

// WarningsOf returns the recorded warnings of the given kind.
func (r *Recorder) WarningsOf(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Warnings {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
