// Package pipeline runs one document through extraction, chunking,
// translation and rendering. Each run is independent: intermediate text is
// kept in memory for the duration of Run only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-translator/internal/logger"
	"book-translator/internal/notify"
	"book-translator/internal/pdf"
	"book-translator/internal/translator"
	"book-translator/internal/types"
)

// Extractor returns the text of every page of a PDF.
type Extractor interface {
	Pages(ctx context.Context, data []byte) ([]pdf.PageText, error)
}

// Chunker splits text into translation units.
type Chunker interface {
	Split(text string) []translator.Chunk
}

// ChunkTranslator translates chunks in order, all or nothing.
type ChunkTranslator interface {
	Translate(ctx context.Context, chunks []translator.Chunk) ([]string, error)
}

// Renderer builds the output PDF.
type Renderer interface {
	Render(ctx context.Context, text string) ([]byte, error)
}

// StageObserver is told how long each stage took.
type StageObserver interface {
	ObserveStage(stage notify.Stage, d time.Duration)
}

// Config wires the stages of a Pipeline.
type Config struct {
	Extractor  Extractor
	Chunker    Chunker
	Translator ChunkTranslator
	Renderer   Renderer

	Notifier notify.Notifier
	Observer StageObserver

	// OutputName and FallbackName name the PDF and the plain-text
	// replacement delivered when the PDF cannot be built.
	OutputName   string
	FallbackName string

	// DebugHook, when set, receives a copy of the produced PDF. Its errors
	// are logged and otherwise ignored.
	DebugHook func(data []byte) error
}

// Pipeline translates PDF documents.
type Pipeline struct {
	cfg      Config
	notifier notify.Notifier
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.OutputName == "" {
		cfg.OutputName = "livro_traduzido.pdf"
	}
	if cfg.FallbackName == "" {
		cfg.FallbackName = "traducao.txt"
	}
	return &Pipeline{cfg: cfg, notifier: notify.OrNop(cfg.Notifier)}
}

// Run translates one PDF. Extraction and translation failures end the run
// without output. A render failure is not fatal: the result then carries
// the translated plain text instead of a PDF.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*types.Result, error) {
	start := time.Now()
	result := &types.Result{}

	// Extraction
	var pages []pdf.PageText
	err := p.stage(notify.StageExtracting, func() error {
		var err error
		pages, err = p.cfg.Extractor.Pages(ctx, data)
		if err != nil {
			return err
		}
		result.SourceText, err = pdf.JoinPages(pages)
		return err
	})
	if err != nil {
		return nil, p.fail(notify.StageExtracting, stageError(types.ErrExtract, "text extraction failed", err))
	}
	result.Pages = len(pages)
	for _, pg := range pages {
		if pg.UsedOCR {
			result.OCRPages++
		}
	}

	// Chunking
	var chunks []translator.Chunk
	_ = p.stage(notify.StageChunking, func() error {
		chunks = p.cfg.Chunker.Split(result.SourceText)
		return nil
	})
	result.Chunks = len(chunks)
	p.notifier.Progress(notify.StageChunking, 1, 1)
	p.notifier.Info(notify.Event{
		Stage: notify.StageChunking, Kind: notify.KindInfo, Unit: notify.UnitDocument,
		Message: fmt.Sprintf("%d chunks to translate", len(chunks)),
	})

	// Translation
	var translated []string
	err = p.stage(notify.StageTranslating, func() error {
		var err error
		translated, err = p.cfg.Translator.Translate(ctx, chunks)
		return err
	})
	if err != nil {
		return nil, p.fail(notify.StageTranslating, stageError(types.ErrTranslation, "translation failed", err))
	}
	result.TranslatedText = translator.JoinTranslations(translated)

	// Rendering
	var out []byte
	err = p.stage(notify.StageRendering, func() error {
		var err error
		out, err = p.cfg.Renderer.Render(ctx, result.TranslatedText)
		return err
	})
	switch {
	case err == nil:
		result.Kind = types.OutputPDF
		result.Data = out
		result.FileName = p.cfg.OutputName
		p.runDebugHook(out)
	case pdf.IsRenderFailure(err):
		logger.Error("PDF generation failed, delivering plain text", err)
		p.notifier.Warn(notify.Event{
			Stage: notify.StageRendering, Kind: notify.KindStageFailed, Unit: notify.UnitDocument,
			Message: "could not build the PDF, the translated text is delivered as " + p.cfg.FallbackName,
			Err:     err,
		})
		result.Kind = types.OutputText
		result.Data = []byte(result.TranslatedText)
		result.FileName = p.cfg.FallbackName
		result.RenderErr = err
	default:
		return nil, p.fail(notify.StageRendering, stageError(types.ErrRender, "rendering failed", err))
	}

	result.Duration = time.Since(start)
	p.notifier.Progress(notify.StageComplete, 1, 1)
	logger.Info("document translated",
		logger.String("output", result.FileName),
		logger.Int("pages", result.Pages),
		logger.Int("ocrPages", result.OCRPages),
		logger.Int("chunks", result.Chunks),
		logger.Duration("elapsed", result.Duration))
	return result, nil
}

func (p *Pipeline) stage(stage notify.Stage, fn func() error) error {
	logger.Info("stage started", logger.String("stage", string(stage)))
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveStage(stage, elapsed)
	}
	logger.Info("stage finished",
		logger.String("stage", string(stage)),
		logger.Duration("elapsed", elapsed),
		logger.Bool("ok", err == nil))
	return err
}

func (p *Pipeline) fail(stage notify.Stage, err *types.AppError) error {
	logger.Error("run failed", err, logger.String("stage", string(stage)))
	p.notifier.Error(notify.Event{
		Stage: stage, Kind: notify.KindStageFailed, Unit: notify.UnitDocument,
		Message: err.Message, Err: err.Cause,
	})
	return err
}

func (p *Pipeline) runDebugHook(data []byte) {
	if p.cfg.DebugHook == nil {
		return
	}
	if err := p.cfg.DebugHook(data); err != nil {
		logger.Warn("debug hook failed", logger.Err(err))
	}
}

// stageError wraps err with a code. The cause already names the failing
// page or chunk.
func stageError(code types.ErrorCode, message string, err error) *types.AppError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || pdf.CodeOf(err) == pdf.ErrCancelled {
		return types.NewAppError(types.ErrCancelled, message+": cancelled", err)
	}
	return types.NewAppError(code, message, err)
}
