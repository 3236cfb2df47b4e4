// Command booktranslate translates an English PDF book into a Brazilian
// Portuguese PDF.
//
//	booktranslate [flags] livro.pdf
//
// Pages without a text layer are rasterized with pdftoppm and read with
// Tesseract when both are installed. When the translated PDF cannot be
// built, the translated text is written to traducao.txt next to the
// requested output instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"book-translator/internal/config"
	"book-translator/internal/logger"
	"book-translator/internal/metrics"
	"book-translator/internal/notify"
	"book-translator/internal/ocr"
	"book-translator/internal/pdf"
	"book-translator/internal/pipeline"
	"book-translator/internal/textutil"
	"book-translator/internal/translator"
	"book-translator/internal/types"
)

const (
	programName  = "booktranslate"
	previewRunes = 1000
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one translation and returns the process exit code.
func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(programName, args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		printError(stderr, err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		printError(stderr, err)
		return 2
	}

	if err := logger.Init(&logger.Config{
		LogFilePath: cfg.LogFile,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Console:     stderr,
	}); err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	if err := translate(ctx, cfg, stdout, stderr); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(w, "Error [%s]: %v\n", appErr.Code, appErr)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func translate(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewAppErrorWithDetails(types.ErrFileNotFound, "PDF not found", cfg.Input, err)
		}
		return types.NewAppError(types.ErrInvalidInput, "failed to read input PDF", err)
	}

	runMetrics := metrics.New(filepath.Base(cfg.Output))
	notifier := notify.Multi(notify.NewConsole(stderr), runMetrics)

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to create translation backend", err)
	}

	var cache *translator.Cache
	if cfg.CachePath != "" {
		cache = translator.NewCache(cfg.CachePath)
		if err := cache.Load(); err != nil {
			logger.Warn("ignoring unreadable translation cache", logger.Err(err))
			cache = translator.NewCache(cfg.CachePath)
		}
		logger.Info("translation cache loaded",
			logger.String("path", cfg.CachePath),
			logger.Int("entries", cache.Size()))
	}

	extractorCfg := pdf.ExtractorConfig{Language: cfg.OCRLanguage, Notifier: notifier}
	closeOCR := setupOCR(cfg, &extractorCfg)
	defer closeOCR()

	p := pipeline.New(pipeline.Config{
		Extractor: pdf.NewExtractor(extractorCfg),
		Chunker:   translator.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		Translator: translator.NewRunner(backend, translator.RunnerConfig{
			Source:     cfg.Source,
			Target:     cfg.Target,
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryDelay,
			Cache:      cache,
			Notifier:   notifier,
		}),
		Renderer:     pdf.NewRenderer(pdf.RendererConfig{Notifier: notifier}),
		Notifier:     notifier,
		Observer:     runMetrics,
		OutputName:   filepath.Base(cfg.Output),
		FallbackName: config.FallbackFileName,
		DebugHook:    debugHook(cfg.DebugPDF),
	})

	result, err := p.Run(ctx, data)

	if cache != nil {
		if err := cache.Save(); err != nil {
			logger.Warn("failed to save translation cache", logger.Err(err))
		}
	}
	defer writeMetrics(cfg, runMetrics, result)

	if err != nil {
		return err
	}

	if cfg.Preview {
		fmt.Fprintf(stdout, "--- extracted text ---\n%s\n--- translated text ---\n%s\n",
			textutil.Preview(result.SourceText, previewRunes),
			textutil.Preview(result.TranslatedText, previewRunes))
	}

	outPath := cfg.Output
	if result.Kind == types.OutputText {
		outPath = cfg.FallbackPath()
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrOutput, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(outPath, result.Data, 0644); err != nil {
		return types.NewAppErrorWithDetails(types.ErrOutput, "failed to write output", outPath, err)
	}

	if result.Kind == types.OutputText {
		fmt.Fprintf(stdout, "Could not build the PDF (%v).\nTranslated text written to %s\n", result.RenderErr, outPath)
		return nil
	}
	fmt.Fprintf(stdout, "Translation complete: %s (%d pages, %d by OCR, %d chunks, %s)\n",
		outPath, result.Pages, result.OCRPages, result.Chunks, result.Duration.Round(time.Millisecond))
	return nil
}

func newBackend(ctx context.Context, cfg *config.Config) (translator.Translator, error) {
	var backend translator.Translator
	switch cfg.Backend {
	case config.BackendOpenAI:
		o, err := translator.NewOpenAI(ctx, translator.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, err
		}
		backend = o
	default:
		backend = translator.NewGoogle(translator.GoogleConfig{})
	}

	if cfg.Breaker {
		backend = translator.WithBreaker(backend, translator.DefaultBreakerConfig())
	}
	backend = translator.WithRateLimit(backend, cfg.Rate)

	logger.Info("translation backend ready",
		logger.String("backend", cfg.Backend),
		logger.String("source", cfg.Source),
		logger.String("target", cfg.Target),
		logger.Float64("rate", cfg.Rate),
		logger.Bool("breaker", cfg.Breaker))
	return backend, nil
}

// setupOCR enables the OCR fallback when pdftoppm and Tesseract are both
// available and returns the cleanup function.
func setupOCR(cfg *config.Config, extractorCfg *pdf.ExtractorConfig) func() {
	rasterizer := pdf.NewPopplerRasterizer(cfg.OCRDPI)
	if !rasterizer.Available() {
		logger.Warn("pdftoppm not found, image-only pages will be skipped")
		return func() {}
	}
	client, err := ocr.New()
	if err != nil {
		logger.Warn("OCR unavailable, image-only pages will be skipped", logger.Err(err))
		return func() {}
	}

	extractorCfg.Rasterizer = rasterizer
	extractorCfg.OCR = client
	extractorCfg.PageSegMode = int(ocr.PSMAuto)
	return func() { _ = client.Close() }
}

func debugHook(path string) func([]byte) error {
	if path == "" {
		return nil
	}
	return func(data []byte) error {
		logger.Debug("writing debug PDF", logger.String("path", path))
		return os.WriteFile(path, data, 0644)
	}
}

func writeMetrics(cfg *config.Config, m *metrics.RunMetrics, result *types.Result) {
	if cfg.MetricsFile == "" {
		return
	}
	output := ""
	if result != nil {
		output = string(result.Kind)
	}
	m.Finish(output)
	if err := m.WriteFile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", logger.Err(err))
	}
}
