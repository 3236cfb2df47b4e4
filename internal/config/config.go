// Package config builds the run configuration from command-line flags and
// environment variables.
package config

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	"book-translator/internal/types"
)

const (
	// EnvOpenAIAPIKey is the environment variable name for OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvOpenAIModel is the environment variable name for the OpenAI model
	EnvOpenAIModel = "OPENAI_MODEL"

	DefaultOutput     = "livro_traduzido.pdf"
	DefaultSource     = "en"
	DefaultTarget     = "pt"
	DefaultChunkSize  = 4500
	DefaultOverlap    = 200
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultBackend    = BackendGoogle
	DefaultOCRLang    = "eng"
	DefaultOCRDPI     = 300
	DefaultLogLevel   = "info"

	// FallbackFileName is written instead of the PDF when rendering fails.
	FallbackFileName = "traducao.txt"

	BackendGoogle = "google"
	BackendOpenAI = "openai"
)

// Config is the configuration of one run.
type Config struct {
	Input  string
	Output string

	Source       string
	Target       string
	ChunkSize    int
	ChunkOverlap int
	MaxRetries   int
	RetryDelay   time.Duration

	Backend       string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Rate          float64
	Breaker       bool

	CachePath   string
	DebugPDF    string
	MetricsFile string
	LogFile     string
	LogLevel    string
	Preview     bool

	OCRLanguage string
	OCRDPI      int
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Output:       DefaultOutput,
		Source:       DefaultSource,
		Target:       DefaultTarget,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultOverlap,
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		Backend:      DefaultBackend,
		LogLevel:     DefaultLogLevel,
		OCRLanguage:  DefaultOCRLang,
		OCRDPI:       DefaultOCRDPI,
	}
}

// Parse reads flags from args (without the program name). Environment
// variables seed the OpenAI settings; explicit flags win over them.
func Parse(name string, args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := Default()
	cfg.OpenAIAPIKey = getenv(EnvOpenAIAPIKey)
	cfg.OpenAIBaseURL = getenv(EnvOpenAIBaseURL)
	cfg.OpenAIModel = getenv(EnvOpenAIModel)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] input.pdf\n\nTranslates an English PDF book into Brazilian Portuguese.\n\nFlags:\n", name)
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.Output, "o", cfg.Output, "output PDF file")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "source language code")
	fs.StringVar(&cfg.Target, "target", cfg.Target, "target language code")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "maximum characters per translation request")
	fs.IntVar(&cfg.ChunkOverlap, "chunk-overlap", cfg.ChunkOverlap, "characters repeated between consecutive chunks")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "attempts per chunk before giving up")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "wait before the first retry, doubled on each further retry")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "translation backend: google or openai")
	fs.StringVar(&cfg.OpenAIModel, "model", cfg.OpenAIModel, "OpenAI model (default $"+EnvOpenAIModel+")")
	fs.StringVar(&cfg.OpenAIBaseURL, "base-url", cfg.OpenAIBaseURL, "OpenAI-compatible API base URL (default $"+EnvOpenAIBaseURL+")")
	fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "maximum translation requests per second, 0 for no limit")
	fs.BoolVar(&cfg.Breaker, "breaker", cfg.Breaker, "stop calling the backend for a while after repeated failures")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "translation cache file, reused across runs")
	fs.StringVar(&cfg.DebugPDF, "debug-pdf", cfg.DebugPDF, "also write the produced PDF to this path")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this file")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file as well")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.BoolVar(&cfg.Preview, "preview", cfg.Preview, "print the beginning of the extracted and translated text")
	fs.StringVar(&cfg.OCRLanguage, "ocr-lang", cfg.OCRLanguage, "Tesseract language for image pages")
	fs.IntVar(&cfg.OCRDPI, "ocr-dpi", cfg.OCRDPI, "rendering resolution for image pages")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
		fs.Usage()
		return nil, types.NewAppError(types.ErrInvalidInput, "no input PDF given", nil)
	case 1:
		cfg.Input = fs.Arg(0)
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "exactly one input PDF expected",
			strings.Join(fs.Args(), " "), nil)
	}

	return cfg, nil
}

// Validate checks value ranges and normalizes language codes.
func (c *Config) Validate() error {
	if c.Input == "" {
		return types.NewAppError(types.ErrConfig, "input file is required", nil)
	}
	if c.Output == "" {
		return types.NewAppError(types.ErrConfig, "output file is required", nil)
	}

	for _, l := range []*string{&c.Source, &c.Target} {
		tag, err := language.Parse(*l)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrConfig, "invalid language code", *l, err)
		}
		*l = tag.String()
	}
	if c.Source == c.Target {
		return types.NewAppErrorWithDetails(types.ErrConfig, "source and target languages are the same", c.Source, nil)
	}

	if c.ChunkSize <= 0 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "chunk size must be positive", fmt.Sprint(c.ChunkSize), nil)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return types.NewAppErrorWithDetails(types.ErrConfig, "chunk overlap must be between 0 and the chunk size",
			fmt.Sprint(c.ChunkOverlap), nil)
	}
	if c.MaxRetries < 1 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "max retries must be at least 1", fmt.Sprint(c.MaxRetries), nil)
	}
	if c.RetryDelay < 0 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "retry delay cannot be negative", c.RetryDelay.String(), nil)
	}
	if c.Rate < 0 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "rate cannot be negative", fmt.Sprint(c.Rate), nil)
	}

	switch c.Backend {
	case BackendGoogle:
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return types.NewAppErrorWithDetails(types.ErrConfig, "OpenAI API key not configured",
				"set the "+EnvOpenAIAPIKey+" environment variable", nil)
		}
	default:
		return types.NewAppErrorWithDetails(types.ErrConfig, "unknown backend", c.Backend, nil)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return types.NewAppErrorWithDetails(types.ErrConfig, "invalid log level", c.LogLevel, nil)
	}
	if c.OCRDPI < 72 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "OCR resolution too low", fmt.Sprint(c.OCRDPI), nil)
	}
	return nil
}

// FallbackPath is where the plain-text translation goes when the PDF cannot
// be built: next to the requested output.
func (c *Config) FallbackPath() string {
	return filepath.Join(filepath.Dir(c.Output), FallbackFileName)
}
