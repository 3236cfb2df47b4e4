package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"book-translator/internal/logger"
)

const (
	// GoogleEndpoint is the public web translation endpoint.
	GoogleEndpoint = "https://translate.googleapis.com/translate_a/single"
	// DefaultGoogleTimeout bounds a single request.
	DefaultGoogleTimeout = 60 * time.Second
)

// GoogleConfig configures the Google web translation backend.
type GoogleConfig struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

// Google translates through the keyless Google Translate web endpoint.
type Google struct {
	endpoint string
	client   *http.Client
}

// NewGoogle creates a Google backend.
func NewGoogle(cfg GoogleConfig) *Google {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = GoogleEndpoint
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultGoogleTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Google{endpoint: endpoint, client: client}
}

// Translate sends text in the request body so chunks of several thousand
// characters do not hit URL length limits.
func (g *Google) Translate(ctx context.Context, text, source, target string) (string, error) {
	query := url.Values{
		"client": {"gtx"},
		"sl":     {source},
		"tl":     {target},
		"dt":     {"t"},
	}
	form := url.Values{"q": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.endpoint+"?"+query.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &APIError{Backend: "google", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Backend: "google", Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			Backend:    "google",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body[:min(len(body), 200)])),
		}
	}

	translated, err := parseGoogleResponse(body)
	if err != nil {
		return "", &APIError{Backend: "google", Message: "unexpected response", Cause: err}
	}

	logger.Debug("google translation",
		logger.Int("inputChars", len(text)),
		logger.Int("outputChars", len(translated)))
	return translated, nil
}

// parseGoogleResponse joins the translated segments of a response shaped
// like [[["translated", "original", ...], ...], ...].
func parseGoogleResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("no sentence list: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no translated text")
	}
	return sb.String(), nil
}
