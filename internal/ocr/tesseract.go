//go:build !ocr

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Client runs the tesseract executable once per image.
type Client struct {
	binary string
}

// New returns a Client, or an error if tesseract is not on PATH.
func New() (*Client, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("tesseract not found: %w", err)
	}
	return &Client{binary: path}, nil
}

// Close is a no-op for the command-line client.
func (c *Client) Close() error {
	return nil
}

// Recognize feeds image (PNG, TIFF, JPEG...) to tesseract on stdin and
// returns the recognized text with surrounding whitespace trimmed.
func (c *Client) Recognize(ctx context.Context, image []byte, lang string, psm int) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	lang, mode := normalize(lang, psm)

	cmd := exec.CommandContext(ctx, c.binary, "stdin", "stdout",
		"-l", lang,
		"--psm", strconv.Itoa(int(mode)))
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
