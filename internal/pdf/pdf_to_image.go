package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"book-translator/internal/logger"
)

// DefaultDPI is the rasterization resolution used for OCR.
const DefaultDPI = 300

// Rasterizer renders a single page of a PDF to a PNG image.
type Rasterizer interface {
	// RasterizePage renders page (1-based) of the PDF in data.
	RasterizePage(ctx context.Context, data []byte, page int) ([]byte, error)
}

// PopplerRasterizer shells out to poppler's pdftoppm.
type PopplerRasterizer struct {
	dpi    int
	binary string
}

// NewPopplerRasterizer creates a rasterizer at the given resolution. A
// non-positive dpi selects DefaultDPI.
func NewPopplerRasterizer(dpi int) *PopplerRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PopplerRasterizer{dpi: dpi, binary: "pdftoppm"}
}

// Available reports whether pdftoppm can be found on PATH.
func (r *PopplerRasterizer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// RasterizePage writes data to a scratch directory, renders exactly the
// requested page with pdftoppm and returns the PNG bytes. The scratch
// directory is removed before returning.
func (r *PopplerRasterizer) RasterizePage(ctx context.Context, data []byte, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number %d", page)
	}
	if !r.Available() {
		return nil, fmt.Errorf("pdftoppm not found, please install poppler-utils " +
			"(Ubuntu/Debian: apt-get install poppler-utils, macOS: brew install poppler)")
	}

	tempDir, err := os.MkdirTemp("", "pdf2img_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	outputPrefix := filepath.Join(tempDir, fmt.Sprintf("page_%d", page))
	args := []string{
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		inputPath,
		outputPrefix,
	}

	logger.Debug("rasterizing page",
		logger.Int("page", page),
		logger.Int("dpi", r.dpi))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	hideWindowOnWindows(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output))
	}

	img, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return img, nil
}
