package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"book-translator/internal/logger"
	"book-translator/internal/notify"
	"book-translator/internal/textutil"
)

// OCREngine recognizes text in a page image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, lang string, psm int) (string, error)
}

// ExtractorConfig configures an Extractor. A nil Rasterizer or OCR disables
// the OCR fallback; image pages then contribute no text.
type ExtractorConfig struct {
	Rasterizer Rasterizer
	OCR        OCREngine
	// Language is the OCR language hint, "eng" when empty.
	Language string
	// PageSegMode is the OCR page segmentation mode, 3 (fully automatic) when zero.
	PageSegMode int
	Notifier    notify.Notifier
}

// Extractor pulls the text out of a PDF, page by page.
type Extractor struct {
	rasterizer Rasterizer
	ocr        OCREngine
	language   string
	psm        int
	notifier   notify.Notifier
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	psm := cfg.PageSegMode
	if psm == 0 {
		psm = 3
	}
	return &Extractor{
		rasterizer: cfg.Rasterizer,
		ocr:        cfg.OCR,
		language:   lang,
		psm:        psm,
		notifier:   notify.OrNop(cfg.Notifier),
	}
}

// Extract returns the document text: each page's text, trimmed and followed
// by a newline, in page order. A page without a text layer is rasterized and
// run through OCR. It fails with ErrPDFNoText when nothing is obtained.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	pages, err := e.Pages(ctx, data)
	if err != nil {
		return "", err
	}
	return JoinPages(pages)
}

// JoinPages concatenates page texts in order and rejects an all-blank result.
func JoinPages(pages []PageText) (string, error) {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(strings.TrimSpace(p.Text()))
		sb.WriteString("\n")
	}

	text := sb.String()
	if textutil.IsBlank(text) {
		return "", NewPDFErrorWithDetails(ErrPDFNoText,
			"the PDF has no extractable text", "neither the text layer nor OCR produced any text", nil)
	}
	return text, nil
}

// Pages extracts the text of every page.
func (e *Extractor) Pages(ctx context.Context, data []byte) ([]PageText, error) {
	if len(data) == 0 {
		return nil, NewPDFError(ErrPDFInvalid, "empty PDF input", nil)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "unable to open PDF", err)
	}

	total := r.NumPage()
	if total == 0 {
		return nil, NewPDFError(ErrPDFInvalid, "PDF has no pages", nil)
	}

	logger.Info("extracting text", logger.Int("pages", total))

	pages := make([]PageText, 0, total)
	ocrPages := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, NewPDFErrorWithPage(ErrCancelled, "extraction cancelled", i, err)
		}

		page := PageText{Index: i}
		text, err := pageText(r, i)
		if err != nil {
			logger.Warn("text layer unreadable, treating page as image",
				logger.Int("page", i), logger.Err(err))
			e.notifier.Warn(notify.Event{
				Stage: notify.StageExtracting, Kind: notify.KindPageUnreadable,
				Unit: notify.UnitPage, Index: i,
				Message: "text layer could not be decoded", Err: err,
			})
		}
		page.Extracted = textutil.Normalize(text)

		if textutil.IsBlank(page.Extracted) {
			page.UsedOCR = true
			page.OCR = e.recognizePage(ctx, data, i)
			ocrPages++
		}

		pages = append(pages, page)
		e.notifier.Progress(notify.StageExtracting, i, total)
	}

	logger.Info("text extraction finished",
		logger.Int("pages", total),
		logger.Int("ocrPages", ocrPages))

	return pages, nil
}

// pageText reads the text layer of page i. ledongthuc/pdf panics on some
// malformed content streams; those panics become errors.
func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page content: %v", rec)
		}
	}()

	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	if page.V.Key("Contents").Kind() == pdf.Null {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// recognizePage rasterizes page i and runs OCR on it. Failures are reported
// and yield empty text so the remaining pages still contribute.
func (e *Extractor) recognizePage(ctx context.Context, data []byte, i int) string {
	e.notifier.Warn(notify.Event{
		Stage: notify.StageExtracting, Kind: notify.KindOCRFallback,
		Unit: notify.UnitPage, Index: i,
		Message: "page may be empty or an image, trying OCR",
	})

	if e.rasterizer == nil || e.ocr == nil {
		logger.Warn("OCR unavailable, skipping image page", logger.Int("page", i))
		return ""
	}

	img, err := e.rasterizer.RasterizePage(ctx, data, i)
	if err != nil {
		e.reportOCRFailure(i, "rasterization failed", err)
		return ""
	}

	text, err := e.ocr.Recognize(ctx, img, e.language, e.psm)
	if err != nil {
		e.reportOCRFailure(i, "OCR failed", err)
		return ""
	}

	logger.Debug("OCR recognized page",
		logger.Int("page", i),
		logger.Int("chars", len(text)))
	return textutil.Normalize(text)
}

func (e *Extractor) reportOCRFailure(page int, msg string, cause error) {
	err := NewPDFErrorWithPage(ErrOCRFailed, msg, page, cause)
	logger.Error("OCR fallback failed", err)
	e.notifier.Warn(notify.Event{
		Stage: notify.StageExtracting, Kind: notify.KindPageUnreadable,
		Unit: notify.UnitPage, Index: page,
		Message: msg + ", no text recovered", Err: cause,
	})
}
