package pdf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"book-translator/internal/notify"
)

// buildPDF writes one A4 page per entry; an empty entry produces a page with
// no text layer.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		if text != "" {
			doc.SetXY(40, 60)
			doc.Cell(0, 14, text)
		}
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("failed to build test PDF: %v", err)
	}
	return buf.Bytes()
}

type fakeRasterizer struct {
	pages []int
	err   error
}

func (f *fakeRasterizer) RasterizePage(_ context.Context, _ []byte, page int) ([]byte, error) {
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type fakeOCR struct {
	calls int
	text  string
	lang  string
	psm   int
	err   error
}

func (f *fakeOCR) Recognize(_ context.Context, image []byte, lang string, psm int) (string, error) {
	f.calls++
	f.lang = lang
	f.psm = psm
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestExtract_TextLayer(t *testing.T) {
	data := buildPDF(t, "First page text", "Second page text")
	ocr := &fakeOCR{text: "should not be used"}

	e := NewExtractor(ExtractorConfig{Rasterizer: &fakeRasterizer{}, OCR: ocr})
	text, err := e.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	first := strings.Index(text, "First page text")
	second := strings.Index(text, "Second page text")
	if first < 0 || second < 0 {
		t.Fatalf("missing page text in %q", text)
	}
	if first > second {
		t.Errorf("pages out of order: %q", text)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR called %d times for pages with a text layer", ocr.calls)
	}
}

func TestExtract_OCRFallbackOnBlankPage(t *testing.T) {
	data := buildPDF(t, "Chapter one", "")
	raster := &fakeRasterizer{}
	ocr := &fakeOCR{text: "Scanned words"}
	rec := &notify.Recorder{}

	e := NewExtractor(ExtractorConfig{
		Rasterizer: raster,
		OCR:        ocr,
		Language:   "eng",
		Notifier:   rec,
	})
	text, err := e.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if ocr.calls != 1 {
		t.Fatalf("expected OCR once, got %d", ocr.calls)
	}
	if len(raster.pages) != 1 || raster.pages[0] != 2 {
		t.Errorf("expected page 2 rasterized, got %v", raster.pages)
	}
	if ocr.lang != "eng" || ocr.psm != 3 {
		t.Errorf("unexpected OCR options lang=%q psm=%d", ocr.lang, ocr.psm)
	}
	if !(strings.Index(text, "Chapter one") < strings.Index(text, "Scanned words")) {
		t.Errorf("OCR text should follow page 1 text: %q", text)
	}

	warnings := rec.WarningsOf(notify.KindOCRFallback)
	if len(warnings) != 1 || warnings[0].Index != 2 {
		t.Errorf("expected one OCR fallback warning for page 2, got %+v", warnings)
	}
}

func TestExtract_OCRFailureKeepsOtherPages(t *testing.T) {
	data := buildPDF(t, "Readable", "")
	rec := &notify.Recorder{}

	e := NewExtractor(ExtractorConfig{
		Rasterizer: &fakeRasterizer{},
		OCR:        &fakeOCR{err: errors.New("engine crashed")},
		Notifier:   rec,
	})
	text, err := e.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "Readable") {
		t.Errorf("expected page 1 text, got %q", text)
	}
	if len(rec.WarningsOf(notify.KindPageUnreadable)) != 1 {
		t.Errorf("expected an unreadable page warning, got %+v", rec.Warnings)
	}
}

func TestExtract_NoText(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExtractorConfig
	}{
		{"no OCR configured", ExtractorConfig{}},
		{"OCR finds nothing", ExtractorConfig{Rasterizer: &fakeRasterizer{}, OCR: &fakeOCR{text: "  \n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildPDF(t, "", "")
			_, err := NewExtractor(tt.cfg).Extract(context.Background(), data)
			if CodeOf(err) != ErrPDFNoText {
				t.Errorf("expected %s, got %v", ErrPDFNoText, err)
			}
			if !IsExtractionFailure(err) {
				t.Errorf("expected an extraction failure, got %v", err)
			}
		})
	}
}

func TestExtract_InvalidPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a PDF", []byte("This is not a PDF file")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(ExtractorConfig{}).Extract(context.Background(), tt.data)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var pdfErr *PDFError
			if !errors.As(err, &pdfErr) {
				t.Fatalf("expected PDFError, got %T", err)
			}
			if pdfErr.Code != ErrPDFInvalid {
				t.Errorf("expected error code %s, got %s", ErrPDFInvalid, pdfErr.Code)
			}
		})
	}
}

func TestExtract_Cancelled(t *testing.T) {
	data := buildPDF(t, "Some text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(ExtractorConfig{}).Extract(ctx, data)
	if CodeOf(err) != ErrCancelled {
		t.Errorf("expected %s, got %v", ErrCancelled, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestExtract_ReportsProgress(t *testing.T) {
	data := buildPDF(t, "one", "two", "three")
	rec := &notify.Recorder{}

	if _, err := NewExtractor(ExtractorConfig{Notifier: rec}).Extract(context.Background(), data); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(rec.Updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d", len(rec.Updates))
	}
	last := rec.Updates[2]
	if last.Done != 3 || last.Total != 3 {
		t.Errorf("unexpected final update %+v", last)
	}
}

func TestJoinPages(t *testing.T) {
	pages := []PageText{
		{Index: 1, Extracted: "  alpha  "},
		{Index: 2, UsedOCR: true, OCR: "beta"},
		{Index: 3},
	}
	got, err := JoinPages(pages)
	if err != nil {
		t.Fatalf("JoinPages failed: %v", err)
	}
	if got != "alpha\nbeta\n\n" {
		t.Errorf("JoinPages = %q", got)
	}
}
