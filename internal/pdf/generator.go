package pdf

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"book-translator/internal/logger"
	"book-translator/internal/notify"
	"book-translator/internal/textutil"
)

// PageConfig describes the page geometry and body typography. Lengths are in
// points.
type PageConfig struct {
	PageSize   string
	Margin     float64
	FontFamily string
	FontSize   float64
	Leading    float64
	// Spacing is the vertical gap inserted after each paragraph.
	Spacing float64
}

// DefaultPageConfig returns A4 pages with 30pt margins and 10/14 Helvetica.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		PageSize:   "A4",
		Margin:     30,
		FontFamily: "Helvetica",
		FontSize:   10,
		Leading:    14,
		Spacing:    6,
	}
}

func (c PageConfig) withDefaults() PageConfig {
	d := DefaultPageConfig()
	if c.PageSize == "" {
		c.PageSize = d.PageSize
	}
	if c.Margin <= 0 {
		c.Margin = d.Margin
	}
	if c.FontFamily == "" {
		c.FontFamily = d.FontFamily
	}
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	if c.Leading <= 0 {
		c.Leading = d.Leading
	}
	if c.Spacing <= 0 {
		c.Spacing = d.Spacing
	}
	return c
}

// Paragraph is one blank-line delimited block of the translated text.
type Paragraph struct {
	// Index is 1-based among the non-blank paragraphs.
	Index int
	Raw   string
	Clean string
}

// SplitParagraphs splits text on blank lines, sanitizes each block and skips
// the ones left blank.
func SplitParagraphs(text string) []Paragraph {
	var paragraphs []Paragraph
	for _, raw := range strings.Split(text, "\n\n") {
		clean := strings.TrimSpace(textutil.Sanitize(raw))
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, Paragraph{Index: len(paragraphs) + 1, Raw: raw, Clean: clean})
	}
	return paragraphs
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// SplitSentences breaks a paragraph on runs of sentence terminators. Each
// non-blank fragment is trimmed and ends with a single period.
func SplitSentences(paragraph string) []string {
	var sentences []string
	for _, frag := range sentenceEnd.Split(paragraph, -1) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		sentences = append(sentences, frag+".")
	}
	return sentences
}

// ElementKind identifies a flow element.
type ElementKind int

const (
	ElementParagraph ElementKind = iota
	ElementSentence
	ElementSpacer
)

func (k ElementKind) String() string {
	switch k {
	case ElementParagraph:
		return "paragraph"
	case ElementSentence:
		return "sentence"
	case ElementSpacer:
		return "spacer"
	default:
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
}

// Element is one unit of the page flow.
type Element struct {
	Kind ElementKind
	// Paragraph is the 1-based index of the source paragraph.
	Paragraph int
	Text      string
}

// RendererConfig configures a Renderer.
type RendererConfig struct {
	Page     PageConfig
	Notifier notify.Notifier
	// SkipValidation disables the pdfcpu check of the produced document.
	SkipValidation bool
}

// Renderer lays translated text out as a justified, paginated PDF.
type Renderer struct {
	page     PageConfig
	notifier notify.Notifier
	validate bool
	conf     *model.Configuration
}

var disableConfigDir sync.Once

// NewRenderer creates a Renderer.
func NewRenderer(cfg RendererConfig) *Renderer {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Renderer{
		page:     cfg.Page.withDefaults(),
		notifier: notify.OrNop(cfg.Notifier),
		validate: !cfg.SkipValidation,
		conf:     conf,
	}
}

// Layout turns text into the ordered flow of elements. A paragraph whose
// markup cannot be parsed is recovered sentence by sentence; sentences that
// still fail are dropped. Every paragraph is followed by one spacer.
func (r *Renderer) Layout(text string) []Element {
	paragraphs := SplitParagraphs(text)

	var elements []Element
	for _, p := range paragraphs {
		body, err := ParseMarkup(p.Clean)
		if err == nil {
			elements = append(elements,
				Element{Kind: ElementParagraph, Paragraph: p.Index, Text: body},
				Element{Kind: ElementSpacer, Paragraph: p.Index})
			r.notifier.Progress(notify.StageRendering, p.Index, len(paragraphs))
			continue
		}

		logger.Warn("paragraph could not be laid out, falling back to sentences",
			logger.Int("paragraph", p.Index), logger.Err(err))
		r.notifier.Warn(notify.Event{
			Stage: notify.StageRendering, Kind: notify.KindParagraphFallback,
			Unit: notify.UnitParagraph, Index: p.Index,
			Message: "rendering sentence by sentence", Err: err,
		})

		for i, sentence := range SplitSentences(p.Clean) {
			body, err := ParseMarkup(sentence)
			if err != nil {
				logger.Warn("skipping a problematic sentence",
					logger.Int("paragraph", p.Index),
					logger.Int("sentence", i+1),
					logger.String("text", textutil.Preview(sentence, 80)),
					logger.Err(err))
				r.notifier.Warn(notify.Event{
					Stage: notify.StageRendering, Kind: notify.KindSentenceDropped,
					Unit: notify.UnitSentence, Index: i + 1,
					Message: fmt.Sprintf("skipping a problematic sentence in paragraph %d", p.Index), Err: err,
				})
				continue
			}
			elements = append(elements, Element{Kind: ElementSentence, Paragraph: p.Index, Text: body})
		}
		elements = append(elements, Element{Kind: ElementSpacer, Paragraph: p.Index})
		r.notifier.Progress(notify.StageRendering, p.Index, len(paragraphs))
	}
	return elements
}

// Render lays text out and builds the PDF. It fails with ErrGenerateFailed
// only when the document itself cannot be produced.
func (r *Renderer) Render(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewPDFError(ErrCancelled, "rendering cancelled", err)
	}

	elements := r.Layout(text)
	logger.Info("building PDF", logger.Int("elements", len(elements)))

	data, err := r.Build(elements)
	if err != nil {
		return nil, err
	}

	if r.validate {
		if err := api.Validate(bytes.NewReader(data), r.conf); err != nil {
			return nil, NewPDFErrorWithDetails(ErrGenerateFailed, "generated PDF failed validation", "pdfcpu", err)
		}
	}

	logger.Info("PDF built", logger.Int("bytes", len(data)))
	return data, nil
}

// Build writes elements onto pages. Text flows top to bottom, justified
// between the margins, with automatic page breaks.
func (r *Renderer) Build(elements []Element) ([]byte, error) {
	c := r.page
	doc := gofpdf.New("P", "pt", c.PageSize, "")
	doc.SetMargins(c.Margin, c.Margin, c.Margin)
	doc.SetAutoPageBreak(true, c.Margin)
	doc.SetFont(c.FontFamily, "", c.FontSize)
	doc.AddPage()

	// Core fonts are cp1252 encoded, which covers Portuguese.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, el := range elements {
		switch el.Kind {
		case ElementSpacer:
			doc.Ln(c.Spacing)
		default:
			doc.MultiCell(0, c.Leading, tr(el.Text), "", "J", false)
		}
		if doc.Err() {
			return nil, NewPDFErrorWithDetails(ErrGenerateFailed, "failed to lay out document",
				fmt.Sprintf("%s of paragraph %d", el.Kind, el.Paragraph), doc.Error())
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, NewPDFError(ErrGenerateFailed, "failed to write PDF", err)
	}
	return buf.Bytes(), nil
}
