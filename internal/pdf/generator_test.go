package pdf

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"book-translator/internal/notify"
)

func kinds(elements []Element) []ElementKind {
	out := make([]ElementKind, len(elements))
	for i, el := range elements {
		out[i] = el.Kind
	}
	return out
}

func TestSplitParagraphs(t *testing.T) {
	paragraphs := SplitParagraphs("Primeiro.\n\n   \n\nSegundo\x07 parágrafo.\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %+v", len(paragraphs), paragraphs)
	}
	if paragraphs[1].Index != 2 || paragraphs[1].Clean != "Segundo parágrafo." {
		t.Errorf("unexpected second paragraph %+v", paragraphs[1])
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Olá! Tudo bem?? Sim... ótimo")
	want := []string{"Olá.", "Tudo bem.", "Sim.", "ótimo."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSentences = %q, want %q", got, want)
	}
}

func TestLayout_TwoParagraphs(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	elements := r.Layout("Hello.\n\nWorld.")

	want := []ElementKind{ElementParagraph, ElementSpacer, ElementParagraph, ElementSpacer}
	if !reflect.DeepEqual(kinds(elements), want) {
		t.Fatalf("Layout kinds = %v, want %v", kinds(elements), want)
	}
	if elements[0].Text != "Hello." || elements[2].Text != "World." {
		t.Errorf("unexpected paragraph text %q, %q", elements[0].Text, elements[2].Text)
	}
	if elements[0].Paragraph != 1 || elements[2].Paragraph != 2 {
		t.Errorf("unexpected paragraph indexes %d, %d", elements[0].Paragraph, elements[2].Paragraph)
	}
}

func TestLayout_SentenceFallback(t *testing.T) {
	rec := &notify.Recorder{}
	r := NewRenderer(RendererConfig{Notifier: rec})

	text := "Antes.\n\nFrase boa. Frase <blink>ruim</blink> aqui! Outra boa?\n\nDepois."
	elements := r.Layout(text)

	want := []ElementKind{
		ElementParagraph, ElementSpacer,
		ElementSentence, ElementSentence, ElementSpacer,
		ElementParagraph, ElementSpacer,
	}
	if !reflect.DeepEqual(kinds(elements), want) {
		t.Fatalf("Layout kinds = %v, want %v", kinds(elements), want)
	}
	if elements[2].Text != "Frase boa." || elements[3].Text != "Outra boa." {
		t.Errorf("unexpected recovered sentences %q, %q", elements[2].Text, elements[3].Text)
	}
	if elements[5].Text != "Depois." {
		t.Errorf("paragraph after the fallback should be intact, got %q", elements[5].Text)
	}

	if n := len(rec.WarningsOf(notify.KindParagraphFallback)); n != 1 {
		t.Errorf("expected 1 paragraph fallback warning, got %d", n)
	}
	dropped := rec.WarningsOf(notify.KindSentenceDropped)
	if len(dropped) != 1 || dropped[0].Index != 2 {
		t.Errorf("expected sentence 2 dropped, got %+v", dropped)
	}
}

func TestLayout_AllSentencesDropped(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	elements := r.Layout("<blink>tudo ruim</blink>")

	want := []ElementKind{ElementSpacer}
	if !reflect.DeepEqual(kinds(elements), want) {
		t.Errorf("Layout kinds = %v, want %v", kinds(elements), want)
	}
}

func TestLayout_KeepsAccents(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	elements := r.Layout("Tradu\x00ção \x1bé ótima, não?")
	if len(elements) != 2 {
		t.Fatalf("expected paragraph and spacer, got %v", kinds(elements))
	}
	if elements[0].Text != "Tradução é ótima, não?" {
		t.Errorf("got %q", elements[0].Text)
	}
}

func TestRender_ValidPDF(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	data, err := r.Render(context.Background(), "Hello.\n\nWorld.")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
	if err := api.Validate(bytes.NewReader(data), r.conf); err != nil {
		t.Errorf("pdfcpu rejected the output: %v", err)
	}
}

func TestRender_Paginates(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 120; i++ {
		paragraphs = append(paragraphs, strings.Repeat("Uma frase de teste para preencher a página. ", 6))
	}

	r := NewRenderer(RendererConfig{})
	data, err := r.Render(context.Background(), strings.Join(paragraphs, "\n\n"))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), r.conf)
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if pages < 2 {
		t.Errorf("expected several pages, got %d", pages)
	}
}

func TestRender_AccentsRoundTrip(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	data, err := r.Render(context.Background(), "Tradução")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text, err := NewExtractor(ExtractorConfig{}).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "Tradução") {
		t.Errorf("accents lost: %q", text)
	}
}

func TestRender_BuildFailure(t *testing.T) {
	r := NewRenderer(RendererConfig{Page: PageConfig{FontFamily: "NoSuchFont"}})
	_, err := r.Render(context.Background(), "Texto.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsRenderFailure(err) {
		t.Errorf("expected a render failure, got %v", err)
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(RendererConfig{}).Render(ctx, "Texto.")
	if CodeOf(err) != ErrCancelled {
		t.Errorf("expected %s, got %v", ErrCancelled, err)
	}
}
