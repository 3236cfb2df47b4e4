package translator

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the largest chunk, in characters, sent to a backend.
	DefaultChunkSize = 4500
	// DefaultChunkOverlap bounds how many trailing characters of a chunk,
	// in whole lines, are repeated at the start of the next one.
	DefaultChunkOverlap = 200
	// DefaultSeparator is the preferred split point.
	DefaultSeparator = "\n"
)

// Chunk is a bounded piece of the source text.
type Chunk struct {
	// Index is 0-based.
	Index int
	// Text is what gets translated: the overlap prefix followed by the
	// chunk's own content.
	Text string
	// Overlap is the number of leading runes of Text copied from the end of
	// the previous chunk.
	Overlap int
}

// Content returns Text without the overlap prefix.
func (c Chunk) Content() string {
	return dropRunes(c.Text, c.Overlap)
}

// Chunker splits text into chunks at separator boundaries.
type Chunker struct {
	Size      int
	Overlap   int
	Separator string
}

// NewChunker returns a Chunker splitting on line breaks.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{Size: size, Overlap: overlap, Separator: DefaultSeparator}
}

func (c *Chunker) params() (size, overlap int, sep string) {
	size, overlap, sep = c.Size, c.Overlap, c.Separator
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if sep == "" {
		sep = DefaultSeparator
	}
	return size, overlap, sep
}

// Split cuts text into ordered chunks of at most Size runes, including the
// overlap prefix. Units between separators are never cut: a unit longer than
// Size becomes a chunk of its own, without overlap. Separators stay attached
// to the unit they end, so Join(Split(text)) == text.
//
// The overlap prefix is made of whole trailing units of the previous chunk,
// as many as fit in Overlap runes. When the last unit alone is longer, the
// chunk gets no prefix.
//
// Empty text yields a single empty chunk.
func (c *Chunker) Split(text string) []Chunk {
	size, overlap, sep := c.params()
	if text == "" {
		return []Chunk{{Index: 0}}
	}

	var (
		chunks    []Chunk
		units     []string
		prevUnits []string
		prefix    string
		content   strings.Builder
		length    int
	)

	flush := func() {
		body := content.String()
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Text:    prefix + body,
			Overlap: utf8.RuneCountInString(prefix),
		})
		prevUnits = units
		units = nil
		prefix = ""
		content.Reset()
		length = 0
	}

	start := func(unit string, n int) {
		if len(chunks) > 0 {
			room := size - n
			if room > overlap {
				room = overlap
			}
			prefix = trailingUnits(prevUnits, room)
		}
		content.WriteString(unit)
		units = append(units, unit)
		length = utf8.RuneCountInString(prefix) + n
	}

	for _, unit := range strings.SplitAfter(text, sep) {
		if unit == "" {
			continue
		}
		n := utf8.RuneCountInString(unit)
		switch {
		case content.Len() == 0:
			start(unit, n)
		case length+n > size:
			flush()
			start(unit, n)
		default:
			content.WriteString(unit)
			units = append(units, unit)
			length += n
		}
	}
	if content.Len() > 0 {
		flush()
	}
	return chunks
}

// Join drops every overlap prefix and concatenates the chunks.
func Join(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Content())
	}
	return sb.String()
}

// trailingUnits returns the longest run of whole units ending the slice that
// fits in limit runes.
func trailingUnits(units []string, limit int) string {
	total, first := 0, len(units)
	for i := len(units) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(units[i])
		if total+n > limit {
			break
		}
		total += n
		first = i
	}
	return strings.Join(units[first:], "")
}

func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
