package pdf

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// inlineTags are the inline tags a paragraph may carry. Styling is not
// reproduced; the tags only have to be well formed.
var inlineTags = map[string]bool{
	"b":      true,
	"i":      true,
	"u":      true,
	"strong": true,
	"em":     true,
	"font":   true,
	"para":   true,
	"br":     true,
}

// entityRef matches something that is meant to be a character reference.
// A bare "&" followed by a space or punctuation is taken literally.
var entityRef = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)

var spaceRun = regexp.MustCompile(`[ \t\r\n\f\v]+`)

// MarkupError reports inline markup that cannot be laid out.
type MarkupError struct {
	// Offset is the byte offset of the offending token.
	Offset int
	Reason string
}

func (e *MarkupError) Error() string {
	return fmt.Sprintf("invalid markup at offset %d: %s", e.Offset, e.Reason)
}

// IsMarkupError reports whether err is a *MarkupError.
func IsMarkupError(err error) bool {
	var me *MarkupError
	return errors.As(err, &me)
}

// ParseMarkup validates the inline markup in s and returns its plain text.
// Entities are decoded, <br> becomes a line break and runs of whitespace
// collapse to a single space.
func ParseMarkup(s string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(s))

	var (
		out    strings.Builder
		open   []string
		offset int
	)
	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", &MarkupError{Offset: offset, Reason: err.Error()}
			}
			if offset < len(s) {
				return "", &MarkupError{Offset: offset, Reason: "unterminated tag"}
			}
			if len(open) > 0 {
				return "", &MarkupError{Offset: offset, Reason: fmt.Sprintf("unclosed <%s>", open[len(open)-1])}
			}
			return flatten(out.String()), nil

		case html.TextToken:
			if i := strings.IndexByte(raw, '<'); i >= 0 {
				return "", &MarkupError{Offset: offset + i, Reason: "stray '<'"}
			}
			for _, m := range entityRef.FindAllStringSubmatchIndex(raw, -1) {
				ref := raw[m[0]:m[1]]
				if html.UnescapeString(ref) == ref {
					return "", &MarkupError{Offset: offset + m[0], Reason: fmt.Sprintf("unknown entity %s", ref)}
				}
			}
			out.WriteString(spaceRun.ReplaceAllString(string(z.Text()), " "))

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !inlineTags[tag] {
				return "", &MarkupError{Offset: offset, Reason: fmt.Sprintf("unsupported tag <%s>", tag)}
			}
			switch {
			case tag == "br":
				out.WriteString("\n")
			case tt == html.StartTagToken:
				open = append(open, tag)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if len(open) == 0 || open[len(open)-1] != tag {
				return "", &MarkupError{Offset: offset, Reason: fmt.Sprintf("unexpected </%s>", tag)}
			}
			open = open[:len(open)-1]

		default:
			return "", &MarkupError{Offset: offset, Reason: "comments and declarations are not allowed"}
		}

		offset += len(raw)
	}
}

// flatten trims the spaces left around line breaks and at the ends.
func flatten(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Trim(spaceRun.ReplaceAllString(l, " "), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
