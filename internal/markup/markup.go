// Package markup turns author-supplied markdown into safe HTML and derives plain text
// (excerpts, reading time) from it.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// wordsPerMinute is the reading speed used for reading-time estimates.
const wordsPerMinute = 200

// Renderer converts markdown to sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

// New builds a Renderer with GFM tables, strikethrough, autolinks and typographer.
func New() *Renderer {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			// raw HTML in sources is allowed here and removed by the UGC policy
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		ugc:    ugc,
		strict: bluemonday.StrictPolicy(),
	}
}

// Render converts markdown to sanitized HTML ready for templates.
func (r *Renderer) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markup: convert: %w", err)
	}
	return template.HTML(r.ugc.SanitizeBytes(buf.Bytes())), nil
}

// SanitizeHTML cleans author-supplied HTML with the same policy as rendered markdown.
func (r *Renderer) SanitizeHTML(s string) string {
	return r.ugc.Sanitize(s)
}

// Sanitize strips every tag from user input such as comments, keeping the text.
// The result is plain text; templates escape it again on output.
func (r *Renderer) Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(r.strict.Sanitize(s)))
}

// PlainText extracts visible text from an HTML fragment, collapsing whitespace.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input: return what was collected
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isSkipped(string(name)) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isSkipped(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isSkipped(tag string) bool {
	switch tag {
	case "script", "style", "pre":
		return true
	default:
		return false
	}
}

// ReadingMinutes estimates reading time for text; never less than one minute.
func ReadingMinutes(text string) int {
	words := len(strings.Fields(text))
	mins := (words + wordsPerMinute - 1) / wordsPerMinute
	if mins < 1 {
		return 1
	}
	return mins
}

// Excerpt cuts text to at most limit runes on a word boundary, appending an ellipsis.
func Excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
