// Package markup converts between the rendered and plain-text forms of
// content fields. Limits are always measured on the plain-text form.
package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders markdown source to HTML.
func ToHTML(md []byte) string {
	opts := mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags,
	}
	renderer := mdhtml.NewRenderer(opts)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText renders markdown and returns only its text, with whitespace
// collapsed. Used to turn free-form existing descriptions into prompt hints.
func ToPlainText(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	return PlainText(ToHTML([]byte(md)))
}

// PlainText strips tags, decodes entities and collapses whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(html.UnescapeString(StripHTMLTags(s))), " ")
}

// blockTags separate text; inline tags such as <strong> do not.
var blockTags = map[string]bool{
	"li": true, "ul": true, "ol": true, "p": true, "br": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "hr": true, "blockquote": true, "pre": true,
}

// StripHTMLTags drops everything between '<' and '>'. Block-level tags are
// replaced by a space so adjacent items do not run together.
func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	var tag strings.Builder
	inTag := false

	for _, ch := range htmlContent {
		switch {
		case ch == '<':
			inTag = true
			tag.Reset()
		case ch == '>' && inTag:
			inTag = false
			if blockTags[tagName(tag.String())] {
				result.WriteRune(' ')
			}
		case inTag:
			tag.WriteRune(ch)
		default:
			result.WriteRune(ch)
		}
	}

	return result.String()
}

func tagName(raw string) string {
	raw = strings.TrimLeft(strings.TrimSpace(raw), "/")
	if i := strings.IndexAny(raw, " \t\n/"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}

// BulletsHTML renders bullets as a run of <li> items, the format marketplace
// feeds expect for key features.
func BulletsHTML(bullets []string) string {
	var sb strings.Builder
	for _, b := range bullets {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(b))
		sb.WriteString("</li>")
	}
	return sb.String()
}
