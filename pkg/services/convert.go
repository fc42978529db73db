package services

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// HTMLToMarkdown converts an HTML body to Markdown, keeping links and
// images. Lines are not wrapped. The conversion is lossy.
func HTMLToMarkdown(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(input)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// MarkdownRenderer renders Markdown bodies to the HTML stored in the CMS.
// It holds no per-call state and can be shared.
type MarkdownRenderer struct {
	engine goldmark.Markdown
}

// NewMarkdownRenderer builds a renderer with GFM and linkify enabled. Raw
// HTML in the source is passed through, as Hugo does with unsafe rendering.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render converts src to HTML.
func (r *MarkdownRenderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("markdown parse: %w", err)
	}
	return buf.String(), nil
}
