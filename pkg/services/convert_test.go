package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToMarkdownKeepsLinksAndImages(t *testing.T) {
	html := `<p>Lees het <a href="https://example.org/verslag">verslag</a>.</p><p><img src="/media/foto.jpg" alt="Foto"></p>`

	md, err := HTMLToMarkdown(html)
	require.NoError(t, err)
	assert.Contains(t, md, "[verslag](https://example.org/verslag)")
	assert.Contains(t, md, "![Foto](/media/foto.jpg)")
}

func TestHTMLToMarkdownDoesNotWrap(t *testing.T) {
	long := strings.Repeat("woord ", 60)
	md, err := HTMLToMarkdown("<p>" + long + "</p>")
	require.NoError(t, err)
	assert.NotContains(t, md, "\n")
}

func TestHTMLToMarkdownEmpty(t *testing.T) {
	md, err := HTMLToMarkdown("")
	require.NoError(t, err)
	assert.Empty(t, md)

	md, err = HTMLToMarkdown("   \n ")
	require.NoError(t, err)
	assert.Empty(t, md)
}

func TestMarkdownRendererRender(t *testing.T) {
	r := NewMarkdownRenderer()

	html, err := r.Render([]byte("# Titel\n\nTekst met [link](https://example.org) en ~~doorgehaald~~.\n"))
	require.NoError(t, err)
	assert.Contains(t, html, "Titel</h1>")
	assert.Contains(t, html, `<a href="https://example.org">link</a>`)
	assert.Contains(t, html, "<del>doorgehaald</del>")
}

func TestMarkdownRendererPassesRawHTML(t *testing.T) {
	html, err := NewMarkdownRenderer().Render([]byte("<div class=\"note\">raw</div>\n"))
	require.NoError(t, err)
	assert.Contains(t, html, `<div class="note">raw</div>`)
}
