package endpoints

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Linkify))
	sanitize = bluemonday.UGCPolicy()
)

// renderMarkdown converts a workshop description to sanitized HTML
func renderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return sanitize.Sanitize(source)
	}
	return string(sanitize.SanitizeBytes(buf.Bytes()))
}
