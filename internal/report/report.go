// Package report renders optimization reports, which the design service
// returns as Markdown, to HTML for the preview page.
package report

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in the report is dropped (goldmark's default, no html.WithUnsafe).
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// ToHTML converts a Markdown report to an HTML fragment. An empty report
// yields an empty string.
func ToHTML(report string) (string, error) {
	if strings.TrimSpace(report) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(report), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
