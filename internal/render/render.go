// Package render turns assistant replies into HTML for the web page and API.
package render

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// bulletLine matches replies that use "•" as a list marker.
var bulletLine = regexp.MustCompile(`(?m)^•\s*`)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// HTML renders a reply as Markdown. Line breaks are kept and "•" bullets
// become list items. Raw HTML in the input is
// omitted from the output.
func HTML(text string) (string, error) {
	source := bulletLine.ReplaceAllString(text, "- ")

	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
