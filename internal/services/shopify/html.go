package shopify

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText drops every tag from body_html, decodes entities and collapses
// whitespace.
func PlainText(bodyHTML string) string {
	if bodyHTML == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(bodyHTML))
	return strings.Join(strings.Fields(text), " ")
}
