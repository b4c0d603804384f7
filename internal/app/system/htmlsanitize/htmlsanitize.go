// Package htmlsanitize cleans user-supplied text that may contain markup.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag; safe for values later shown as plain text.
var strict = bluemonday.StrictPolicy()

// StripTags removes all markup from s and returns plain text. Entities that
// the policy escapes are decoded again, so "Tom & Jerry" survives unchanged.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// PlainTextToHTML escapes s and turns newlines into <br> so plain text keeps
// its line structure inside an HTML document.
func PlainTextToHTML(s string) template.HTML {
	if s == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}
