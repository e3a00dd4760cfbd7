package utils

import (
	"html"
	"regexp"
	"strings"
)

var (
	editorWrapperRe = regexp.MustCompile(`<div class="ql-editor[^"]*"[^>]*>`)
	brRe            = regexp.MustCompile(`(?i)<br\s*/?>`)
	closePRe        = regexp.MustCompile(`(?i)</p>`)
	openLiRe        = regexp.MustCompile(`(?i)<li[^>]*>`)
	closeLiRe       = regexp.MustCompile(`(?i)</li>`)
	anyTagRe        = regexp.MustCompile(`<[^>]+>`)
	blankRunsRe     = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts rich-text editor markup to the plain text platform APIs
// expect: <br> becomes a newline, </p> a blank line, list items bullet
// prefixes; every remaining tag is dropped and entities are decoded.
func StripHTML(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	text := editorWrapperRe.ReplaceAllString(htmlContent, "")
	text = brRe.ReplaceAllString(text, "\n")
	text = closePRe.ReplaceAllString(text, "\n\n")
	text = openLiRe.ReplaceAllString(text, "• ")
	text = closeLiRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, "")

	text = html.UnescapeString(text)
	text = blankRunsRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
