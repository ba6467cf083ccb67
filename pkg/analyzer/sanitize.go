package analyzer

import (
	"html"
	"regexp"
	"strings"
)

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)

	reDataAttr   = regexp.MustCompile(`(?i)\bdata-[a-z-]+\s*=\s*(?:'[^']*'|"[^"]*"|’[^’]*’|[^\s>]+)\s*(?:>|&gt;)?`)
	reMark       = regexp.MustCompile(`(?i)</?mark[^>]*>`)
	reTag        = regexp.MustCompile(`<[^>]+>`)
	reInlineWS   = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability extracts all text including furigana, which
// leads to duplication (e.g. "漢字" becomes "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// SanitizeScript strips markup residue the crawler sometimes leaves in script
// text: entities, leaked data-* attributes, highlight marks and stray tags.
// Whitespace runs are collapsed and at most one blank line is kept.
func SanitizeScript(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = html.UnescapeString(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = reDataAttr.ReplaceAllString(text, "")
	text = reMark.ReplaceAllString(text, "")
	text = reTag.ReplaceAllString(text, "")
	text = reInlineWS.ReplaceAllString(text, " ")
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
