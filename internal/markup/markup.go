// Package markup rebuilds chapter documents from translated plain text,
// keeping everything outside the body untouched.
package markup

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	bodyOpenPattern  = regexp.MustCompile(`(?is)<body[^>]*>`)
	bodyClosePattern = regexp.MustCompile(`(?is)</body\s*>`)
	blockSplitter    = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	headingPattern   = regexp.MustCompile(`(?is)<h([1-6])[^>]*>`)
)

// Reintegrate replaces the body of originalMarkup with the translated text
// rendered as heading and paragraph elements. Text blocks are separated by
// blank lines; when the original body contains a heading the first block
// becomes a heading of the same level with a terminal period appended, every
// other block becomes a <p>. Documents without a body are returned with the
// text appended as paragraphs. Translated text that yields no blocks leaves
// the markup unchanged.
func Reintegrate(originalMarkup, translatedText string) string {
	body := renderBody(originalMarkup, translatedText)
	if body == "" {
		return originalMarkup
	}

	open := bodyOpenPattern.FindStringIndex(originalMarkup)
	if open == nil {
		return originalMarkup + body
	}
	closeTag := bodyClosePattern.FindStringIndex(originalMarkup[open[1]:])
	if closeTag == nil {
		return originalMarkup[:open[1]] + body
	}
	closeStart := open[1] + closeTag[0]
	return originalMarkup[:open[1]] + "\n" + body + "\n" + originalMarkup[closeStart:]
}

// renderBody turns translated text into escaped block elements.
func renderBody(originalMarkup, translatedText string) string {
	blocks := splitBlocks(translatedText)
	if len(blocks) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(blocks))
	level := bodyHeadingLevel(originalMarkup)
	for i, block := range blocks {
		if i == 0 && level > 0 {
			rendered = append(rendered, fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(headingText(block)), level))
			continue
		}
		rendered = append(rendered, fmt.Sprintf("<p>%s</p>", html.EscapeString(block)))
	}
	return strings.Join(rendered, "\n")
}

// splitBlocks cuts translated text on blank lines and drops empty blocks.
func splitBlocks(text string) []string {
	var blocks []string
	for _, raw := range blockSplitter.Split(text, -1) {
		block := strings.TrimSpace(raw)
		if block == "" {
			continue
		}
		blocks = append(blocks, collapseLines(block))
	}
	return blocks
}

// collapseLines folds single line breaks inside a block into spaces.
func collapseLines(block string) string {
	return strings.Join(strings.Fields(block), " ")
}

// headingText normalizes heading spacing and appends a terminal period so
// downstream speech synthesis pauses after the title.
func headingText(block string) string {
	text := strings.TrimSpace(block)
	if text == "" {
		return text
	}
	if strings.ContainsAny(string(text[len(text)-1]), ".!?") {
		return text
	}
	return text + "."
}

// bodyHeadingLevel returns the level of the first heading element inside the
// original body, or 0 when the body contains none.
func bodyHeadingLevel(originalMarkup string) int {
	search := originalMarkup
	if open := bodyOpenPattern.FindStringIndex(originalMarkup); open != nil {
		search = originalMarkup[open[1]:]
	}
	m := headingPattern.FindStringSubmatch(search)
	if m == nil {
		return 0
	}
	return int(m[1][0] - '0')
}
