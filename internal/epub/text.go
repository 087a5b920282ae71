package epub

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "tr": true, "figcaption": true,
	"header": true, "footer": true, "pre": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// ExtractText converts chapter markup to plain text. Block elements become
// paragraphs separated by blank lines so chunk boundaries can honor them.
func ExtractText(markup string) (string, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	walkText(root, &sb)

	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text := strings.Join(lines, "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

func walkText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		if n.Data == "br" {
			sb.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(collapseSpace(n.Data))
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, sb)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteString("\n\n")
	}
}

// collapseSpace folds runs of markup whitespace into single spaces while
// keeping a word boundary at either edge of the text node.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if unicode.IsSpace(rune(s[0])) {
		out = " " + out
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		out += " "
	}
	return out
}
