// Package chunker splits chapter text into bounded chunks at natural
// boundaries so that each chunk can be translated as one unit.
package chunker

import (
	"regexp"
	"strings"
)

// LookbackWindow is how far back from the size target a natural boundary is
// searched for.
const LookbackWindow = 500

var (
	// blankRunPattern matches a long run of blank lines, which acts as a
	// strong structural break between sections.
	blankRunPattern = regexp.MustCompile(`(?:\r?\n[ \t]*){3,}`)

	// headingPattern matches section-heading markers (word + number) in the
	// source languages the app is used with.
	headingPattern = regexp.MustCompile(`(?i)(?:chapter|chapitre|kapitel|capitolo|cap[ií]tulo|rozdzia[łl]|hoofdstuk|глава|часть|部|第)\s*\d+`)

	// paragraphPattern matches a single paragraph break.
	paragraphPattern = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

	// sentenceEndPattern matches sentence-terminal punctuation, optionally
	// followed by a closing quote, followed by a space.
	sentenceEndPattern = regexp.MustCompile(`[.!?]["'”’»«]? `)
)

// Split divides text into ordered chunks no longer than maxChunkSize,
// preferring natural boundaries found in a lookback window before each size
// target. Whitespace-only chunks are discarded; concatenating the remaining
// chunks reproduces the input minus those discarded spans.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		return nil
	}

	var chunks []string
	for cursor := 0; cursor < len(text); {
		end := cursor + maxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = findBoundary(text, cursor, end)
		}

		chunk := text[cursor:end]
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		cursor = end
	}

	return chunks
}

// findBoundary picks the best cut position at or before target, trying each
// boundary class in priority order within the lookback window.
func findBoundary(text string, cursor, target int) int {
	windowStart := target - LookbackWindow
	if windowStart < cursor {
		windowStart = cursor
	}
	window := text[windowStart:target]

	// Strong structural break: cut after the run so the next chunk starts
	// at content.
	if cut, ok := lastMatchEnd(blankRunPattern, window); ok && windowStart+cut > cursor {
		return windowStart + cut
	}

	// Section heading: cut before the marker so the heading opens the next
	// chunk.
	if cut, ok := lastMatchStart(headingPattern, window); ok && windowStart+cut > cursor {
		return windowStart + cut
	}

	// Paragraph break.
	if cut, ok := lastMatchEnd(paragraphPattern, window); ok && windowStart+cut > cursor {
		return windowStart + cut
	}

	// Sentence end: the last occurring variant wins.
	if cut, ok := lastMatchEnd(sentenceEndPattern, window); ok && windowStart+cut > cursor {
		return windowStart + cut
	}

	// Word boundary.
	if idx := strings.LastIndexByte(window, ' '); idx >= 0 && windowStart+idx+1 > cursor {
		return windowStart + idx + 1
	}

	// No boundary found: cut exactly at the target.
	return target
}

// lastMatchStart returns the start offset of the last pattern match in s.
func lastMatchStart(re *regexp.Regexp, s string) (int, bool) {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return 0, false
	}
	return locs[len(locs)-1][0], true
}

// lastMatchEnd returns the end offset of the last pattern match in s.
func lastMatchEnd(re *regexp.Regexp, s string) (int, bool) {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return 0, false
	}
	return locs[len(locs)-1][1], true
}
