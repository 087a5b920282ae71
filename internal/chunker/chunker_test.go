package chunker

import (
	"strings"
	"testing"
)

// TestSplitShortTextSingleChunk checks text below the limit stays whole.
func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("A short paragraph.", 2500)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0] != "A short paragraph." {
		t.Fatalf("chunk = %q", chunks[0])
	}
}

// TestSplitRoundTrip verifies concatenated chunks reproduce the input for a
// range of chunk sizes.
func TestSplitRoundTrip(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("One sentence here. Another follows it! A third one? ")
		if i%10 == 9 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	for _, size := range []int{80, 250, 999, 2500, len(text) + 1} {
		chunks := Split(text, size)
		if got := strings.Join(chunks, ""); got != text {
			t.Fatalf("size %d: concatenation does not round-trip (len %d vs %d)", size, len(got), len(text))
		}
		for i, chunk := range chunks {
			if len(chunk) > size {
				t.Fatalf("size %d: chunk %d has length %d", size, i, len(chunk))
			}
		}
	}
}

// TestSplitDiscardsWhitespaceOnlyChunks checks trimming of empty spans.
func TestSplitDiscardsWhitespaceOnlyChunks(t *testing.T) {
	text := "Some text." + strings.Repeat(" ", 40)
	chunks := Split(text, 12)
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is whitespace-only", i)
		}
	}
}

// TestSplitPrefersParagraphBreakOverSentenceEnd checks boundary priority.
func TestSplitPrefersParagraphBreakOverSentenceEnd(t *testing.T) {
	para := strings.Repeat("Words go here. ", 10)
	text := para + "\n\n" + para + para

	size := len(para) + 60
	chunks := Split(text, size)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Fatalf("first chunk does not end at paragraph break: %q", chunks[0][len(chunks[0])-20:])
	}
}

// TestSplitSentenceEndBoundary checks the sentence-end fallback with a
// closing quote variant.
func TestSplitSentenceEndBoundary(t *testing.T) {
	text := strings.Repeat("word ", 30) + `He said "stop!" ` + strings.Repeat("word ", 30)
	chunks := Split(text, len(text)-40)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], `"stop!" `) {
		t.Fatalf("first chunk tail = %q", chunks[0][len(chunks[0])-20:])
	}
}

// TestSplitHeadingMarkerNeverSwallowed verifies a chapter heading inside the
// lookback window starts the following chunk.
func TestSplitHeadingMarkerNeverSwallowed(t *testing.T) {
	body := strings.ReplaceAll(strings.Repeat("prose prose prose ", 40), ". ", " ")
	text := body + "Chapter 12 " + body

	for _, size := range []int{len(body) + 50, len(body) + 200} {
		chunks := Split(text, size)
		if len(chunks) < 2 {
			t.Fatalf("size %d: chunks = %d, want at least 2", size, len(chunks))
		}

		marker := strings.Index(text, "Chapter 12")
		cut := len(chunks[0])
		if cut > marker {
			t.Fatalf("size %d: boundary %d lands after heading marker %d", size, cut, marker)
		}
	}
}

// TestSplitHeadingMarkerOtherLanguages checks case-insensitive matching of
// non-English heading markers.
func TestSplitHeadingMarkerOtherLanguages(t *testing.T) {
	for _, marker := range []string{"ГЛАВА 3", "Capítulo 7", "chapitre 2"} {
		filler := strings.ReplaceAll(strings.Repeat("palabra palabra ", 40), ".", "")
		text := filler + marker + " " + filler

		chunks := Split(text, len(filler)+100)
		if len(chunks) < 2 {
			t.Fatalf("%s: chunks = %d, want at least 2", marker, len(chunks))
		}
		if !strings.HasPrefix(chunks[1], marker) {
			t.Fatalf("%s: second chunk starts with %q", marker, chunks[1][:20])
		}
	}
}

// TestSplitHardCutWithoutBoundaries checks the exact-target fallback.
func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := Split(text, 300)
	if len(chunks) != 4 {
		t.Fatalf("chunks = %d, want 4", len(chunks))
	}
	for i := 0; i < 3; i++ {
		if len(chunks[i]) != 300 {
			t.Fatalf("chunk %d length = %d, want 300", i, len(chunks[i]))
		}
	}
}

// TestSplitZeroSizeReturnsNothing guards against an invalid size looping.
func TestSplitZeroSizeReturnsNothing(t *testing.T) {
	if chunks := Split("text", 0); chunks != nil {
		t.Fatalf("chunks = %v, want nil", chunks)
	}
}
