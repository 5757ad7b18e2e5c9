// Package chunker splits short marketing copy into sentences and clauses and
// shortens it on word boundaries. Every splitter returns segments that
// concatenate back to the exact input, so callers can drop segments and
// rebuild the rest without disturbing spacing they did not touch.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultHintWords is the default number of words Lead keeps.
const DefaultHintWords = 60

var (
	// sentenceEnd matches terminal punctuation plus the whitespace after it.
	sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

	// clauseEnd additionally treats commas, semicolons, colons and spaced
	// dashes or pipes as boundaries, which is how titles and bullets are
	// usually punctuated.
	clauseEnd = regexp.MustCompile(`[.!?;:,]+(?:\s+|$)|\s+[-|–—]\s+`)
)

// Sentences splits text after sentence-ending punctuation.
func Sentences(text string) []string {
	return split(text, sentenceEnd)
}

// Clauses splits text at sentence and clause punctuation.
func Clauses(text string) []string {
	return split(text, clauseEnd)
}

func split(text string, boundary *regexp.Regexp) []string {
	if text == "" {
		return nil
	}

	var segments []string
	start := 0
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		if loc[1] <= start {
			continue
		}
		segments = append(segments, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		segments = append(segments, text[start:])
	}
	return segments
}

// Join concatenates segments and tidies the seams: whitespace is collapsed
// and dangling clause punctuation at either end is removed.
func Join(segments []string) string {
	joined := strings.Join(strings.Fields(strings.Join(segments, "")), " ")
	return TrimDangling(joined)
}

// TrimDangling removes separators left hanging at the start or end of text
// after a cut, e.g. "Black, wireless," becomes "Black, wireless".
func TrimDangling(text string) string {
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",;:-|–—", r)
	})
}

// Words counts whitespace-separated words.
func Words(text string) int {
	return len(strings.Fields(text))
}

// Truncate shortens text to at most maxChars runes, cutting at the last
// whitespace boundary so no word is split. ok is false when no such boundary
// exists; the text is then returned unchanged.
func Truncate(text string, maxChars int) (string, bool) {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text, true
	}

	// A space right after the limit still allows keeping every rune before it.
	for i := maxChars; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut := TrimDangling(string(runes[:i]))
			if cut == "" {
				break
			}
			return cut, true
		}
	}
	return text, false
}

// Lead returns the first wordCount words of text, joined by a single space.
// It is used to keep generation hints short. If wordCount ≤ 0,
// DefaultHintWords is used.
func Lead(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultHintWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:wordCount], " ")
}
