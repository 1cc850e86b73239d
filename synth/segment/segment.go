// Package segment deterministically reduces oversized text units into
// smaller ones, preferring paragraph boundaries, then sentence boundaries,
// then whitespace-bounded character windows.
package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxDepth bounds the recursion; pathological input (a single huge
// paragraph with no whitespace) returns unsplit once it is reached and is
// handled by the window split at the caller's level.
const MaxDepth = 15

// sizeTolerance lets a unit up to 1.5x the target through unsplit, so
// recursion does not fragment text that already fits comfortably.
const sizeTolerance = 1.5

var paragraphBreakRegex = regexp.MustCompile(`\n[ \t]*\n+`)

// Paragraphs splits text on blank lines into trimmed non-empty paragraphs.
func Paragraphs(text string) []string {
	parts := paragraphBreakRegex.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Split reduces text into fragments around targetChars characters long.
// The target is a soft size goal, not a hard cap: fragments ending on a
// semantic boundary may run up to 1.5x over. The result is never empty for
// non-empty input and concatenating it (modulo separator whitespace)
// reproduces the input. depth should be 0 at the top-level call.
func Split(text string, targetChars, depth int) []string {
	if depth > MaxDepth {
		return []string{text}
	}

	runes := []rune(text)
	if depth > 0 && float64(len(runes)) <= sizeTolerance*float64(targetChars) {
		return []string{text}
	}

	if paragraphs := Paragraphs(text); len(paragraphs) > 1 {
		var out []string
		for _, p := range paragraphs {
			out = append(out, Split(p, targetChars, depth+1)...)
		}
		return out
	}

	if sentences := splitSentences(text); len(sentences) > 1 {
		var out []string
		for _, s := range sentences {
			out = append(out, Split(s, targetChars, depth+1)...)
		}
		return out
	}

	return windowSplit(runes, targetChars)
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace and a plausible sentence opener: an uppercase letter (Latin or
// Cyrillic, unicode.IsUpper covers both), a digit, or an opening quote or
// bracket.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	last := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Collect the full punctuation run ("?!", "...").
		end := i + 1
		for end < len(runes) && isSentenceEnd(runes[end]) {
			end++
		}
		// Closing quotes bind to the sentence they close.
		for end < len(runes) && isClosingQuote(runes[end]) {
			end++
		}

		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next == end || next >= len(runes) {
			i = end - 1
			continue // no whitespace after punctuation, or end of text
		}
		if !isSentenceStart(runes[next]) {
			i = end - 1
			continue
		}

		s := strings.TrimSpace(string(runes[last:end]))
		if s != "" {
			out = append(out, s)
		}
		last = next
		i = next - 1
	}

	if rest := strings.TrimSpace(string(runes[last:])); rest != "" {
		out = append(out, rest)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

func isSentenceStart(r rune) bool {
	if unicode.IsUpper(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '"', '\'', '(', '[', '«', '“', '‘', '„':
		return true
	}
	return false
}

// windowSplit is the escape hatch when no semantic boundary exists: greedy
// fixed-size windows, pulled back to the nearest whitespace so words stay
// whole, unless that would leave a fragment under half the target.
func windowSplit(runes []rune, targetChars int) []string {
	if targetChars < 1 {
		targetChars = 1
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + targetChars
		if end >= len(runes) {
			if frag := strings.TrimSpace(string(runes[start:])); frag != "" {
				out = append(out, frag)
			}
			break
		}

		cut := end
		for cut > start && !unicode.IsSpace(runes[cut]) {
			cut--
		}
		if cut == start || cut-start < targetChars/2 {
			cut = end // mid-word split beats a sliver fragment or no progress
		}

		if frag := strings.TrimSpace(string(runes[start:cut])); frag != "" {
			out = append(out, frag)
		}
		for cut < len(runes) && unicode.IsSpace(runes[cut]) {
			cut++
		}
		start = cut
	}

	if len(out) == 0 {
		return []string{string(runes)}
	}
	return out
}
