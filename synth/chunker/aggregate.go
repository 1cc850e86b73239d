// Package chunker turns paragraphs into token-budget-verified chunks: a
// cheap character-count aggregation pass first, then authoritative
// validation against the remote token oracle with bounded recursive repair.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Aggregate greedily packs paragraphs, in order, into candidate chunks of
// roughly charTarget characters. Paragraphs inside a candidate are joined
// by a blank line. A single paragraph bigger than charTarget becomes its
// own candidate rather than being merged or truncated; the validator deals
// with it.
func Aggregate(paragraphs []string, charTarget int) []string {
	var candidates []string
	var buf strings.Builder
	bufChars := 0

	flush := func() {
		if bufChars > 0 {
			candidates = append(candidates, buf.String())
			buf.Reset()
			bufChars = 0
		}
	}

	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)

		if bufChars == 0 {
			if n > charTarget {
				candidates = append(candidates, p)
				continue
			}
			buf.WriteString(p)
			bufChars = n
			continue
		}

		if bufChars+2+n > charTarget {
			flush()
			if n > charTarget {
				candidates = append(candidates, p)
				continue
			}
			buf.WriteString(p)
			bufChars = n
			continue
		}

		buf.WriteString("\n\n")
		buf.WriteString(p)
		bufChars += 2 + n
	}
	flush()

	return candidates
}
