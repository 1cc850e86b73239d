package synth

import (
	"fmt"
	"strings"
	"unicode"
)

// Filename suffixes encoding terminal chunk conditions.
const (
	SuffixOversized   = "_OVERSIZED"
	SuffixTokenErr    = "_TOKEN_ERR"
	SuffixSubTokenErr = "_SUB_TOKEN_ERR"
)

const maxTitleLen = 60

// SanitizeTitle turns a book title into a safe filename base. Letters
// (Latin and Cyrillic alike), digits, spaces, underscores and hyphens are
// kept; everything else becomes an underscore, and runs of separators
// collapse to a single one.
func SanitizeTitle(title string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteRune('_')
				lastSep = true
			}
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "book"
	}
	runes := []rune(s)
	if len(runes) > maxTitleLen {
		s = strings.Trim(string(runes[:maxTitleLen]), "_")
	}
	return s
}

// ChunkFileName builds the artifact name for a chunk:
// {base}_Part_{index:03d}{suffix}.wav
func ChunkFileName(base string, index int, suffix string) string {
	return fmt.Sprintf("%s_Part_%03d%s.wav", base, index, suffix)
}
