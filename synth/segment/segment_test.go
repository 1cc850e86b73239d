package segment

import (
	"strings"
	"testing"
)

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple paragraphs",
			input:    "First paragraph.\n\nSecond paragraph.",
			expected: []string{"First paragraph.", "Second paragraph."},
		},
		{
			name:     "extra blank lines",
			input:    "One.\n\n\n\nTwo.\n\n\nThree.",
			expected: []string{"One.", "Two.", "Three."},
		},
		{
			name:     "blank line with spaces",
			input:    "One.\n  \nTwo.",
			expected: []string{"One.", "Two."},
		},
		{
			name:     "single paragraph",
			input:    "Just one paragraph\nwith a soft line break.",
			expected: []string{"Just one paragraph\nwith a soft line break."},
		},
		{
			name:     "whitespace only",
			input:    "  \n\n  \n",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paragraphs(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Paragraphs() = %d paragraphs, want %d: %q", len(got), len(tt.expected), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("paragraph %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSplitSmallInputUnsplit(t *testing.T) {
	// Within 1.5x tolerance at depth > 0, text passes through untouched.
	text := strings.Repeat("a", 140)
	got := Split(text, 100, 1)
	if len(got) != 1 || got[0] != text {
		t.Errorf("expected single unsplit fragment, got %d fragments", len(got))
	}
}

func TestSplitDepthLimit(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	got := Split(text, 10, MaxDepth+1)
	if len(got) != 1 {
		t.Errorf("expected unsplit fragment past depth limit, got %d fragments", len(got))
	}
}

func TestSplitParagraphBoundariesPreferred(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	got := Split(text, 10, 0)
	// Each paragraph fits 1.5x of nothing, but at depth 1 each paragraph is
	// over tolerance and has sentence-free content, so windows apply; the
	// key property is that no fragment spans a paragraph boundary.
	for _, frag := range got {
		if strings.Contains(frag, "\n\n") {
			t.Errorf("fragment spans paragraph boundary: %q", frag)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "latin sentences",
			input:    "This is the first sentence of the chapter. Here comes the second one! Does a third follow? Yes.",
			expected: 4,
		},
		{
			name:     "cyrillic sentences",
			input:    "Это первое предложение главы. Вот и второе! Будет ли третье? Да.",
			expected: 4,
		},
		{
			name:     "digit starts sentence",
			input:    "The year mattered. 1984 was long past.",
			expected: 2,
		},
		{
			name:     "quote starts sentence",
			input:    "He stopped. \"Hello there,\" she said.",
			expected: 2,
		},
		{
			name:     "lowercase after period is not a boundary",
			input:    "He paused at the e.g. marker and went on.",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.input)
			if len(got) != tt.expected {
				t.Errorf("splitSentences() = %d sentences %q, want %d", len(got), got, tt.expected)
			}
		})
	}
}

func TestSplitNoWhitespacePathological(t *testing.T) {
	// 20000 characters, no punctuation, no spaces: the window split must
	// produce exactly ceil(20000/500) = 40 fragments, none above target.
	text := strings.Repeat("x", 20000)
	got := Split(text, 500, 0)

	if len(got) != 40 {
		t.Fatalf("Split() = %d fragments, want 40", len(got))
	}
	total := 0
	for i, frag := range got {
		if len(frag) > 500 {
			t.Errorf("fragment %d is %d chars, want <= 500", i, len(frag))
		}
		total += len(frag)
	}
	if total != 20000 {
		t.Errorf("fragments cover %d chars, want 20000", total)
	}
}

func TestSplitTargetOne(t *testing.T) {
	// A target of one character is the degenerate window: the walk-back
	// always lands on the window start, so the cursor must still advance.
	got := Split(strings.Repeat("x", 5), 1, 0)
	if len(got) != 5 {
		t.Fatalf("Split() = %d fragments %q, want 5", len(got), got)
	}
	for i, frag := range got {
		if frag != "x" {
			t.Errorf("fragment %d = %q, want %q", i, frag, "x")
		}
	}

	got = Split("ab cd", 1, 0)
	if want := 4; len(got) != want {
		t.Errorf("Split(ab cd) = %d fragments %q, want %d", len(got), got, want)
	}
}

func TestSplitAvoidsMidWordCuts(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 100)
	got := Split(strings.TrimSpace(text), 50, 0)

	words := map[string]bool{"alpha": true, "beta": true, "gamma": true, "delta": true}
	for _, frag := range got {
		for _, w := range strings.Fields(frag) {
			if !words[w] {
				t.Fatalf("fragment contains split word %q in %q", w, frag)
			}
		}
	}
}

func TestSplitCoverage(t *testing.T) {
	inputs := []string{
		"A single tiny text.",
		"Chapter one begins here. It has several sentences of very different lengths, some short. Some are quite a bit longer and meander from clause to clause before finally arriving at a full stop.\n\nChapter two follows after a paragraph break. It also has text.",
		strings.Repeat("nowhitespaceatall", 200),
		"Один абзац на русском языке. Второе предложение тоже тут.\n\nВторой абзац идёт следом.",
	}

	for _, input := range inputs {
		got := Split(input, 60, 0)
		if len(got) == 0 {
			t.Fatal("Split returned no fragments")
		}
		gotNorm := stripWhitespace(strings.Join(got, " "))
		wantNorm := stripWhitespace(input)
		if gotNorm != wantNorm {
			t.Errorf("coverage broken:\n got %q\nwant %q", gotNorm, wantNorm)
		}
	}
}

// stripWhitespace normalizes text for coverage comparison: only separator
// whitespace may differ between input and reassembled fragments.
func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
