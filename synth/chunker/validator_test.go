package chunker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/bookvoice/synth"
	"github.com/dgnsrekt/bookvoice/synth/chunker"
	"github.com/dgnsrekt/bookvoice/synth/engine/mock"
)

func testLimits() synth.Limits {
	return synth.Limits{
		IdealTokensPerChunk: 100,
		SizeMultiplier:      1.1, // bound 110
		CharsPerToken:       3,   // char target 300
		SplitDivisor:        4,   // fine target 75
		MaxTTSTokens:        500,
		CountRetries:        2,
		CountRetryDelay:     time.Millisecond,
	}
}

func TestPlanSingleSmallChunk(t *testing.T) {
	engine := mock.New()
	v := chunker.New(engine, testLimits(), chunker.Options{Model: "test-model"})

	text := "A short book.\n\nIt has two paragraphs."
	chunks, err := v.Plan(context.Background(), text, "My Book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Plan() = %d chunks, want 1", len(chunks))
	}
	ch := chunks[0]
	if ch.Index != 0 {
		t.Errorf("Index = %d, want 0", ch.Index)
	}
	if ch.Status != synth.StatusPending {
		t.Errorf("Status = %q, want %q", ch.Status, synth.StatusPending)
	}
	if ch.FileName != "My_Book_Part_000.wav" {
		t.Errorf("FileName = %q, want My_Book_Part_000.wav", ch.FileName)
	}
	if ch.TokenCount == 0 {
		t.Error("TokenCount not recorded")
	}
}

func TestPlanEmptyContent(t *testing.T) {
	v := chunker.New(mock.New(), testLimits(), chunker.Options{})
	if _, err := v.Plan(context.Background(), "   \n\n  ", "t"); !errors.Is(err, synth.ErrEmptyContent) {
		t.Errorf("Plan() error = %v, want ErrEmptyContent", err)
	}
}

func TestPlanTransientFailureThenSuccess(t *testing.T) {
	engine := mock.New()
	// Two transient failures, then the implicit heuristic success.
	engine.FailCounts(synth.ErrServiceUnavailable, synth.ErrServiceUnavailable)
	v := chunker.New(engine, testLimits(), chunker.Options{})

	chunks, err := v.Plan(context.Background(), "Some ordinary paragraph.", "book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Status != synth.StatusPending {
		t.Fatalf("expected one pending chunk, got %+v", chunks)
	}
	// First attempt plus exactly two retries.
	if calls := engine.CountCalls(); calls != 3 {
		t.Errorf("CountCalls() = %d, want 3", calls)
	}
}

func TestPlanRetriesExhaustedDegradesToErrorChunk(t *testing.T) {
	engine := mock.New()
	engine.FailCounts(
		synth.ErrServiceUnavailable, synth.ErrServiceUnavailable, synth.ErrServiceUnavailable,
	)
	v := chunker.New(engine, testLimits(), chunker.Options{})

	p1 := strings.TrimSpace(strings.Repeat("first paragraph word ", 10))
	p2 := strings.TrimSpace(strings.Repeat("second paragraph word ", 10))
	text := p1 + "\n\n" + p2
	chunks, err := v.Plan(context.Background(), text, "book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	// One candidate degrades, the pipeline continues with the rest.
	if len(chunks) != 2 {
		t.Fatalf("Plan() = %d chunks, want 2", len(chunks))
	}
	first := chunks[0]
	if first.Status != synth.StatusError {
		t.Errorf("first chunk status = %q, want error", first.Status)
	}
	if first.ErrorDetails == "" {
		t.Error("error chunk carries no details")
	}
	if !strings.Contains(first.FileName, synth.SuffixTokenErr) {
		t.Errorf("FileName = %q, want %s suffix", first.FileName, synth.SuffixTokenErr)
	}
	if second := chunks[1]; second.Status != synth.StatusPending {
		t.Errorf("second chunk status = %q, want pending", second.Status)
	}
}

func TestPlanPermanentFailureNotRetried(t *testing.T) {
	engine := mock.New()
	engine.FailCounts(errors.New("invalid request"))
	v := chunker.New(engine, testLimits(), chunker.Options{})

	chunks, err := v.Plan(context.Background(), "One paragraph.", "book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Status != synth.StatusError {
		t.Fatalf("expected one error chunk, got %+v", chunks)
	}
	if calls := engine.CountCalls(); calls != 1 {
		t.Errorf("CountCalls() = %d, want 1 (no retry of permanent failure)", calls)
	}
}

func TestPlanOversizedCandidateRepaired(t *testing.T) {
	engine := mock.New()
	// ~1200 chars in one paragraph: one candidate, heuristic count ~400
	// tokens, over the ideal bound of 110 but under the hard ceiling.
	para := strings.TrimSpace(strings.Repeat("sentence words go here and onward. ", 35))
	v := chunker.New(engine, testLimits(), chunker.Options{})

	chunks, err := v.Plan(context.Background(), para, "book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected oversized candidate to split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has Index %d; indices must be contiguous", i, ch.Index)
		}
		if ch.Status != synth.StatusPending {
			t.Errorf("chunk %d status = %q, want pending", i, ch.Status)
		}
		if ch.Oversized {
			t.Errorf("chunk %d flagged oversized below the hard ceiling", i)
		}
	}
}

func TestPlanOversizedAfterRepairFlagged(t *testing.T) {
	// A candidate whose fragments each still count above the hard ceiling
	// must be accepted but flagged, never dropped.
	engine := mock.New()
	huge := strings.Repeat("y", 900) // single paragraph, no split points
	engine.SetTokenCount(huge, 1000)
	// Fine split of 900 chars at target 75 yields 12 equal window
	// fragments; script them over the ceiling.
	engine.SetTokenCount(strings.Repeat("y", 75), 600)
	v := chunker.New(engine, testLimits(), chunker.Options{})

	chunks, err := v.Plan(context.Background(), huge, "book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(chunks) != 12 {
		t.Fatalf("Plan() = %d chunks, want 12", len(chunks))
	}
	for i, ch := range chunks {
		if !ch.Oversized {
			t.Errorf("chunk %d not flagged oversized", i)
		}
		if ch.Status != synth.StatusPending {
			t.Errorf("chunk %d status = %q, want pending", i, ch.Status)
		}
		if !strings.Contains(ch.FileName, synth.SuffixOversized) {
			t.Errorf("chunk %d FileName = %q, want %s suffix", i, ch.FileName, synth.SuffixOversized)
		}
	}
}

func TestPlanCoverage(t *testing.T) {
	engine := mock.New()
	v := chunker.New(engine, testLimits(), chunker.Options{})

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("Paragraph body with a good number of words in it, enough to matter. ")
		sb.WriteString("More prose follows in the same paragraph before it ends.\n\n")
	}
	text := sb.String()

	chunks, err := v.Plan(context.Background(), text, "Coverage Book")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	var parts []string
	for _, ch := range chunks {
		parts = append(parts, ch.Text)
	}
	got := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	want := strings.Join(strings.Fields(text), " ")
	if got != want {
		t.Error("concatenated chunk text does not reproduce the input")
	}

	bound := testLimits().IdealTokenUpperBound()
	for i, ch := range chunks {
		if ch.Status == synth.StatusPending && !ch.Oversized && ch.TokenCount > bound {
			t.Errorf("chunk %d: %d tokens exceeds ideal bound %d", i, ch.TokenCount, bound)
		}
	}
}

func TestPlanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := chunker.New(mock.New(), testLimits(), chunker.Options{})
	_, err := v.Plan(ctx, "Some text.", "book")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Plan() error = %v, want context.Canceled", err)
	}
}

func TestPlanUsesCache(t *testing.T) {
	engine := mock.New()
	c := &memCache{counts: map[string]int{}}
	v := chunker.New(engine, testLimits(), chunker.Options{Model: "m", Cache: c})

	text := "A cached paragraph of text."
	if _, err := v.Plan(context.Background(), text, "book"); err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	firstCalls := engine.CountCalls()
	if firstCalls == 0 {
		t.Fatal("oracle never called on cold cache")
	}

	if _, err := v.Plan(context.Background(), text, "book"); err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if engine.CountCalls() != firstCalls {
		t.Errorf("oracle called %d times after warm cache, want %d", engine.CountCalls(), firstCalls)
	}
}

type memCache struct {
	counts map[string]int
}

func (m *memCache) Get(model, style, text string) (int, bool) {
	n, ok := m.counts[model+"\x00"+style+"\x00"+text]
	return n, ok
}

func (m *memCache) Put(model, style, text string, count int) {
	m.counts[model+"\x00"+style+"\x00"+text] = count
}
