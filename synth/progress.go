package synth

import "fmt"

// EventKind tags a progress event variant.
type EventKind string

const (
	EventPreprocessing    EventKind = "preprocessing"
	EventCharSplitInitial EventKind = "charsplit_initial"
	EventCharSplitFine    EventKind = "charsplit_fine"
	EventAggregation      EventKind = "aggregation_heuristic"
	EventValidation       EventKind = "validation"
	EventError            EventKind = "error"
	EventDone             EventKind = "done"
)

// Event is one step of pipeline progress. The concrete type carries only
// the fields relevant to its kind.
type Event interface {
	Kind() EventKind
	Message() string
}

// ProgressFunc receives pipeline progress events in order. Implementations
// must not block; they are called from the pipeline goroutine.
type ProgressFunc func(Event)

// Emit calls fn with ev if fn is non-nil.
func (fn ProgressFunc) Emit(ev Event) {
	if fn != nil {
		fn(ev)
	}
}

// PreprocessingEvent reports paragraph extraction from raw text.
type PreprocessingEvent struct {
	Paragraphs int
}

func (PreprocessingEvent) Kind() EventKind { return EventPreprocessing }
func (e PreprocessingEvent) Message() string {
	return fmt.Sprintf("split text into %d paragraphs", e.Paragraphs)
}

// CharSplitEvent reports a character-heuristic split pass. Fine is true for
// the recursive re-split of an oversized candidate.
type CharSplitEvent struct {
	Fine      bool
	Fragments int
}

func (e CharSplitEvent) Kind() EventKind {
	if e.Fine {
		return EventCharSplitFine
	}
	return EventCharSplitInitial
}

func (e CharSplitEvent) Message() string {
	if e.Fine {
		return fmt.Sprintf("re-split oversized candidate into %d fragments", e.Fragments)
	}
	return fmt.Sprintf("split text into %d fragments", e.Fragments)
}

// AggregationEvent reports the character-count candidate grouping.
type AggregationEvent struct {
	Candidates int
}

func (AggregationEvent) Kind() EventKind { return EventAggregation }
func (e AggregationEvent) Message() string {
	return fmt.Sprintf("aggregated paragraphs into %d candidate chunks", e.Candidates)
}

// ValidationEvent reports oracle-checked validation progress.
type ValidationEvent struct {
	Processed  int // candidates validated so far
	Total      int // total candidates
	ChunkCount int // final chunks emitted so far
}

func (ValidationEvent) Kind() EventKind { return EventValidation }
func (e ValidationEvent) Message() string {
	return fmt.Sprintf("validated %d/%d candidates (%d chunks)", e.Processed, e.Total, e.ChunkCount)
}

// ErrorEvent reports a failure attached to a specific chunk or stage. The
// pipeline continues past per-chunk errors; Fatal marks the ones it cannot.
type ErrorEvent struct {
	Err    error
	Detail string
	Fatal  bool
}

func (ErrorEvent) Kind() EventKind { return EventError }
func (e ErrorEvent) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// DoneEvent reports pipeline completion. Partial success is a normal end
// state, so the counts matter more than the fact of completion.
type DoneEvent struct {
	Chunks    int
	Succeeded int
	Failed    int
	Skipped   int
}

func (DoneEvent) Kind() EventKind { return EventDone }
func (e DoneEvent) Message() string {
	return fmt.Sprintf("done: %d chunks, %d succeeded, %d failed, %d skipped",
		e.Chunks, e.Succeeded, e.Failed, e.Skipped)
}
