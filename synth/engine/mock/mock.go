// Package mock provides scripted estimator and synthesizer implementations
// for testing the pipeline without a remote service.
package mock

import (
	"context"
	"math"
	"sync"

	"github.com/dgnsrekt/bookvoice/synth"
)

// Engine implements synth.SizeEstimator and synth.Synthesizer with
// scriptable behavior: fixed counts per text, queued failure sequences and
// call counters. Safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	// Token counting
	counts        map[string]int // exact count by text; heuristic fallback otherwise
	charsPerToken int
	countErrs     []error // consumed one per CountTokens call, nil means success
	countCalls    int

	// Synthesis
	synthErrs    []error
	synthCalls   int
	params       synth.AudioParams
	audioSeconds float64
}

// New creates a mock engine producing one second of 440 Hz tone per call
// and estimating three characters per token.
func New() *Engine {
	return &Engine{
		counts:        make(map[string]int),
		charsPerToken: 3,
		params:        synth.DefaultAudioParams(),
		audioSeconds:  1.0,
	}
}

// SetTokenCount scripts an exact count for a text.
func (e *Engine) SetTokenCount(text string, count int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts[text] = count
}

// FailCounts queues errors to be returned by upcoming CountTokens calls.
// A nil entry means that call succeeds.
func (e *Engine) FailCounts(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countErrs = append(e.countErrs, errs...)
}

// FailSynthesis queues errors to be returned by upcoming Synthesize calls.
func (e *Engine) FailSynthesis(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synthErrs = append(e.synthErrs, errs...)
}

// SetAudio configures the generated audio format and length.
func (e *Engine) SetAudio(params synth.AudioParams, seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
	e.audioSeconds = seconds
}

// CountCalls returns how many CountTokens calls were made.
func (e *Engine) CountCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countCalls
}

// SynthCalls returns how many Synthesize calls were made.
func (e *Engine) SynthCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synthCalls
}

// CountTokens implements synth.SizeEstimator.
func (e *Engine) CountTokens(_ context.Context, _, text string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countCalls++

	if len(e.countErrs) > 0 {
		err := e.countErrs[0]
		e.countErrs = e.countErrs[1:]
		if err != nil {
			return 0, err
		}
	}

	if n, ok := e.counts[text]; ok {
		return n, nil
	}
	n := len([]rune(text)) / e.charsPerToken
	if n == 0 {
		n = 1
	}
	return n, nil
}

// Synthesize implements synth.Synthesizer.
func (e *Engine) Synthesize(_ context.Context, _ synth.SynthesisRequest) ([]byte, synth.AudioParams, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synthCalls++

	if len(e.synthErrs) > 0 {
		err := e.synthErrs[0]
		e.synthErrs = e.synthErrs[1:]
		if err != nil {
			return nil, synth.AudioParams{}, err
		}
	}

	return tone(e.params, e.audioSeconds), e.params, nil
}

// tone generates a 440 Hz sine so mock output is audibly non-silent.
// Only 16-bit output is synthesized; other depths get zero samples.
func tone(p synth.AudioParams, seconds float64) []byte {
	frames := int(seconds * float64(p.SampleRate))
	data := make([]byte, frames*p.FrameSize())
	if p.BitDepth != 16 {
		return data
	}
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(p.SampleRate)))
		for ch := 0; ch < p.Channels; ch++ {
			off := (i*p.Channels + ch) * 2
			data[off] = byte(v)
			data[off+1] = byte(v >> 8)
		}
	}
	return data
}
