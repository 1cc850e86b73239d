// Package synth provides the book-to-audiobook synthesis pipeline: text
// chunking against a remote token budget, per-chunk speech synthesis, and
// WAV artifact assembly.
package synth

import (
	"time"
)

// ChunkStatus describes where a chunk is in its lifecycle.
type ChunkStatus string

const (
	// StatusPending means the chunk is validated and waiting for synthesis.
	StatusPending ChunkStatus = "pending"
	// StatusGenerating means synthesis is in flight for this chunk.
	StatusGenerating ChunkStatus = "generating"
	// StatusSuccess means audio was generated and stored.
	StatusSuccess ChunkStatus = "success"
	// StatusError means token counting or synthesis failed terminally.
	StatusError ChunkStatus = "error"
)

// Chunk is one unit of text destined for an independent synthesis request.
// Chunks are created by the validator in pending (or error) status; the
// controller moves them through generating to success or error. Text is
// immutable once the chunk is created.
type Chunk struct {
	Index        int         // position in the final ordered sequence
	Text         string      // non-empty chunk text
	ChapterTitle string      // optional provenance label
	FileName     string      // derived artifact name, suffix encodes flags
	Status       ChunkStatus
	TokenCount   int    // authoritative count; 0 when counting failed
	Oversized    bool   // still over the hard ceiling after repair
	ErrorDetails string // populated only when Status is StatusError
	AudioBytes   int    // stored artifact size, set on success
}

// AudioParams describes raw PCM audio returned by a synthesizer.
type AudioParams struct {
	SampleRate int // samples per second, > 0
	BitDepth   int // bits per sample: 8, 16, 24 or 32
	Channels   int // >= 1
}

// DefaultAudioParams matches the PCM format the remote TTS model emits.
func DefaultAudioParams() AudioParams {
	return AudioParams{SampleRate: 24000, BitDepth: 16, Channels: 1}
}

// FrameSize returns the byte size of one frame (all channels, one instant).
func (p AudioParams) FrameSize() int {
	return p.Channels * p.BitDepth / 8
}

// Validate checks the parameter invariants.
func (p AudioParams) Validate() error {
	if p.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if p.Channels < 1 {
		return ErrInvalidChannels
	}
	switch p.BitDepth {
	case 8, 16, 24, 32:
		return nil
	}
	return ErrInvalidBitDepth
}

// SynthesisRequest carries one chunk's text plus voice and style parameters
// to a Synthesizer.
type SynthesisRequest struct {
	Text         string
	Voice        string  // voice identifier, e.g. "Kore"
	StylePrompt  string  // optional reading-style instruction
	LanguageCode string  // BCP-47, e.g. "en-US"
	Temperature  float64
}

// Run summarizes one pipeline execution over a whole book.
type Run struct {
	ID       string // unique run identifier
	Title    string
	Chunks   []Chunk
	Succeeded int
	Failed    int
	Skipped   int // oversized chunks not submitted
	Started   time.Time
	Finished  time.Time
}
