package synth

import (
	"context"
)

// SizeEstimator is the authoritative token-counting oracle. Calls are
// remote: they cost money and may transiently fail. Implementations must
// classify failures so callers can tell transient ones (worth retrying)
// from permanent ones; see IsTransient.
type SizeEstimator interface {
	// CountTokens returns the model's token count for text.
	CountTokens(ctx context.Context, model, text string) (int, error)
}

// Synthesizer converts one chunk's text into raw decoded PCM samples.
// Implementations classify failures (safety block, length exceeded, generic
// refusal, no data) but do not retry; retry policy belongs to the caller.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, AudioParams, error)
}

// Encoder assembles a playable self-describing audio artifact from raw
// samples. Encoding never fails; a zero-length or header-only result is
// the degraded outcome callers must check for.
type Encoder interface {
	Encode(raw []byte, params AudioParams) []byte
}

// Planner turns raw book text into the final ordered chunk sequence.
type Planner interface {
	Plan(ctx context.Context, text, title string) ([]Chunk, error)
}

// ArtifactStore persists encoded audio artifacts. Write returns the
// absolute path of the stored artifact.
type ArtifactStore interface {
	Write(name string, data []byte) (string, error)
}

// TokenCache memoizes oracle results so regenerating the same book does
// not re-bill the token-counting service. A nil cache disables caching.
type TokenCache interface {
	Get(model, style, text string) (int, bool)
	Put(model, style, text string, count int)
}
