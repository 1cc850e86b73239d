package chunker

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/bookvoice/synth"
	"github.com/dgnsrekt/bookvoice/synth/segment"
)

// Validator verifies candidate chunks against the authoritative token
// oracle and repairs oversized ones by one level of recursive splitting.
// It implements synth.Planner.
type Validator struct {
	estimator synth.SizeEstimator
	limits    synth.Limits

	model       string
	stylePrompt string
	cache       synth.TokenCache
	progress    synth.ProgressFunc
}

// Options carries the optional collaborators of a Validator.
type Options struct {
	Model       string            // model id passed to the estimator
	StylePrompt string            // prefixed to text before counting, so counts match synthesis
	Cache       synth.TokenCache  // nil disables caching
	Progress    synth.ProgressFunc
}

// New creates a Validator over the given oracle and limits.
func New(estimator synth.SizeEstimator, limits synth.Limits, opts Options) *Validator {
	return &Validator{
		estimator:   estimator,
		limits:      limits,
		model:       opts.Model,
		stylePrompt: opts.StylePrompt,
		cache:       opts.Cache,
		progress:    opts.Progress,
	}
}

// Plan partitions text into the final ordered chunk sequence. A single
// candidate's oracle failure degrades that candidate to an error chunk and
// the rest of the input is still processed; Plan only returns an error when
// the input is empty or the context is canceled.
func (v *Validator) Plan(ctx context.Context, text, title string) ([]synth.Chunk, error) {
	paragraphs := segment.Paragraphs(text)
	if len(paragraphs) == 0 {
		return nil, synth.ErrEmptyContent
	}
	v.progress.Emit(synth.PreprocessingEvent{Paragraphs: len(paragraphs)})

	candidates := Aggregate(paragraphs, v.limits.IdealCharTarget())
	v.progress.Emit(synth.AggregationEvent{Candidates: len(candidates)})

	base := synth.SanitizeTitle(title)
	upper := v.limits.IdealTokenUpperBound()
	chunks := make([]synth.Chunk, 0, len(candidates))

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return chunks, err
		}

		count, err := v.countWithRetry(ctx, cand)
		if err != nil {
			if ctx.Err() != nil {
				return chunks, ctx.Err()
			}
			chunks = append(chunks, v.errorChunk(base, len(chunks), cand, title, synth.SuffixTokenErr, err))
			v.progress.Emit(synth.ValidationEvent{Processed: i + 1, Total: len(candidates), ChunkCount: len(chunks)})
			continue
		}

		if count <= upper {
			chunks = append(chunks, v.acceptChunk(base, len(chunks), cand, title, count, false))
			v.progress.Emit(synth.ValidationEvent{Processed: i + 1, Total: len(candidates), ChunkCount: len(chunks)})
			continue
		}

		// Oversized candidate: one level of fine-grained repair. Each
		// sub-fragment is accepted after counting, flagged oversized if it
		// still exceeds the hard ceiling. No deeper recursion: that caps
		// oracle call volume and guarantees termination.
		frags := segment.Split(cand, v.limits.FineCharTarget(), 0)
		v.progress.Emit(synth.CharSplitEvent{Fine: true, Fragments: len(frags)})
		log.Debug("repairing oversized candidate",
			"candidate", i, "tokens", count, "bound", upper, "fragments", len(frags))

		for _, frag := range frags {
			if err := ctx.Err(); err != nil {
				return chunks, err
			}
			subCount, err := v.countWithRetry(ctx, frag)
			if err != nil {
				if ctx.Err() != nil {
					return chunks, ctx.Err()
				}
				chunks = append(chunks, v.errorChunk(base, len(chunks), frag, title, synth.SuffixSubTokenErr, err))
				continue
			}
			chunks = append(chunks, v.acceptChunk(base, len(chunks), frag, title, subCount, subCount > v.limits.MaxTTSTokens))
		}

		v.progress.Emit(synth.ValidationEvent{Processed: i + 1, Total: len(candidates), ChunkCount: len(chunks)})
	}

	if len(chunks) == 0 {
		return nil, synth.ErrNoChunks
	}
	return chunks, nil
}

// countWithRetry asks the oracle for a token count, retrying transient
// failures with linearly increasing backoff. The cache short-circuits the
// remote call entirely when it holds the answer.
func (v *Validator) countWithRetry(ctx context.Context, text string) (int, error) {
	if v.cache != nil {
		if n, ok := v.cache.Get(v.model, v.stylePrompt, text); ok {
			return n, nil
		}
	}

	counted := text
	if v.stylePrompt != "" {
		counted = v.stylePrompt + "\n\n" + text
	}

	var lastErr error
	attempts := 1 + v.limits.CountRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * v.limits.CountRetryDelay
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		n, err := v.estimator.CountTokens(ctx, v.model, counted)
		if err == nil {
			if v.cache != nil {
				v.cache.Put(v.model, v.stylePrompt, text, n)
			}
			return n, nil
		}

		lastErr = err
		if !synth.IsTransient(err) {
			break
		}
		log.Debug("token count failed, retrying", "attempt", attempt+1, "error", err)
	}

	return 0, fmt.Errorf("%w: %w", synth.ErrTokenCountFailed, lastErr)
}

func (v *Validator) acceptChunk(base string, index int, text, title string, count int, oversized bool) synth.Chunk {
	suffix := ""
	if oversized {
		suffix = synth.SuffixOversized
		log.Warn("chunk exceeds hard token ceiling after repair",
			"index", index, "tokens", count, "ceiling", v.limits.MaxTTSTokens)
	}
	return synth.Chunk{
		Index:        index,
		Text:         text,
		ChapterTitle: title,
		FileName:     synth.ChunkFileName(base, index, suffix),
		Status:       synth.StatusPending,
		TokenCount:   count,
		Oversized:    oversized,
	}
}

func (v *Validator) errorChunk(base string, index int, text, title, suffix string, err error) synth.Chunk {
	log.Error("degrading candidate to error chunk", "index", index, "error", err)
	v.progress.Emit(synth.ErrorEvent{Err: err,
		Detail: fmt.Sprintf("token counting failed for part %d: %v", index, err)})
	return synth.Chunk{
		Index:        index,
		Text:         text,
		ChapterTitle: title,
		FileName:     synth.ChunkFileName(base, index, suffix),
		Status:       synth.StatusError,
		ErrorDetails: err.Error(),
	}
}
