package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Controller drives a full book through the pipeline: plan chunks, then
// synthesize, encode and store each one in order. Synthesis is sequential
// on purpose: deterministic ordering, predictable retry accounting, and no
// concurrent load against a rate-limited remote service.
type Controller struct {
	planner     Planner
	synthesizer Synthesizer
	encoder     Encoder
	store       ArtifactStore

	request   SynthesisRequest // voice/style template, Text filled per chunk
	synthesis SynthesisConfig
	progress  ProgressFunc
}

// NewController wires the pipeline stages together.
func NewController(planner Planner, synthesizer Synthesizer, encoder Encoder, store ArtifactStore, cfg Config) *Controller {
	return &Controller{
		planner:     planner,
		synthesizer: synthesizer,
		encoder:     encoder,
		store:       store,
		request: SynthesisRequest{
			Voice:        cfg.Voice,
			StylePrompt:  cfg.StylePrompt,
			LanguageCode: cfg.LanguageCode,
			Temperature:  cfg.Temperature,
		},
		synthesis: cfg.Synthesis,
	}
}

// OnProgress registers the progress event sink. Must be called before Run.
func (c *Controller) OnProgress(fn ProgressFunc) {
	c.progress = fn
}

// Plan runs only the chunking stage, for inspection without synthesis.
func (c *Controller) Plan(ctx context.Context, text, title string) ([]Chunk, error) {
	return c.planner.Plan(ctx, text, title)
}

// Run executes the whole pipeline. Partial success is the normal end
// state: per-chunk failures are recorded on the chunk and the run
// continues. Run returns an error only when planning fails outright or the
// context is canceled; the returned Run still carries whatever completed.
func (c *Controller) Run(ctx context.Context, text, title string) (*Run, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Title:   title,
		Started: time.Now(),
	}
	log.Info("starting run", "id", run.ID, "title", title, "chars", len(text))

	chunks, err := c.planner.Plan(ctx, text, title)
	if err != nil {
		c.progress.Emit(ErrorEvent{Err: err, Fatal: true,
			Detail: fmt.Sprintf("chunk planning failed: %v", err)})
		return run, NewPipelineError(err, "controller", "plan")
	}
	run.Chunks = chunks

	for i := range run.Chunks {
		if err := ctx.Err(); err != nil {
			run.Finished = time.Now()
			return run, err
		}

		ch := &run.Chunks[i]
		switch {
		case ch.Status == StatusError:
			// Token counting already failed during validation.
			run.Failed++
			continue
		case ch.Oversized:
			// Submitting would be a doomed request; skip, keep the text.
			log.Warn("skipping oversized chunk", "index", ch.Index, "tokens", ch.TokenCount)
			run.Skipped++
			continue
		}

		ch.Status = StatusGenerating
		raw, params, err := c.synthesizeWithRetry(ctx, ch.Text)
		if err != nil {
			if ctx.Err() != nil {
				ch.Status = StatusPending
				run.Finished = time.Now()
				return run, ctx.Err()
			}
			ch.Status = StatusError
			ch.ErrorDetails = err.Error()
			run.Failed++
			c.progress.Emit(ErrorEvent{Err: err,
				Detail: fmt.Sprintf("synthesis failed for %s: %v", ch.FileName, err)})
			continue
		}

		artifact := c.encoder.Encode(raw, params)
		if _, err := c.store.Write(ch.FileName, artifact); err != nil {
			ch.Status = StatusError
			ch.ErrorDetails = err.Error()
			run.Failed++
			c.progress.Emit(ErrorEvent{Err: err,
				Detail: fmt.Sprintf("storing %s failed: %v", ch.FileName, err)})
			continue
		}

		ch.Status = StatusSuccess
		ch.AudioBytes = len(artifact)
		run.Succeeded++
	}

	run.Finished = time.Now()
	c.progress.Emit(DoneEvent{
		Chunks:    len(run.Chunks),
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Skipped:   run.Skipped,
	})
	log.Info("run finished", "id", run.ID,
		"succeeded", run.Succeeded, "failed", run.Failed, "skipped", run.Skipped,
		"elapsed", run.Finished.Sub(run.Started))
	return run, nil
}

// synthesizeWithRetry calls the synthesizer with bounded retries and
// linearly increasing delay. Deterministic failures (safety block, length
// rejection) are not retried; the same request would fail the same way.
// An in-flight request is never aborted mid-call; cancellation is checked
// between attempts.
func (c *Controller) synthesizeWithRetry(ctx context.Context, text string) ([]byte, AudioParams, error) {
	req := c.request
	req.Text = text

	var lastErr error
	for attempt := 0; attempt < c.synthesis.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.synthesis.RetryDelay
			select {
			case <-ctx.Done():
				return nil, AudioParams{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, params, err := c.synthesizeOnce(ctx, req)
		if err == nil {
			return raw, params, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, AudioParams{}, ctx.Err()
		}
		if !IsRetryableSynthesis(err) {
			break
		}
		log.Debug("synthesis attempt failed, retrying",
			"attempt", attempt+1, "of", c.synthesis.RetryAttempts, "error", err)
	}

	return nil, AudioParams{}, lastErr
}

// synthesizeOnce runs a single attempt under its own timeout context,
// released as soon as the attempt finishes.
func (c *Controller) synthesizeOnce(ctx context.Context, req SynthesisRequest) ([]byte, AudioParams, error) {
	if c.synthesis.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.synthesis.Timeout)
		defer cancel()
	}
	return c.synthesizer.Synthesize(ctx, req)
}
