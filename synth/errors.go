package synth

import "errors"

// Common errors for the synthesis pipeline.
var (
	// Estimator errors
	ErrTokenCountFailed   = errors.New("token counting failed")
	ErrServiceUnavailable = errors.New("remote service unavailable")
	ErrRateLimited        = errors.New("remote service rate limited")

	// Synthesizer errors
	ErrSafetyBlocked     = errors.New("content blocked by safety filter")
	ErrLengthExceeded    = errors.New("request exceeds model length limit")
	ErrSynthesisRefused  = errors.New("model refused to generate audio")
	ErrNoAudioData       = errors.New("response contained no audio data")

	// Pipeline errors
	ErrEmptyContent  = errors.New("empty content provided")
	ErrNoChunks      = errors.New("no chunks produced from content")
	ErrEmptyArtifact = errors.New("audio artifact is empty")

	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingAPIKey     = errors.New("API key not configured")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidChannels   = errors.New("invalid number of channels")
	ErrInvalidBitDepth   = errors.New("invalid bit depth")
)

// IsTransient reports whether an error is a transient remote failure that
// is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimited)
}

// IsRetryableSynthesis reports whether a synthesis failure may succeed on a
// retry. Safety blocks and length rejections are deterministic: the same
// request will fail the same way.
func IsRetryableSynthesis(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSafetyBlocked) || errors.Is(err, ErrLengthExceeded) {
		return false
	}
	return true
}

// PipelineError provides detailed error information with provenance.
type PipelineError struct {
	Err       error          // the underlying error
	Component string         // component that generated the error
	Action    string         // action being performed when it occurred
	Context   map[string]any // additional context
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown pipeline error"
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a pipeline error with provenance attached.
func NewPipelineError(err error, component, action string) *PipelineError {
	return &PipelineError{
		Err:       err,
		Component: component,
		Action:    action,
		Context:   make(map[string]any),
	}
}

// WithContext adds context to the error.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
