package synth

import (
	"fmt"
	"time"
)

// Config contains all pipeline configuration options.
type Config struct {
	// Model and voice settings
	Model        string  `yaml:"model" env:"BOOKVOICE_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	Voice        string  `yaml:"voice" env:"BOOKVOICE_VOICE" envDefault:"Kore"`
	StylePrompt  string  `yaml:"style_prompt" env:"BOOKVOICE_STYLE_PROMPT"`
	LanguageCode string  `yaml:"language_code" env:"BOOKVOICE_LANGUAGE_CODE" envDefault:"en-US"`
	Temperature  float64 `yaml:"temperature" env:"BOOKVOICE_TEMPERATURE" envDefault:"1.0"`

	// Output settings
	OutputDir string `yaml:"output_dir" env:"BOOKVOICE_OUTPUT_DIR" envDefault:"audiobook"`

	// Token cache settings
	CacheEnabled bool   `yaml:"cache_enabled" env:"BOOKVOICE_CACHE_ENABLED" envDefault:"true"`
	CachePath    string `yaml:"cache_path" env:"BOOKVOICE_CACHE_PATH"`

	// Chunking limits
	Limits Limits `yaml:"limits"`

	// Synthesis retry policy
	Synthesis SynthesisConfig `yaml:"synthesis"`

	// Trailing-silence trimming
	Trim TrimConfig `yaml:"trim"`
}

// Limits holds the token and character budgets driving chunk validation.
// The specific numbers are tuning values, not hard truths; the defaults
// match observed model behavior but every one is overridable.
type Limits struct {
	IdealTokensPerChunk int           `yaml:"ideal_tokens_per_chunk" env:"BOOKVOICE_IDEAL_TOKENS" envDefault:"2000"`
	SizeMultiplier      float64       `yaml:"size_multiplier" env:"BOOKVOICE_SIZE_MULTIPLIER" envDefault:"1.1"`
	CharsPerToken       int           `yaml:"chars_per_token" env:"BOOKVOICE_CHARS_PER_TOKEN" envDefault:"3"`
	SplitDivisor        int           `yaml:"split_divisor" env:"BOOKVOICE_SPLIT_DIVISOR" envDefault:"4"`
	MaxTTSTokens        int           `yaml:"max_tts_tokens" env:"BOOKVOICE_MAX_TTS_TOKENS" envDefault:"8000"`
	CountRetries        int           `yaml:"count_retries" env:"BOOKVOICE_COUNT_RETRIES" envDefault:"2"`
	CountRetryDelay     time.Duration `yaml:"count_retry_delay" env:"BOOKVOICE_COUNT_RETRY_DELAY" envDefault:"500ms"`
}

// IdealTokenUpperBound is the acceptance bound for validated chunks.
func (l Limits) IdealTokenUpperBound() int {
	return int(float64(l.IdealTokensPerChunk) * l.SizeMultiplier)
}

// IdealCharTarget is the character-count proxy used for coarse aggregation.
func (l Limits) IdealCharTarget() int {
	return l.IdealTokensPerChunk * l.CharsPerToken
}

// FineCharTarget is the target used when re-splitting an oversized candidate.
func (l Limits) FineCharTarget() int {
	return l.IdealCharTarget() / l.SplitDivisor
}

// SynthesisConfig holds the orchestration loop's retry policy.
type SynthesisConfig struct {
	RetryAttempts int           `yaml:"retry_attempts" env:"BOOKVOICE_SYNTH_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"BOOKVOICE_SYNTH_RETRY_DELAY" envDefault:"2s"`
	Timeout       time.Duration `yaml:"timeout" env:"BOOKVOICE_SYNTH_TIMEOUT" envDefault:"120s"`
}

// TrimConfig holds the trailing-silence trim thresholds. Trimming applies
// to 16-bit audio only.
type TrimConfig struct {
	Enabled            bool          `yaml:"enabled" env:"BOOKVOICE_TRIM_ENABLED" envDefault:"true"`
	AmplitudeThreshold int           `yaml:"amplitude_threshold" env:"BOOKVOICE_TRIM_AMPLITUDE" envDefault:"327"`
	RunThreshold       time.Duration `yaml:"run_threshold" env:"BOOKVOICE_TRIM_RUN" envDefault:"2s"`
	Padding            time.Duration `yaml:"padding" env:"BOOKVOICE_TRIM_PADDING" envDefault:"500ms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:        "gemini-2.5-flash-preview-tts",
		Voice:        "Kore",
		LanguageCode: "en-US",
		Temperature:  1.0,
		OutputDir:    "audiobook",
		CacheEnabled: true,
		Limits:       DefaultLimits(),
		Synthesis: SynthesisConfig{
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
			Timeout:       120 * time.Second,
		},
		Trim: TrimConfig{
			Enabled:            true,
			AmplitudeThreshold: 327,
			RunThreshold:       2 * time.Second,
			Padding:            500 * time.Millisecond,
		},
	}
}

// DefaultLimits returns the default chunking budgets.
func DefaultLimits() Limits {
	return Limits{
		IdealTokensPerChunk: 2000,
		SizeMultiplier:      1.1,
		CharsPerToken:       3,
		SplitDivisor:        4,
		MaxTTSTokens:        8000,
		CountRetries:        2,
		CountRetryDelay:     500 * time.Millisecond,
	}
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model must be set", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0,2]", ErrInvalidConfig, c.Temperature)
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if c.Synthesis.RetryAttempts < 1 {
		return fmt.Errorf("%w: synthesis retry attempts must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// Validate checks limit consistency.
func (l Limits) Validate() error {
	if l.IdealTokensPerChunk <= 0 {
		return fmt.Errorf("%w: ideal tokens per chunk must be positive", ErrInvalidConfig)
	}
	if l.SizeMultiplier < 1.0 {
		return fmt.Errorf("%w: size multiplier must be >= 1.0", ErrInvalidConfig)
	}
	if l.CharsPerToken <= 0 {
		return fmt.Errorf("%w: chars per token must be positive", ErrInvalidConfig)
	}
	if l.SplitDivisor <= 0 {
		return fmt.Errorf("%w: split divisor must be positive", ErrInvalidConfig)
	}
	if l.MaxTTSTokens < l.IdealTokenUpperBound() {
		return fmt.Errorf("%w: max TTS tokens %d below ideal bound %d",
			ErrInvalidConfig, l.MaxTTSTokens, l.IdealTokenUpperBound())
	}
	if l.CountRetries < 0 {
		return fmt.Errorf("%w: count retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
