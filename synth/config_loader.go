package synth

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads pipeline configuration: struct defaults and
// environment variables first, then config-file values from Viper on top.
func LoadConfigFromViper() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parsing environment config: %w", err)
	}

	// Model and voice settings
	if viper.IsSet("model") {
		cfg.Model = viper.GetString("model")
	}
	if viper.IsSet("voice") {
		cfg.Voice = viper.GetString("voice")
	}
	if viper.IsSet("style_prompt") {
		cfg.StylePrompt = viper.GetString("style_prompt")
	}
	if viper.IsSet("language_code") {
		cfg.LanguageCode = viper.GetString("language_code")
	}
	if viper.IsSet("temperature") {
		cfg.Temperature = viper.GetFloat64("temperature")
	}

	// Output settings
	if viper.IsSet("output_dir") {
		cfg.OutputDir = viper.GetString("output_dir")
	}
	if viper.IsSet("cache_enabled") {
		cfg.CacheEnabled = viper.GetBool("cache_enabled")
	}
	if viper.IsSet("cache_path") {
		cfg.CachePath = viper.GetString("cache_path")
	}

	// Chunking limits
	if viper.IsSet("limits.ideal_tokens_per_chunk") {
		cfg.Limits.IdealTokensPerChunk = viper.GetInt("limits.ideal_tokens_per_chunk")
	}
	if viper.IsSet("limits.size_multiplier") {
		cfg.Limits.SizeMultiplier = viper.GetFloat64("limits.size_multiplier")
	}
	if viper.IsSet("limits.chars_per_token") {
		cfg.Limits.CharsPerToken = viper.GetInt("limits.chars_per_token")
	}
	if viper.IsSet("limits.split_divisor") {
		cfg.Limits.SplitDivisor = viper.GetInt("limits.split_divisor")
	}
	if viper.IsSet("limits.max_tts_tokens") {
		cfg.Limits.MaxTTSTokens = viper.GetInt("limits.max_tts_tokens")
	}
	if viper.IsSet("limits.count_retries") {
		cfg.Limits.CountRetries = viper.GetInt("limits.count_retries")
	}
	if viper.IsSet("limits.count_retry_delay") {
		cfg.Limits.CountRetryDelay = viper.GetDuration("limits.count_retry_delay")
	}

	// Synthesis retry policy
	if viper.IsSet("synthesis.retry_attempts") {
		cfg.Synthesis.RetryAttempts = viper.GetInt("synthesis.retry_attempts")
	}
	if viper.IsSet("synthesis.retry_delay") {
		cfg.Synthesis.RetryDelay = viper.GetDuration("synthesis.retry_delay")
	}
	if viper.IsSet("synthesis.timeout") {
		cfg.Synthesis.Timeout = viper.GetDuration("synthesis.timeout")
	}

	// Silence trimming
	if viper.IsSet("trim.enabled") {
		cfg.Trim.Enabled = viper.GetBool("trim.enabled")
	}
	if viper.IsSet("trim.amplitude_threshold") {
		cfg.Trim.AmplitudeThreshold = viper.GetInt("trim.amplitude_threshold")
	}
	if viper.IsSet("trim.run_threshold") {
		cfg.Trim.RunThreshold = viper.GetDuration("trim.run_threshold")
	}
	if viper.IsSet("trim.padding") {
		cfg.Trim.Padding = viper.GetDuration("trim.padding")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
