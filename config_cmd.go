package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
)

const defaultConfig = `# TTS model used for token counting and synthesis
model: "gemini-2.5-flash-preview-tts"
# prebuilt voice name
voice: "Kore"
# reading style instruction, prefixed to every chunk
style_prompt: ""
# BCP-47 language code
language_code: "en-US"
# sampling temperature (0.0 to 2.0)
temperature: 1.0

# directory the WAV parts are written to
output_dir: "audiobook"

# persist token counts between runs
cache_enabled: true
# cache_path: "/path/to/tokens.zst"

# chunking budgets
limits:
  ideal_tokens_per_chunk: 2000
  size_multiplier: 1.1
  chars_per_token: 3
  split_divisor: 4
  max_tts_tokens: 8000
  count_retries: 2
  count_retry_delay: "500ms"

# synthesis retry policy
synthesis:
  retry_attempts: 3
  retry_delay: "2s"
  timeout: "120s"

# trailing-silence trimming
trim:
  enabled: true
  amplitude_threshold: 327
  run_threshold: "2s"
  padding: "500ms"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the bookvoice config file",
	Long:    "Edit the bookvoice config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "bookvoice config\nbookvoice config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Bookvoice", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("could not locate configuration directory: %w", err)
		}
		configFile = filepath.Join(dir, "bookvoice", "bookvoice.yml")
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
