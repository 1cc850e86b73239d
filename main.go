// Package main provides the entry point for the bookvoice CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/bookvoice/internal/cache"
	"github.com/dgnsrekt/bookvoice/internal/store"
	"github.com/dgnsrekt/bookvoice/synth"
	"github.com/dgnsrekt/bookvoice/synth/chunker"
	"github.com/dgnsrekt/bookvoice/synth/engine/gemini"
	"github.com/dgnsrekt/bookvoice/synth/engine/mock"
	"github.com/dgnsrekt/bookvoice/synth/wav"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	title      string
	voice      string
	style      string
	language   string
	outputDir  string
	engineName string
	debug      bool
	dryRun     bool

	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true)

	rootCmd = &cobra.Command{
		Use:   "bookvoice [FILE]",
		Short: "Turn a book manuscript into a spoken audiobook",
		Long: "Bookvoice splits a manuscript into token-budget-sized chunks,\n" +
			"synthesizes each one with a remote TTS model, and assembles the\n" +
			"results into downloadable WAV parts.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	text, err := readSource(args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return synth.ErrEmptyContent
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if title == "" {
		title = titleFromPath(args[0])
	}

	estimator, synthesizer, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	planOpts := chunker.Options{
		Model:       cfg.Model,
		StylePrompt: cfg.StylePrompt,
		Progress:    renderProgress,
	}
	if cfg.CacheEnabled {
		tokenCache := cache.Open(cachePath(cfg), 0)
		planOpts.Cache = tokenCache
		defer func() {
			if err := tokenCache.Save(); err != nil {
				log.Warn("failed to save token cache", "error", err)
			}
		}()
	}

	planner := chunker.New(estimator, cfg.Limits, planOpts)

	if dryRun {
		chunks, err := planner.Plan(cmd.Context(), text, title)
		if err != nil {
			return err
		}
		printPlan(chunks)
		return nil
	}

	artifacts, err := store.New(cfg.OutputDir)
	if err != nil {
		return err
	}

	encoder := &wav.Encoder{
		TrimSilence:        cfg.Trim.Enabled,
		AmplitudeThreshold: int16(cfg.Trim.AmplitudeThreshold), //nolint:gosec
		RunThreshold:       cfg.Trim.RunThreshold,
		Padding:            cfg.Trim.Padding,
	}

	controller := synth.NewController(planner, synthesizer, encoder, artifacts, cfg)
	controller.OnProgress(renderProgress)

	run, err := controller.Run(cmd.Context(), text, title)
	if err != nil {
		return err
	}
	if run.Succeeded == 0 {
		return fmt.Errorf("no audio generated: %d failed, %d skipped", run.Failed, run.Skipped)
	}
	fmt.Println(doneStyle.Render(
		fmt.Sprintf("Audiobook written to %s (%d parts)", artifacts.Dir(), run.Succeeded)))
	return nil
}

func loadConfig() (synth.Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return synth.Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg, err := synth.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}

	// Flags win over file and environment.
	if voice != "" {
		cfg.Voice = voice
	}
	if style != "" {
		cfg.StylePrompt = style
	}
	if language != "" {
		cfg.LanguageCode = language
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, nil
}

func buildEngine(cfg synth.Config) (synth.SizeEstimator, synth.Synthesizer, error) {
	switch engineName {
	case "mock":
		e := mock.New()
		return e, e, nil
	case "gemini", "":
		client, err := gemini.New(gemini.Config{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   cfg.Model,
			Timeout: cfg.Synthesis.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q (want gemini or mock)", engineName)
	}
}

// readSource reads the manuscript from a file, or stdin when arg is "-".
func readSource(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", arg, err)
	}
	return string(data), nil
}

func titleFromPath(arg string) string {
	if arg == "-" {
		return "book"
	}
	base := filepath.Base(arg)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cachePath(cfg synth.Config) string {
	if cfg.CachePath != "" {
		return cfg.CachePath
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(cfg.OutputDir, ".tokencache")
	}
	return filepath.Join(dir, "bookvoice", "tokens.zst")
}

func renderProgress(ev synth.Event) {
	switch e := ev.(type) {
	case synth.ValidationEvent:
		fmt.Printf("%s %s\n", stageStyle.Render("validate"), e.Message())
	case synth.ErrorEvent:
		fmt.Println(errStyle.Render(e.Message()))
	case synth.DoneEvent:
		fmt.Println(doneStyle.Render(e.Message()))
	default:
		fmt.Printf("%s %s\n", stageStyle.Render(string(ev.Kind())), ev.Message())
	}
}

func printPlan(chunks []synth.Chunk) {
	for _, ch := range chunks {
		flag := ""
		switch {
		case ch.Status == synth.StatusError:
			flag = " [token error]"
		case ch.Oversized:
			flag = " [oversized]"
		}
		fmt.Printf("%3d  %-40s %6d tokens  %6d chars%s\n",
			ch.Index, ch.FileName, ch.TokenCount, len([]rune(ch.Text)), flag)
	}
}

func setupLog() {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	log.SetReportTimestamp(false)
}

func main() {
	// .env is the conventional home for GEMINI_API_KEY during development.
	_ = godotenv.Load()
	cobra.OnInitialize(setupLog)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVarP(&title, "title", "t", "", "book title (default: source file name)")
	rootCmd.Flags().StringVar(&voice, "voice", "", "voice name")
	rootCmd.Flags().StringVar(&style, "style", "", "reading style instruction")
	rootCmd.Flags().StringVar(&language, "language", "", "BCP-47 language code")
	rootCmd.Flags().StringVarP(&outputDir, "out", "o", "", "output directory")
	rootCmd.Flags().StringVar(&engineName, "engine", "gemini", "synthesis engine (gemini/mock)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan chunks without synthesizing")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.SetEnvPrefix("bookvoice")
	viper.AutomaticEnv()
}
