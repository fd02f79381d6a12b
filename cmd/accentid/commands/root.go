package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/accentid/cmd/accentid/internal/config"
	"github.com/haivivi/accentid/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	formatOutput string
	outputFile   string

	// Global configuration (loaded at init time)
	globalSettings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "accentid",
	Short: "English accent detection for public videos",
	Long: `accentid - detect the English accent of a speaker in a public video.

The audio track is downloaded with yt-dlp, decoded with ffmpeg to 5 s of
16 kHz mono, turned into MFCC features and classified by an ONNX model.

Configuration is read from ~/.giztoy/accentid/config.yaml (override with
--config). ACCENTID_* environment variables override single settings.

Examples:
  # Run the web UI
  accentid serve --addr 127.0.0.1:7860

  # Analyze a video from the terminal
  accentid analyze https://www.youtube.com/watch?v=...

  # Analyze a batch and print JSON
  accentid analyze -f urls.yaml --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.giztoy/accentid/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file")
}

// settingsLoadErr stores the error from config.Load() for deferred reporting.
var settingsLoadErr error

func initConfig() {
	globalSettings, settingsLoadErr = config.Load(configPath)

	level := slog.LevelInfo
	if globalSettings != nil {
		if l, err := globalSettings.LogLevel(); err == nil {
			level = l
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// GetSettings returns the loaded configuration. Commands that do not need
// it (version) still run when the file is broken.
func GetSettings() (*config.Settings, error) {
	if settingsLoadErr != nil {
		return nil, fmt.Errorf("config not available: %w", settingsLoadErr)
	}
	if globalSettings == nil {
		s, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalSettings = s
	}
	return globalSettings, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(formatOutput)
}

func outputResult(v any, format cli.OutputFormat) error {
	return cli.Output(v, cli.OutputOptions{Format: format, File: outputFile})
}
