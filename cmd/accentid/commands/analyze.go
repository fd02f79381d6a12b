package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/accentid/pkg/cli"
	"github.com/haivivi/accentid/pkg/pipeline"
)

var analyzeFile string

// AnalyzeEntry is one line of structured analyze output.
type AnalyzeEntry struct {
	URL    string           `json:"url" yaml:"url"`
	Result *pipeline.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url...]",
	Short: "Analyze the accent in one or more video URLs",
	Long: `Download each URL's audio, classify the speaker's accent and print the result.

URLs come from the arguments and from a file given with -f: a YAML or JSON
list, a {urls: [...]} mapping, or a .txt file with one URL per line.

  urls:
    - https://www.youtube.com/watch?v=...
    - https://www.loom.com/share/...

Examples:
  accentid analyze https://example.com/talk.mp4
  accentid analyze -f urls.yaml --format json -o results.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}

		urls := append([]string(nil), args...)
		if analyzeFile != "" {
			batch, err := cli.LoadBatch(analyzeFile)
			if err != nil {
				return err
			}
			urls = append(urls, batch...)
		}
		if len(urls) == 0 {
			// An empty URL runs through the analyzer so it is reported the same
			// way as in the web UI.
			urls = []string{""}
		}

		s, err := GetSettings()
		if err != nil {
			return err
		}
		a, err := newApp(s)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := contextOrBackground(cmd)
		entries := make([]AnalyzeEntry, 0, len(urls))
		failed := 0
		for _, url := range urls {
			var progress pipeline.ProgressFunc
			if format == cli.FormatText {
				progress = printProgress
			}
			start := time.Now()
			res, err := a.analyzer.Run(ctx, url, progress)
			entry := AnalyzeEntry{URL: url, Result: res}
			if err != nil {
				failed++
				entry.Error = pipeline.Message(err)
			}
			entries = append(entries, entry)

			if format == cli.FormatText {
				if err != nil {
					cli.PrintError("%s", entry.Error)
					continue
				}
				fmt.Println(renderResult(res, time.Since(start)))
			}
		}

		if format != cli.FormatText {
			var out any = entries
			if len(entries) == 1 {
				out = entries[0]
			}
			if err := outputResult(out, format); err != nil {
				return err
			}
		}

		if failed > 0 {
			if len(urls) == 1 {
				return errors.New(entries[0].Error)
			}
			return fmt.Errorf("%d of %d analyses failed", failed, len(urls))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "YAML, JSON or text file listing URLs")
	rootCmd.AddCommand(analyzeCmd)
}

func printProgress(ev pipeline.Event) {
	if ev.Message == "" || ev.Status == pipeline.StatusFailed {
		return
	}
	fmt.Fprintln(os.Stderr, "… "+ev.Message)
}

func renderResult(res *pipeline.Result, took time.Duration) string {
	card := cli.Card{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  "English Accent Detector",
		Fields: []cli.Field{
			{Label: "Predicted Accent", Value: res.Accent},
			{Label: "Confidence", Value: cli.FormatPercent(res.Confidence)},
		},
		Body: strings.ReplaceAll(res.Explanation, "**", ""),
	}
	if IsVerbose() {
		card.Help = "audio " + res.AudioFile + ", took " + cli.FormatDuration(took)
	}
	return card.Render(72)
}
