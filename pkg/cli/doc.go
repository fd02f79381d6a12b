// Package cli provides common CLI utilities for the accentid command.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw)
//   - Request file loading (YAML/JSON), e.g. batches of URLs
//   - Directory layout under ~/.giztoy/<app>
//   - A lipgloss card for terminal results
//
// Example usage:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
