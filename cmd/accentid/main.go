// Package main is the entry point for the accentid CLI.
//
// Usage:
//
//	accentid [flags] <command> [args]
//
// Commands:
//
//	serve      - Run the English Accent Detector web UI
//	analyze    - Analyze one or more video URLs from the terminal
//	classes    - List the accents the model was trained on
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/accentid/cmd/accentid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
