package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/haivivi/accentid/cmd/accentid/internal/build"
	"github.com/haivivi/accentid/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format != cli.FormatText {
			return outputResult(build.Get(), format)
		}

		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", runtime.Version())
			if s, err := GetSettings(); err == nil {
				path := s.Path
				if path == "" {
					path = "(defaults)"
				}
				fmt.Printf("  config: %s\n", path)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
