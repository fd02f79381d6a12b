package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/accentid/pkg/cli"
	"github.com/haivivi/accentid/pkg/pipeline"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the accents the model was trained on",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
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

		bundle, err := a.models.Get(contextOrBackground(cmd))
		if err != nil {
			return fmt.Errorf("%s: %w", pipeline.Message(err), err)
		}
		classes := bundle.Encoder.Classes()

		if format != cli.FormatText {
			return outputResult(map[string]any{"classes": classes}, format)
		}
		for i, c := range classes {
			fmt.Printf("%d\t%s\n", i, c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
}
