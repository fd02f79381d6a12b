package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/accentid/pkg/webui"
)

var (
	serveAddr string
	serveCORS bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI",
	Long: `Run the English Accent Detector web UI.

The model and label encoder are loaded once at startup. When they cannot be
loaded the server still starts and every analysis reports the model as
unavailable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetSettings()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			s.Server.Addr = serveAddr
		}
		if serveCORS {
			s.Server.CORS = true
		}

		a, err := newApp(s)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if bundle, err := a.models.Get(ctx); err != nil {
			slog.Error("model unavailable, analyses will fail", "store", s.Model.Store, "error", err)
		} else {
			slog.Info("model ready", "classes", bundle.Encoder.Classes())
		}

		srv := webui.New(a.analyzer, a.models, webui.Config{
			Addr: s.Server.Addr,
			CORS: s.Server.CORS,
		})
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:7860)")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false, "allow cross-origin requests")
	rootCmd.AddCommand(serveCmd)
}

// contextOrBackground guards against commands executed without a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
