package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/config"
	"github.com/zameerb1/medasr/internal/server"
	"github.com/zameerb1/medasr/internal/transcribe"
)

func newServeCmd(app *appState) *cobra.Command {
	var (
		bind    string
		port    int
		preload bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(app.configPath)
			if err != nil {
				return err
			}
			applyServeOverrides(cmd, app, &cfg, bind, port, preload)

			svc := transcribe.New(transcribe.Options{
				Model:        cfg.Model.Name,
				ModelDir:     cfg.Model.Dir,
				Device:       cfg.Model.Device,
				AutoDownload: cfg.Model.AutoDownload,
				NoProgress:   app.noProgress,
				Logger:       app.log(),
			})

			if cfg.Model.Preload {
				app.log().Info("preloading acoustic model", zap.String("model", cfg.Model.Name))
				if err := svc.Preload(cmd.Context()); err != nil {
					return err
				}
			}

			srv := server.New(cfg, svc, app.log())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				app.log().Info("shutting down")
				return srv.Shutdown()
			}
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	cmd.Flags().StringVar(&app.configPath, "config", "", "Path to a yaml config file")
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	cmd.Flags().BoolVar(&preload, "preload", false, "Load the model before accepting requests")

	return cmd
}

// applyServeOverrides layers explicitly set flags over the loaded config.
// Flags the user did not touch leave the config values alone.
func applyServeOverrides(cmd *cobra.Command, app *appState, cfg *config.Config, bind string, port int, preload bool) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model.Name = app.model
	}
	if flags.Changed("model-dir") {
		cfg.Model.Dir = app.modelDir
	}
	if flags.Changed("device") {
		cfg.Model.Device = app.device
	}
	if flags.Changed("auto-download") {
		cfg.Model.AutoDownload = app.autoDownload
	}
	if flags.Changed("bind") {
		cfg.Server.Bind = bind
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("preload") {
		cfg.Model.Preload = preload
	}
}
