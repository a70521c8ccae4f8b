package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"

	"github.com/zameerb1/medasr/internal/asr"
	"github.com/zameerb1/medasr/internal/logging"
	"github.com/zameerb1/medasr/internal/platform"
	"github.com/zameerb1/medasr/internal/transcribe"
	"github.com/zameerb1/medasr/internal/version"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	model        string
	modelDir     string
	device       string
	autoDownload bool

	chunked       bool
	chunkSeconds  float64
	strideSeconds float64

	configPath string

	logger *zap.Logger

	transcribeFn func(ctx context.Context, audioPath string) (transcribe.Result, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		model:         asr.DefaultModel,
		device:        "auto",
		autoDownload:  true,
		chunkSeconds:  transcribe.DefaultChunkSeconds,
		strideSeconds: transcribe.DefaultStrideSeconds,
	}
	app.transcribeFn = app.transcribeAudio

	cmd := &cobra.Command{
		Use:           "medasr",
		Short:         "Transcribe medical dictation with a local acoustic model",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model name or path to an exported model directory")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	cmd.Flags().StringVar(&app.device, "device", app.device, "Inference device: auto|cuda|metal|cpu")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindChunkingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.chunked, "chunked", app.chunked, "Decode in overlapping windows for long recordings")
	cmd.Flags().Float64Var(&app.chunkSeconds, "chunk-seconds", app.chunkSeconds, "Window length in seconds for chunked decoding")
	cmd.Flags().Float64Var(&app.strideSeconds, "stride-seconds", app.strideSeconds, "Window overlap in seconds for chunked decoding")
}

func (a *appState) newService() *transcribe.Service {
	return transcribe.New(transcribe.Options{
		Model:        a.model,
		ModelDir:     a.modelDir,
		Device:       a.device,
		AutoDownload: a.autoDownload,
		NoProgress:   a.noProgress,
		Logger:       a.log(),
	})
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
