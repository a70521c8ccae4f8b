package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/transcribe"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a WAV recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			result, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			if isBlankTranscript(result.Text) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindChunkingFlags(cmd, app)
	return cmd
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (transcribe.Result, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return transcribe.Result{}, fmt.Errorf("audio file not found: %w", err)
	}

	svc := a.newService()

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("model", a.model),
		zap.Bool("chunked", a.chunked))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	var result transcribe.Result
	var err error
	if a.chunked {
		result, err = svc.TranscribeChunked(ctx, audioPath, a.chunkSeconds, a.strideSeconds)
	} else {
		result, err = svc.Transcribe(ctx, audioPath)
	}
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return transcribe.Result{}, err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return result, nil
}

func isBlankTranscript(transcript string) bool {
	return strings.TrimSpace(transcript) == ""
}

func noSpeechHint() string {
	return "No speech detected. Check the recording is not silent and uses a supported format, then try again."
}
