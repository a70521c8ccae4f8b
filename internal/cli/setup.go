package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/asr"
	"github.com/zameerb1/medasr/internal/download"
)

func newSetupCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download and verify acoustic model assets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			resolved, err := asr.ResolveModel(app.model, modelDir)
			if err != nil {
				return err
			}
			if resolved.IsCustomPath {
				return fmt.Errorf("setup expects a named model; got custom path %s", app.model)
			}

			artifacts := []struct {
				url, dest, sha string
			}{
				{resolved.WeightsURL, resolved.WeightsPath, resolved.WeightsSHA256},
				{resolved.VocabURL, resolved.VocabPath, resolved.VocabSHA256},
			}

			downloaded := 0
			for _, artifact := range artifacts {
				needsDownload := false
				if _, err := os.Stat(artifact.dest); err != nil {
					needsDownload = true
				} else if err := download.VerifyFileChecksum(artifact.dest, artifact.sha); err != nil {
					app.log().Warn("artifact checksum verification failed; downloading fresh copy",
						zap.String("path", artifact.dest), zap.Error(err))
					needsDownload = true
				}

				if !needsDownload {
					app.log().Info("artifact already present", zap.String("path", artifact.dest))
					continue
				}

				app.log().Info("downloading artifact",
					zap.String("model", resolved.Name), zap.String("path", artifact.dest))
				if err := download.DownloadFile(cmd.Context(), download.Options{
					URL:            artifact.url,
					Destination:    artifact.dest,
					ExpectedSHA256: artifact.sha,
					NoProgress:     app.noProgress,
					Logger:         app.log(),
				}); err != nil {
					return fmt.Errorf("download %s: %w", filepath.Base(artifact.dest), err)
				}
				downloaded++
			}

			if downloaded == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s already present at %s\n", resolved.Name, modelDir)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s installed at %s\n", resolved.Name, modelDir)
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)

	return cmd
}
