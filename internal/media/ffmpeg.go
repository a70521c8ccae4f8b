// Package media converts uploaded containers and codecs to the mono 16 kHz
// WAV the audio loader expects, by shelling out to ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ConvertToWAV transcodes inputPath to mono 16 kHz PCM WAV at outputPath.
// ffmpeg must be on PATH; the caller owns both files.
func ConvertToWAV(ctx context.Context, inputPath, outputPath string) error {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg convert failed: %w (%s)", err, lastStderrLine(stderr.String()))
	}
	return nil
}

// lastStderrLine keeps error messages readable; ffmpeg writes its banner and
// progress to stderr, and the actual failure is the final non-empty line.
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no ffmpeg output"
}
