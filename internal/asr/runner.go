package asr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/audio"
)

// RunnerEngine shells out to the bundled medasr-engine binary, which loads
// the conformer weights once per invocation and writes logit matrices in the
// format decoded by ReadLogitsFile.
type RunnerEngine struct {
	Executable string
	Weights    string
	Device     Device
	Logger     *zap.Logger
}

func NewRunnerEngine(weightsPath string, device Device, logger *zap.Logger) (*RunnerEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv("MEDASR_ENGINE_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("MEDASR_ENGINE_PATH is not executable: %w", err)
		}
		return &RunnerEngine{Executable: override, Weights: weightsPath, Device: device, Logger: logger}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve medasr executable path: %w", err)
	}

	engineExe, err := resolveEnginePath(selfExe)
	if err != nil {
		return nil, err
	}
	return &RunnerEngine{Executable: engineExe, Weights: weightsPath, Device: device, Logger: logger}, nil
}

func resolveEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range enginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("bundled inference engine not found near %s; expected at ../libexec/medasr/%s or via MEDASR_ENGINE_PATH", selfExecutable, engineBinaryName())
}

func enginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	name := engineBinaryName()
	return []string{
		filepath.Join(binDir, "..", "libexec", "medasr", name),
		filepath.Join(binDir, "libexec", "medasr", name),
		filepath.Join(binDir, name),
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "medasr-engine.exe"
	}
	return "medasr-engine"
}

func (e *RunnerEngine) Infer(ctx context.Context, wave audio.Waveform) (Logits, error) {
	results, err := e.run(ctx, []audio.Waveform{wave}, e.Device)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (e *RunnerEngine) InferBatch(ctx context.Context, waves []audio.Waveform) ([]Logits, error) {
	if len(waves) == 0 {
		return nil, nil
	}
	return e.run(ctx, waves, e.batchDevice())
}

// batchDevice downgrades Metal to CPU for batched calls only; the engine's
// Metal backend handles single waveforms exclusively. The configured device
// is left untouched for subsequent single-shot calls.
func (e *RunnerEngine) batchDevice() Device {
	if !e.Device.SupportsBatch() {
		return DeviceCPU
	}
	return e.Device
}

func (e *RunnerEngine) run(ctx context.Context, waves []audio.Waveform, device Device) ([]Logits, error) {
	if err := ensureExecutable(e.Executable); err != nil {
		return nil, fmt.Errorf("inference engine missing or not executable: %w", err)
	}

	workDir, err := os.MkdirTemp("", "medasr-infer-*")
	if err != nil {
		return nil, fmt.Errorf("create inference work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{"-m", e.Weights, "-d", string(device), "-o", workDir}
	for i, wave := range waves {
		wavPath := filepath.Join(workDir, fmt.Sprintf("input-%03d.wav", i))
		if err := writeWaveFile(wavPath, wave); err != nil {
			return nil, err
		}
		args = append(args, "-f", wavPath)
	}

	cmd := exec.CommandContext(ctx, e.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.Logger.Debug("running inference engine",
		zap.String("engine", e.Executable),
		zap.String("device", string(device)),
		zap.Int("inputs", len(waves)))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("inference engine failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	results := make([]Logits, len(waves))
	for i := range waves {
		logitsPath := filepath.Join(workDir, fmt.Sprintf("input-%03d.logits", i))
		logits, err := ReadLogitsFile(logitsPath)
		if err != nil {
			return nil, fmt.Errorf("read engine output %d: %w", i, err)
		}
		results[i] = logits
	}
	return results, nil
}

// writeWaveFile encodes a waveform as 16-bit mono PCM for the engine.
func writeWaveFile(path string, wave audio.Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create engine input: %w", err)
	}
	defer f.Close()

	samples := make([]int, len(wave.Samples))
	for i, s := range wave.Samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = v
	}

	enc := wav.NewEncoder(f, audio.SampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: audio.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write engine input: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close engine input: %w", err)
	}
	return nil
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
