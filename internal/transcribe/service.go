// Package transcribe owns the transcription pipeline: load and validate
// audio, run the acoustic model, and greedy-decode its logits into text.
// It is the single process-wide owner of model state.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zameerb1/medasr/internal/asr"
	"github.com/zameerb1/medasr/internal/audio"
	"github.com/zameerb1/medasr/internal/ctc"
	"github.com/zameerb1/medasr/internal/download"
	"github.com/zameerb1/medasr/internal/platform"
)

var (
	// ErrModelLoad marks a failed Unloaded->Ready transition. The failure is
	// terminal for the triggering call; the next call retries the load.
	ErrModelLoad = errors.New("model load failed")

	// ErrInference wraps unexpected acoustic model failures. Never retried.
	ErrInference = errors.New("inference failed")
)

const (
	DefaultChunkSeconds  = 20.0
	DefaultStrideSeconds = 2.0

	// chunkBatchSize bounds how many windows are materialized at once, so
	// arbitrarily long recordings stream through in constant memory.
	chunkBatchSize = 4
)

// State tracks model readiness.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// Result is a finished transcription with its provenance.
type Result struct {
	Text   string
	Source string
}

type Options struct {
	Model        string
	ModelDir     string
	Device       string
	AutoDownload bool
	NoProgress   bool
	Logger       *zap.Logger
}

type loadedModel struct {
	engine asr.Engine
	vocab  ctc.Vocabulary
	device asr.Device
}

// Service is the façade over the decoding pipeline. The zero value is not
// usable; construct with New. A single Service is shared across callers and
// loads the acoustic model at most once.
type Service struct {
	opts Options

	// loadFn is swapped in tests to avoid touching real model artifacts.
	loadFn func(ctx context.Context) (loadedModel, error)

	mu    sync.Mutex
	state State
	model loadedModel
}

func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Service{opts: opts}
	s.loadFn = s.loadModel
	return s
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) Ready() bool {
	return s.State() == StateReady
}

// Device reports the resolved inference device, or "" before the model is
// loaded.
func (s *Service) Device() asr.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.device
}

// Preload forces the Unloaded->Ready transition ahead of the first request.
func (s *Service) Preload(ctx context.Context) error {
	_, err := s.ensureLoaded(ctx)
	return err
}

// ensureLoaded performs the at-most-once model load. The mutex spans the
// whole transition, so concurrent first calls block and observe a single
// load; a failed load resets to Unloaded and is retried by the next call.
func (s *Service) ensureLoaded(ctx context.Context) (loadedModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady {
		return s.model, nil
	}

	s.state = StateLoading
	started := time.Now()
	model, err := s.loadFn(ctx)
	if err != nil {
		s.state = StateUnloaded
		return loadedModel{}, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	s.model = model
	s.state = StateReady
	s.opts.Logger.Info("acoustic model ready",
		zap.String("device", string(model.device)),
		zap.Int("vocabulary", model.vocab.Size()),
		zap.Duration("elapsed", time.Since(started)))
	return model, nil
}

func (s *Service) loadModel(ctx context.Context) (loadedModel, error) {
	modelDir, err := platform.ResolveModelDir(s.opts.ModelDir)
	if err != nil {
		return loadedModel{}, err
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return loadedModel{}, fmt.Errorf("create model directory %s: %w", modelDir, err)
	}

	resolved, err := asr.ResolveModel(s.opts.Model, modelDir)
	if err != nil {
		return loadedModel{}, err
	}

	if resolved.NeedsDownload {
		if !s.opts.AutoDownload {
			return loadedModel{}, fmt.Errorf("model %q is missing at %s; run `medasr setup` or enable auto-download", resolved.Name, modelDir)
		}
		if err := s.downloadArtifacts(ctx, resolved); err != nil {
			return loadedModel{}, err
		}
	}

	device, err := asr.ResolveDevice(s.opts.Device)
	if err != nil {
		return loadedModel{}, err
	}

	vocab, err := ctc.LoadVocabulary(resolved.VocabPath)
	if err != nil {
		return loadedModel{}, err
	}

	engine, err := asr.NewRunnerEngine(resolved.WeightsPath, device, s.opts.Logger)
	if err != nil {
		return loadedModel{}, err
	}

	return loadedModel{engine: engine, vocab: vocab, device: device}, nil
}

func (s *Service) downloadArtifacts(ctx context.Context, resolved asr.ResolvedModel) error {
	artifacts := []struct {
		url, dest, sha string
	}{
		{resolved.WeightsURL, resolved.WeightsPath, resolved.WeightsSHA256},
		{resolved.VocabURL, resolved.VocabPath, resolved.VocabSHA256},
	}
	for _, a := range artifacts {
		if _, err := os.Stat(a.dest); err == nil {
			continue
		}
		s.opts.Logger.Info("downloading model artifact", zap.String("model", resolved.Name), zap.String("destination", a.dest))
		if err := download.DownloadFile(ctx, download.Options{
			URL:            a.url,
			Destination:    a.dest,
			ExpectedSHA256: a.sha,
			NoProgress:     s.opts.NoProgress,
			Logger:         s.opts.Logger,
		}); err != nil {
			return fmt.Errorf("download %s: %w", filepath.Base(a.dest), err)
		}
	}
	return nil
}

// Transcribe decodes a whole recording in one model pass. Validation
// failures from the Audio Loader surface before any model work happens.
func (s *Service) Transcribe(ctx context.Context, path string) (Result, error) {
	wave, err := audio.Load(path)
	if err != nil {
		return Result{}, err
	}

	model, err := s.ensureLoaded(ctx)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	logits, err := model.engine.Infer(ctx, wave)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	text := ctc.Decode(logits.ArgMax(), model.vocab)
	s.opts.Logger.Info("transcription finished",
		zap.String("audio", path),
		zap.Float64("seconds", wave.Seconds()),
		zap.Int("characters", len(text)),
		zap.Duration("elapsed", time.Since(started)))
	return Result{Text: text, Source: filepath.Base(path)}, nil
}

// TranscribeChunked decodes a long recording as overlapping windows and
// stitches the per-window texts. Windows stream through the engine in small
// batches; a recording shorter than one chunk decodes identically to
// Transcribe. Non-positive arguments select the 20 s / 2 s defaults.
func (s *Service) TranscribeChunked(ctx context.Context, path string, chunkSeconds, strideSeconds float64) (Result, error) {
	if chunkSeconds <= 0 {
		chunkSeconds = DefaultChunkSeconds
	}
	if strideSeconds <= 0 {
		strideSeconds = DefaultStrideSeconds
	}
	// The guard runs in sample space: second values within one sample
	// period of each other truncate to the same count, which would leave
	// the window step at zero and the span sequence infinite.
	chunkSamples := int(chunkSeconds * audio.SampleRate)
	strideSamples := int(strideSeconds * audio.SampleRate)
	if strideSamples >= chunkSamples {
		return Result{}, fmt.Errorf("stride (%.4fs) must be shorter than chunk (%.4fs) by at least one sample", strideSeconds, chunkSeconds)
	}

	wave, err := audio.Load(path)
	if err != nil {
		return Result{}, err
	}

	model, err := s.ensureLoaded(ctx)
	if err != nil {
		return Result{}, err
	}

	budget := overlapWordBudget(strideSeconds)

	started := time.Now()
	var text string
	chunks := 0
	batch := make([]audio.Waveform, 0, chunkBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := model.engine.InferBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInference, err)
		}
		for _, logits := range results {
			text = mergeTranscripts(text, ctc.Decode(logits.ArgMax(), model.vocab), budget)
		}
		batch = batch[:0]
		return nil
	}

	for sp := range chunkSpans(len(wave.Samples), chunkSamples, strideSamples) {
		chunks++
		batch = append(batch, wave.Slice(sp.start, sp.end))
		if len(batch) == chunkBatchSize {
			if err := flush(); err != nil {
				return Result{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return Result{}, err
	}

	s.opts.Logger.Info("chunked transcription finished",
		zap.String("audio", path),
		zap.Float64("seconds", wave.Seconds()),
		zap.Int("chunks", chunks),
		zap.Int("characters", len(text)),
		zap.Duration("elapsed", time.Since(started)))
	return Result{Text: text, Source: filepath.Base(path)}, nil
}
