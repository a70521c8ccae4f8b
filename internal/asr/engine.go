package asr

import (
	"context"

	"github.com/zameerb1/medasr/internal/audio"
)

// Engine is the inference entry point the decoding pipeline depends on.
// Implementations must be deterministic for identical weights and input and
// must never mutate model state. The same engine serves both the single-shot
// path (Infer) and the chunked path (InferBatch), so the two only differ in
// segmentation.
type Engine interface {
	Infer(ctx context.Context, wave audio.Waveform) (Logits, error)
	InferBatch(ctx context.Context, waves []audio.Waveform) ([]Logits, error)
}
