// Package asr wraps the external CTC acoustic model: resolving model
// artifacts, selecting an inference device, and running the bundled engine
// binary that maps waveforms to per-timestep logit matrices.
package asr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Logits is one row of per-symbol scores per model output timestep.
type Logits [][]float32

var (
	ErrInvalidLogits = errors.New("invalid logits file")

	logitsMagic = [4]byte{'M', 'A', 'S', 'R'}
)

const (
	logitsVersion = 1

	// Caps keep a corrupt header from triggering a giant allocation.
	maxFrames    = 1 << 22
	maxVocabSize = 1 << 18
)

// Frames returns the number of timesteps.
func (l Logits) Frames() int {
	return len(l)
}

// ArgMax returns the best-scoring symbol ID per timestep.
func (l Logits) ArgMax() []int {
	ids := make([]int, len(l))
	for t, row := range l {
		best := 0
		bestScore := float32(math.Inf(-1))
		for i, score := range row {
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
		ids[t] = best
	}
	return ids
}

// ReadLogitsFile decodes the engine's output format: a 16-byte header
// (magic, version, frame count, vocabulary size) followed by frame-major
// little-endian float32 scores.
func ReadLogitsFile(path string) (Logits, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open logits: %w", err)
	}
	defer f.Close()
	return readLogits(f)
}

func readLogits(r io.Reader) (Logits, error) {
	var header struct {
		Magic   [4]byte
		Version uint32
		Frames  uint32
		Vocab   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLogits, err)
	}
	if header.Magic != logitsMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidLogits, header.Magic)
	}
	if header.Version != logitsVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidLogits, header.Version)
	}
	if header.Frames > maxFrames || header.Vocab > maxVocabSize || (header.Vocab == 0 && header.Frames > 0) {
		return nil, fmt.Errorf("%w: implausible shape %dx%d", ErrInvalidLogits, header.Frames, header.Vocab)
	}

	logits := make(Logits, header.Frames)
	for t := range logits {
		row := make([]float32, header.Vocab)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("%w: truncated at frame %d: %v", ErrInvalidLogits, t, err)
		}
		logits[t] = row
	}
	return logits, nil
}

// WriteLogitsFile encodes logits in the engine's output format. The engine
// binary is the usual producer; this writer backs tests and tooling.
func WriteLogitsFile(path string, logits Logits) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create logits: %w", err)
	}
	defer f.Close()

	vocab := 0
	if len(logits) > 0 {
		vocab = len(logits[0])
	}

	header := struct {
		Magic   [4]byte
		Version uint32
		Frames  uint32
		Vocab   uint32
	}{logitsMagic, logitsVersion, uint32(len(logits)), uint32(vocab)}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write logits header: %w", err)
	}

	for t, row := range logits {
		if len(row) != vocab {
			return fmt.Errorf("ragged logits: frame %d has %d scores, want %d", t, len(row), vocab)
		}
		if err := binary.Write(f, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("write logits frame %d: %w", t, err)
		}
	}
	return nil
}
