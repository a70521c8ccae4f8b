package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the rate the acoustic model expects. Input at other rates
// is resampled on load.
const SampleRate = 16000

const (
	minDuration   = 100 * time.Millisecond
	silentPeakMin = 0.001
)

var (
	ErrEmptyAudio = errors.New("audio contains no samples")
	ErrTooShort   = errors.New("audio too short")
	ErrSilent     = errors.New("audio appears to be silent")
	ErrInvalidWAV = errors.New("invalid wav file")
)

// Waveform is a mono 16 kHz signal normalized to [-1, 1].
type Waveform struct {
	Samples []float32
}

func (w Waveform) Duration() time.Duration {
	return time.Duration(float64(len(w.Samples)) / SampleRate * float64(time.Second))
}

func (w Waveform) Seconds() float64 {
	return float64(len(w.Samples)) / SampleRate
}

// Peak returns the maximum absolute amplitude.
func (w Waveform) Peak() float64 {
	var peak float64
	for _, s := range w.Samples {
		if abs := math.Abs(float64(s)); abs > peak {
			peak = abs
		}
	}
	return peak
}

// Slice returns the sub-waveform covering [start, end) sample offsets,
// clipped to the waveform's bounds. The backing array is shared.
func (w Waveform) Slice(start, end int) Waveform {
	start = max(start, 0)
	end = min(end, len(w.Samples))
	if start >= end {
		return Waveform{}
	}
	return Waveform{Samples: w.Samples[start:end]}
}

// Load reads a WAV file into a validated mono 16 kHz waveform. Multi-channel
// input is downmixed and other sample rates are resampled; container or codec
// conversion is the job of the upstream audio pipeline.
func Load(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	wave := fromPCMBuffer(buf)
	if buf.Format != nil && buf.Format.SampleRate != SampleRate && buf.Format.SampleRate > 0 {
		wave = Resample(wave, buf.Format.SampleRate, SampleRate)
	}

	if err := Validate(wave); err != nil {
		return Waveform{}, err
	}
	return wave, nil
}

// Validate applies the pre-inference checks in cheapest-first order so a bad
// recording is rejected before any model work happens.
func Validate(w Waveform) error {
	if len(w.Samples) == 0 {
		return ErrEmptyAudio
	}
	if d := w.Duration(); d < minDuration {
		return fmt.Errorf("%w (%.2fs); record at least 0.5 seconds", ErrTooShort, d.Seconds())
	}
	if peak := w.Peak(); peak < silentPeakMin {
		return fmt.Errorf("%w (peak amplitude %.5f)", ErrSilent, peak)
	}
	return nil
}

// fromPCMBuffer normalizes integer PCM to [-1, 1] float32 and downmixes
// multi-channel audio by averaging interleaved frames.
func fromPCMBuffer(buf *gaudio.IntBuffer) Waveform {
	if buf == nil || len(buf.Data) == 0 {
		return Waveform{}
	}

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += normalizeSample(buf.Data[i*channels+c], bitDepth)
		}
		samples = append(samples, float32(sum/float64(channels)))
	}
	return Waveform{Samples: samples}
}

func normalizeSample(value, bitDepth int) float64 {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		return (float64(value) - 128.0) / 128.0
	case 16:
		return float64(value) / 32768.0
	case 24:
		return float64(value) / 8388608.0
	case 32:
		return float64(value) / 2147483648.0
	default:
		return float64(value) / float64(int64(1)<<(bitDepth-1))
	}
}

// Resample converts a waveform between sample rates by linear interpolation.
// Good enough for speech destined for a 16 kHz acoustic model.
func Resample(w Waveform, fromRate, toRate int) Waveform {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(w.Samples) == 0 {
		return w
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Round(float64(len(w.Samples)) / ratio))
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(w.Samples)-1 {
			out[i] = w.Samples[len(w.Samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = w.Samples[idx]*(1-frac) + w.Samples[idx+1]*frac
	}
	return Waveform{Samples: out}
}
