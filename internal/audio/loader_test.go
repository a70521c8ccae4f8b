package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func TestLoadRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, nil, SampleRate, 1)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrEmptyAudio)
}

func TestLoadRejectsTooShortAudio(t *testing.T) {
	t.Parallel()

	// Three samples at 16 kHz is well under the 0.1 s minimum.
	path := writeWAV(t, []int{16384, 16384, 16384}, SampleRate, 1)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrTooShort)
	require.Contains(t, err.Error(), "0.5 seconds")
}

func TestLoadRejectsSilentAudio(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, make([]int, SampleRate), SampleRate, 1)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrSilent)
}

func TestLoadAcceptsSpeechLikeSignal(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, sineSamples(SampleRate, 0.25), SampleRate, 1)

	wave, err := Load(path)
	require.NoError(t, err)
	require.Len(t, wave.Samples, SampleRate)
	require.InDelta(t, 1.0, wave.Seconds(), 0.001)
	require.Greater(t, wave.Peak(), 0.2)
	require.Less(t, wave.Peak(), 0.3)
}

func TestLoadDownmixesStereo(t *testing.T) {
	t.Parallel()

	mono := sineSamples(SampleRate, 0.25)
	stereo := make([]int, 0, len(mono)*2)
	for _, s := range mono {
		stereo = append(stereo, s, s)
	}
	path := writeWAV(t, stereo, SampleRate, 2)

	wave, err := Load(path)
	require.NoError(t, err)
	require.Len(t, wave.Samples, len(mono))
}

func TestLoadResamplesTo16k(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, sineSamples(8000, 0.25), 8000, 1)

	wave, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, SampleRate, len(wave.Samples), 2)
}

func TestLoadRejectsNonWAVFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestValidateChecksEmptyBeforeDurationBeforeSilence(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(Waveform{}), ErrEmptyAudio)

	// Short and silent: the duration check wins.
	short := Waveform{Samples: make([]float32, 3)}
	require.ErrorIs(t, Validate(short), ErrTooShort)

	silent := Waveform{Samples: make([]float32, SampleRate)}
	require.ErrorIs(t, Validate(silent), ErrSilent)

	loud := Waveform{Samples: make([]float32, SampleRate)}
	loud.Samples[0] = 0.5
	require.NoError(t, Validate(loud))
}

func TestResampleIdentity(t *testing.T) {
	t.Parallel()

	wave := Waveform{Samples: []float32{0.1, 0.2, 0.3}}
	require.Equal(t, wave, Resample(wave, SampleRate, SampleRate))
}

func TestWaveformSliceClipsToBounds(t *testing.T) {
	t.Parallel()

	wave := Waveform{Samples: []float32{1, 2, 3, 4}}
	require.Equal(t, []float32{2, 3}, wave.Slice(1, 3).Samples)
	require.Equal(t, []float32{3, 4}, wave.Slice(2, 10).Samples)
	require.Empty(t, wave.Slice(5, 10).Samples)
}

func writeWAV(t *testing.T, samples []int, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func sineSamples(n int, amplitude float64) []int {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(SampleRate)))
	}
	return samples
}
