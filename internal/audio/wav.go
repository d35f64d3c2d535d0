package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output files are written as 16-bit PCM mono, the default subtype most WAV
// writers pick for float input.
const (
	outputBitDepth = 16
	wavFormatPCM   = 1
)

// ErrUnsupportedWAV is returned for WAV files go-audio cannot decode directly
// (IEEE float, A-law, ...). Callers fall back to ffmpeg for those.
var ErrUnsupportedWAV = errors.New("unsupported WAV encoding")

// DecodeWAV decodes a PCM WAV stream into a mono Buffer at the file's
// native sampling rate. Multi-channel audio is averaged down to mono.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	samples := intsToMono(pcm.Data, channels, int(d.BitDepth))
	return NewBuffer(samples, int(d.SampleRate))
}

// intsToMono normalizes integer PCM to [-1, 1] and averages interleaved
// channels.
func intsToMono(data []int, channels, bitDepth int) []float32 {
	scale := float64(int64(1) << uint(bitDepth-1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c] - offset)
		}
		out[i] = float32(sum / float64(channels) / scale)
	}
	return out
}

// WriteWAV encodes buf as 16-bit PCM mono. Values outside [-1, 1] saturate
// at the PCM limits.
func WriteWAV(w io.WriteSeeker, buf *Buffer) error {
	if buf.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", buf.SampleRate)
	}

	enc := wav.NewEncoder(w, buf.SampleRate, outputBitDepth, 1, wavFormatPCM)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = floatToPCM16(s)
	}

	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: outputBitDepth,
	}

	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}

// WriteWAVFile writes buf to path, replacing any existing file.
func WriteWAVFile(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteWAV(f, buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// pcm16Scale matches the divisor intsToMono uses, so 16-bit input survives a
// decode/encode cycle unchanged.
const pcm16Scale = 1 << 15

func floatToPCM16(s float32) int {
	v := math.Round(float64(s) * pcm16Scale)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	case math.IsNaN(v):
		return 0
	}
	return int(v)
}
