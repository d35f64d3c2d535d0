// Package audio holds the in-memory audio representation plus the codecs and
// external tools used to load, transform and store it.
package audio

import (
	"fmt"
	"time"
)

// Buffer is a mono sequence of float samples at a fixed sampling rate.
// Samples are nominally in [-1, 1] but nothing enforces that range.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// NewBuffer creates a buffer, validating the sampling rate.
func NewBuffer(samples []float32, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Scale returns a copy with every sample multiplied by gain. No clipping or
// limiting is applied.
func (b *Buffer) Scale(gain float64) *Buffer {
	out := make([]float32, len(b.Samples))
	g := float32(gain)
	for i, s := range b.Samples {
		out[i] = s * g
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate}
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, s := range b.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := make([]float32, len(b.Samples))
	copy(out, b.Samples)
	return &Buffer{Samples: out, SampleRate: b.SampleRate}
}
