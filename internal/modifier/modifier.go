// Package modifier changes the speed and volume of an audio file.
package modifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yegors/audiokit/internal/audio"
	"github.com/yegors/audiokit/pkg/logger"
)

// ErrInvalidFactor is returned for speed or volume factors that cannot be
// applied.
var ErrInvalidFactor = errors.New("invalid factor")

// Loader reads an audio file into a buffer at its native rate.
type Loader interface {
	Load(ctx context.Context, path string) (*audio.Buffer, error)
}

// Stretcher changes the duration of a buffer without changing its pitch.
type Stretcher interface {
	TimeStretch(ctx context.Context, buf *audio.Buffer, rate float64) (*audio.Buffer, error)
}

// Options are the parameters of one modification run.
type Options struct {
	InputPath    string
	OutputPath   string
	SpeedFactor  float64
	VolumeFactor float64
}

// Stats describes a finished run.
type Stats struct {
	SampleRate     int
	InputDuration  time.Duration
	OutputDuration time.Duration
	Peak           float32
}

// Modifier runs load → time-stretch → scale → write.
type Modifier struct {
	loader    Loader
	stretcher Stretcher
	logger    *logger.Logger
}

// New creates a new modifier
func New(loader Loader, stretcher Stretcher, log *logger.Logger) *Modifier {
	return &Modifier{
		loader:    loader,
		stretcher: stretcher,
		logger:    log.Named("modifier"),
	}
}

// Validate checks the factors before any I/O happens.
func (o Options) Validate() error {
	if o.InputPath == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if o.SpeedFactor <= 0 || math.IsNaN(o.SpeedFactor) || math.IsInf(o.SpeedFactor, 0) {
		return fmt.Errorf("%w: speed factor must be positive and finite, got %v", ErrInvalidFactor, o.SpeedFactor)
	}
	if math.IsNaN(o.VolumeFactor) || math.IsInf(o.VolumeFactor, 0) {
		return fmt.Errorf("%w: volume factor must be finite, got %v", ErrInvalidFactor, o.VolumeFactor)
	}
	return nil
}

// Modify writes a copy of opts.InputPath to opts.OutputPath with its speed
// and volume changed. The output keeps the input's sampling rate.
func (m *Modifier) Modify(ctx context.Context, opts Options) (*Stats, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	buf, err := m.loader.Load(ctx, opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}

	m.logger.Info("Loaded input",
		logger.String("path", opts.InputPath),
		logger.Int("sample_rate", buf.SampleRate),
		logger.Duration("duration", buf.Duration()))

	stretched := buf
	if opts.SpeedFactor != 1.0 {
		stretched, err = m.stretcher.TimeStretch(ctx, buf, opts.SpeedFactor)
		if err != nil {
			return nil, fmt.Errorf("failed to change speed: %w", err)
		}
	}

	out := stretched.Scale(opts.VolumeFactor)
	out.SampleRate = buf.SampleRate

	peak := out.Peak()
	if peak > 1 {
		m.logger.Warn("Output exceeds full scale and will saturate when encoded",
			logger.Float64("peak", float64(peak)),
			logger.Float64("volume_factor", opts.VolumeFactor))
	}

	if err := audio.WriteWAVFile(opts.OutputPath, out); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}

	stats := &Stats{
		SampleRate:     out.SampleRate,
		InputDuration:  buf.Duration(),
		OutputDuration: out.Duration(),
		Peak:           peak,
	}

	m.logger.Info("Wrote output",
		logger.String("path", opts.OutputPath),
		logger.Float64("speed_factor", opts.SpeedFactor),
		logger.Float64("volume_factor", opts.VolumeFactor),
		logger.Duration("duration", stats.OutputDuration))

	return stats, nil
}
