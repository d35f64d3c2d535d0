package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/audiokit/internal/audio"
	"github.com/yegors/audiokit/pkg/logger"
)

// DefaultModelName and DefaultSampleRate match the defaults of the CLI.
const (
	DefaultModelName  = "openai/whisper-small"
	DefaultSampleRate = 16000
)

// Recognizer turns mono float samples into decoded text segments. Feature
// extraction, generation and token decoding all happen inside the backend.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) ([]string, error)
	// SampleRate is the rate the model requires, or 0 if the backend
	// accepts whatever rate it was configured with.
	SampleRate() int
	Name() string
	Close() error
}

// Loader reads an audio file at its native sampling rate.
type Loader interface {
	Load(ctx context.Context, path string) (*audio.Buffer, error)
}

// Resampler converts a buffer to another sampling rate.
type Resampler interface {
	Resample(ctx context.Context, buf *audio.Buffer, targetRate int) (*audio.Buffer, error)
}

// Config represents the configuration for the transcription service
type Config struct {
	ModelName         string
	ModelSamplingRate int
}

// CheckSampleRate fails when a backend with a fixed input rate (required > 0)
// is configured for another rate.
func CheckSampleRate(backend string, required, configured int) error {
	if configured <= 0 {
		return fmt.Errorf("model sampling rate must be positive, got %d", configured)
	}
	if required != 0 && required != configured {
		return fmt.Errorf("%s models require %d Hz input, configured %d Hz", backend, required, configured)
	}
	return nil
}

// Transcriber owns one loaded model and transcribes files with it.
type Transcriber struct {
	recognizer Recognizer
	loader     Loader
	resampler  Resampler
	config     Config
	logger     *logger.Logger
}

// New wraps an already loaded recognizer. It fails if the configured rate
// disagrees with the rate the model was trained on.
func New(rec Recognizer, loader Loader, resampler Resampler, config Config, log *logger.Logger) (*Transcriber, error) {
	if err := CheckSampleRate(rec.Name(), rec.SampleRate(), config.ModelSamplingRate); err != nil {
		return nil, err
	}

	return &Transcriber{
		recognizer: rec,
		loader:     loader,
		resampler:  resampler,
		config:     config,
		logger:     log.Named("transcriber"),
	}, nil
}

// TranscribeFromFile loads path, resamples it to the model rate and runs the
// recognizer over it.
func (t *Transcriber) TranscribeFromFile(ctx context.Context, path string) (*Result, error) {
	buf, err := t.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}

	t.logger.Info("Loaded audio",
		logger.String("path", path),
		logger.Int("sample_rate", buf.SampleRate),
		logger.Duration("duration", buf.Duration()))

	return t.Transcribe(ctx, buf)
}

// Transcribe runs the recognizer over an in-memory buffer.
func (t *Transcriber) Transcribe(ctx context.Context, buf *audio.Buffer) (*Result, error) {
	start := time.Now()

	if buf.SampleRate != t.config.ModelSamplingRate {
		resampled, err := t.resampler.Resample(ctx, buf, t.config.ModelSamplingRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample audio: %w", err)
		}
		t.logger.Debug("Resampled audio",
			logger.Int("from", buf.SampleRate),
			logger.Int("to", resampled.SampleRate))
		buf = resampled
	}

	segments, err := t.recognizer.Transcribe(ctx, buf.Samples)
	if err != nil {
		return nil, fmt.Errorf("%s transcription failed: %w", t.recognizer.Name(), err)
	}

	result := &Result{
		Segments:       segments,
		Model:          t.config.ModelName,
		Backend:        t.recognizer.Name(),
		SampleRate:     buf.SampleRate,
		AudioDuration:  buf.Duration(),
		ProcessingTime: time.Since(start),
	}

	t.logger.Info("Transcription finished",
		logger.String("backend", result.Backend),
		logger.Int("segments", len(segments)),
		logger.Duration("processing_time", result.ProcessingTime))

	return result, nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	return t.recognizer.Close()
}
