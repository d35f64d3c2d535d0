// Package whisper runs whisper.cpp models through the official Go bindings.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/yegors/audiokit/internal/models"
	"github.com/yegors/audiokit/pkg/logger"
)

// Options tune decoding.
type Options struct {
	Language string // "auto" enables language detection
	Threads  uint   // 0 keeps the library default
}

// RequiredSampleRate is the only input rate whisper models accept.
func RequiredSampleRate() int {
	return int(whispercpp.SampleRate)
}

// Recognizer implements transcription.Recognizer on top of whisper.cpp.
type Recognizer struct {
	mu      sync.Mutex
	model   whispercpp.Model
	options Options
	logger  *logger.Logger
}

// New loads ggml weights from modelPath.
func New(modelPath string, options Options, log *logger.Logger) (*Recognizer, error) {
	model, err := whispercpp.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model %s: %w", modelPath, err)
	}

	// English-only models reject SetLanguage outright; "" leaves it unset.
	language, err := models.WhisperLanguage(model.IsMultilingual(), options.Language)
	if err != nil {
		model.Close()
		return nil, err
	}
	options.Language = language

	r := &Recognizer{
		model:   model,
		options: options,
		logger:  log.Named("whisper"),
	}
	r.logger.Info("Model loaded",
		logger.String("path", modelPath),
		logger.Bool("multilingual", model.IsMultilingual()),
		logger.String("language", language))
	return r, nil
}

// Name returns the backend name.
func (r *Recognizer) Name() string {
	return "whisper"
}

// SampleRate is fixed by the whisper architecture.
func (r *Recognizer) SampleRate() int {
	return RequiredSampleRate()
}

// Transcribe decodes samples and returns one string per whisper segment.
// Special tokens never appear in segment text.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return nil, errors.New("whisper model is closed")
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return nil, err
	}

	wctx.SetTranslate(false)
	if r.options.Threads > 0 {
		wctx.SetThreads(r.options.Threads)
	}
	if r.options.Language != "" {
		if err := wctx.SetLanguage(r.options.Language); err != nil {
			return nil, fmt.Errorf("unsupported language %q: %w", r.options.Language, err)
		}
	}

	// whisper.cpp cannot be interrupted mid-run; check before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := wctx.Process(samples, nil); err != nil {
		return nil, err
	}

	var segments []string
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			segments = append(segments, text)
		}
	}

	r.logger.Debug("Decoded segments", logger.Int("count", len(segments)))
	return segments, nil
}

// Close frees the model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	return err
}
