// Package backends builds the Recognizer selected on the command line.
package backends

import (
	"context"
	"fmt"

	"github.com/yegors/audiokit/internal/config"
	"github.com/yegors/audiokit/internal/models"
	"github.com/yegors/audiokit/internal/transcription"
	"github.com/yegors/audiokit/internal/transcription/openai"
	"github.com/yegors/audiokit/internal/transcription/vosk"
	"github.com/yegors/audiokit/internal/transcription/whisper"
	"github.com/yegors/audiokit/pkg/logger"
)

// Options select and configure one backend.
type Options struct {
	Backend    string
	ModelName  string
	SampleRate int
	Language   string
	Threads    int
	OpenAI     config.OpenAIConfig
}

// New loads the model for opts. Local backends resolve the model name through
// the registry and download weights into the manager's cache when allowed.
func New(ctx context.Context, opts Options, manager *models.Manager, log *logger.Logger) (transcription.Recognizer, error) {
	switch opts.Backend {
	case "whisper", "":
		// fail before a multi-hundred MB download
		if err := transcription.CheckSampleRate("whisper", whisper.RequiredSampleRate(), opts.SampleRate); err != nil {
			return nil, err
		}
		info, err := models.ResolveFor(opts.ModelName, models.EngineWhisper)
		if err != nil {
			return nil, err
		}
		if info.EnglishOnly() {
			if _, err := models.WhisperLanguage(false, opts.Language); err != nil {
				return nil, fmt.Errorf("%s: %w", info.ID, err)
			}
		}
		path, err := manager.Ensure(ctx, info)
		if err != nil {
			return nil, err
		}
		return whisper.New(path, whisper.Options{
			Language: opts.Language,
			Threads:  uint(opts.Threads),
		}, log)

	case "vosk":
		if err := transcription.CheckSampleRate("vosk", 0, opts.SampleRate); err != nil {
			return nil, err
		}
		info, err := models.ResolveFor(opts.ModelName, models.EngineVosk)
		if err != nil {
			return nil, err
		}
		path, err := manager.Ensure(ctx, info)
		if err != nil {
			return nil, err
		}
		return vosk.New(path, opts.SampleRate, log)

	case "openai":
		return openai.New(openai.Config{
			APIKey:     opts.OpenAI.APIKey,
			BaseURL:    opts.OpenAI.BaseURL,
			Model:      RemoteModel(opts.ModelName, opts.OpenAI.Model),
			Language:   opts.Language,
			SampleRate: opts.SampleRate,
			Timeout:    opts.OpenAI.Timeout(),
			MaxRetries: 2,
		}, log)

	default:
		return nil, fmt.Errorf("unknown backend %q (supported: whisper, vosk, openai)", opts.Backend)
	}
}

// RemoteModel picks the API model name. Names of local checkpoints such as
// "openai/whisper-small" map to the configured remote model; anything else
// is passed through unchanged.
func RemoteModel(name, fallback string) string {
	if name == "" {
		return fallback
	}
	if _, ok := models.Lookup(name); ok {
		return fallback
	}
	return name
}
