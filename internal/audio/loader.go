package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/audiokit/pkg/logger"
)

// Decoder decodes arbitrary audio formats; *FFmpeg implements it.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Buffer, error)
}

// Loader reads audio files into buffers. PCM WAV is decoded in-process;
// everything else goes through the fallback decoder.
type Loader struct {
	fallback Decoder
	logger   *logger.Logger
}

// NewLoader creates a loader. fallback may be nil, in which case only PCM
// WAV files can be loaded.
func NewLoader(fallback Decoder, log *logger.Logger) *Loader {
	return &Loader{
		fallback: fallback,
		logger:   log.Named("loader"),
	}
}

// Load decodes path into a mono buffer at its native sampling rate.
func (l *Loader) Load(ctx context.Context, path string) (*Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := l.loadWAV(path)
		if err == nil {
			l.logger.Debug("Loaded WAV",
				logger.String("path", path),
				logger.Int("sample_rate", buf.SampleRate),
				logger.Duration("duration", buf.Duration()))
			return buf, nil
		}
		if !errors.Is(err, ErrUnsupportedWAV) {
			return nil, err
		}
		l.logger.Debug("WAV encoding not handled natively, using ffmpeg", logger.String("path", path))
	}

	if l.fallback == nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, ErrFFmpegNotFound)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return l.fallback.Decode(ctx, path)
}

func (l *Loader) loadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}
