package transcription

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yegors/audiokit/pkg/logger"
)

// NoResultMessage is logged when there is nothing to save.
const NoResultMessage = "No transcription result to save."

// Result is the decoded text of one run plus what produced it.
type Result struct {
	Segments       []string
	Model          string
	Backend        string
	SampleRate     int
	AudioDuration  time.Duration
	ProcessingTime time.Duration
}

// Text joins the segments into one string.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the result carries no text.
func (r *Result) Empty() bool {
	return r.Text() == ""
}

type jsonResult struct {
	Transcription string `json:"transcription"`
}

// SaveTranscriptionToJSON writes {"transcription": text} to path. A nil or
// empty result is not an error: the diagnostic is logged and no file is
// created.
func SaveTranscriptionToJSON(result *Result, path string, log *logger.Logger) error {
	if result.Empty() {
		log.Warn(NoResultMessage, logger.String("path", path))
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonResult{Transcription: result.Text()}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	log.Info("Saved transcription", logger.String("path", path))
	return nil
}
