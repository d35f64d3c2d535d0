// Package vosk runs Kaldi-based Vosk models.
package vosk

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	voskapi "github.com/alphacep/vosk-api/go"
	"github.com/yegors/audiokit/pkg/logger"
)

// chunkSamples is how many samples are fed to the recognizer per call.
const chunkSamples = 8000

// Recognizer implements transcription.Recognizer with Vosk.
type Recognizer struct {
	mu         sync.Mutex
	model      *voskapi.VoskModel
	recognizer *voskapi.VoskRecognizer
	logger     *logger.Logger
}

type voskResult struct {
	Text string `json:"text"`
}

// New loads the model directory at modelPath for audio at sampleRate.
func New(modelPath string, sampleRate int, log *logger.Logger) (*Recognizer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk model not found: %w", err)
	}

	voskapi.SetLogLevel(-1)

	model, err := voskapi.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vosk model %s: %w", modelPath, err)
	}

	rec, err := voskapi.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}

	r := &Recognizer{
		model:      model,
		recognizer: rec,
		logger:     log.Named("vosk"),
	}
	r.logger.Info("Model loaded", logger.String("path", modelPath), logger.Int("sample_rate", sampleRate))
	return r, nil
}

// Name returns the backend name.
func (r *Recognizer) Name() string {
	return "vosk"
}

// SampleRate returns 0: the recognizer is built for the configured rate.
func (r *Recognizer) SampleRate() int {
	return 0
}

// Transcribe feeds PCM16 chunks to the recognizer and collects every
// finalized utterance.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer == nil {
		return nil, errors.New("vosk recognizer is closed")
	}
	defer r.recognizer.Reset()

	pcm := toPCM16(samples)

	var segments []string
	for off := 0; off < len(pcm); off += chunkSamples * 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := off + chunkSamples*2
		if end > len(pcm) {
			end = len(pcm)
		}
		if r.recognizer.AcceptWaveform(pcm[off:end]) > 0 {
			text, err := parseResult(r.recognizer.Result())
			if err != nil {
				return nil, err
			}
			if text != "" {
				segments = append(segments, text)
			}
		}
	}

	text, err := parseResult(r.recognizer.FinalResult())
	if err != nil {
		return nil, err
	}
	if text != "" {
		segments = append(segments, text)
	}
	return segments, nil
}

// Close frees the recognizer and the model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer != nil {
		r.recognizer.Free()
		r.recognizer = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func parseResult(raw string) (string, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("failed to parse vosk result: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// toPCM16 converts float samples to little-endian 16-bit PCM. Vosk only
// takes integer audio, so samples are clamped to full scale here.
func toPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}
