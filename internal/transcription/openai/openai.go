// Package openai transcribes audio with the OpenAI speech-to-text API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yegors/audiokit/internal/audio"
	"github.com/yegors/audiokit/pkg/logger"
)

// Config configures the remote backend.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string // e.g. "whisper-1"
	Language   string // ISO-639-1; "" or "auto" lets the API detect it
	SampleRate int    // rate of the uploaded audio
	Timeout    time.Duration
	MaxRetries int
	// ChunkDuration bounds each upload; 0 or anything longer than
	// MaxChunkDuration(SampleRate) is capped to fit the upload limit.
	ChunkDuration time.Duration
}

// The API rejects uploads over 25 MB; leave headroom for multipart framing.
const (
	maxUploadBytes = 24 << 20
	wavHeaderBytes = 44
	bytesPerSample = 2
)

// MaxChunkDuration is the longest 16-bit mono WAV at sampleRate that fits in
// one upload.
func MaxChunkDuration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := (maxUploadBytes - wavHeaderBytes) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Recognizer uploads audio as WAV and returns the transcript.
type Recognizer struct {
	client  openai.Client
	chunker *audio.Chunker
	config  Config
	logger  *logger.Logger
}

// New creates the backend. The API key is required.
func New(config Config, log *logger.Logger) (*Recognizer, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai api key is not set (config [openai].api_key or OPENAI_API_KEY)")
	}
	if config.Model == "" {
		config.Model = string(openai.AudioModelWhisper1)
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if limit := MaxChunkDuration(config.SampleRate); config.ChunkDuration <= 0 || config.ChunkDuration > limit {
		config.ChunkDuration = limit
	}
	chunker, err := audio.NewChunker(config.SampleRate, config.ChunkDuration)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &Recognizer{
		client:  openai.NewClient(opts...),
		chunker: chunker,
		config:  config,
		logger:  log.Named("openai"),
	}, nil
}

// Name returns the backend name.
func (r *Recognizer) Name() string {
	return "openai"
}

// SampleRate returns 0: the upload carries its own rate.
func (r *Recognizer) SampleRate() int {
	return 0
}

// Transcribe uploads samples as WAV, one request per chunk, and returns one
// segment per non-empty chunk transcript.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32) ([]string, error) {
	chunks := r.chunker.Split(samples)
	if len(chunks) > 1 {
		r.logger.Info("Splitting audio for upload",
			logger.Int("chunks", len(chunks)),
			logger.Duration("chunk_duration", r.chunker.ChunkDuration()))
	}

	var segments []string
	for i, chunk := range chunks {
		text, err := r.transcribeChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if text != "" {
			segments = append(segments, text)
		}
	}
	return segments, nil
}

func (r *Recognizer) transcribeChunk(ctx context.Context, samples []float32) (string, error) {
	tmp, err := os.CreateTemp("", "audiokit-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := audio.WriteWAV(tmp, &audio.Buffer{Samples: samples, SampleRate: r.config.SampleRate}); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  tmp,
		Model: openai.AudioModel(r.config.Model),
	}
	if lang := r.config.Language; lang != "" && lang != "auto" {
		params.Language = openai.String(lang)
	}

	start := time.Now()
	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	r.logger.Debug("Transcription response",
		logger.String("model", r.config.Model),
		logger.Duration("latency", time.Since(start)))

	return strings.TrimSpace(resp.Text), nil
}

// Close is a no-op; the HTTP client holds no model.
func (r *Recognizer) Close() error {
	return nil
}
