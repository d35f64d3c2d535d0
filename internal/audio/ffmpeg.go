package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/audiokit/pkg/logger"
)

// ErrFFmpegNotFound is returned when the configured ffmpeg binary cannot be
// located.
var ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

// atempo only accepts factors in [0.5, 2.0] on older ffmpeg builds, so larger
// changes are expressed as a chain of filters.
const (
	minTempo = 0.5
	maxTempo = 2.0
)

// FFmpegConfig locates the binaries used by FFmpeg.
type FFmpegConfig struct {
	Path      string
	ProbePath string
	Timeout   time.Duration
}

// FFmpeg runs ffmpeg/ffprobe as external processes, streaming raw float
// samples through pipes.
type FFmpeg struct {
	config FFmpegConfig
	logger *logger.Logger
}

// ProbeInfo is the subset of ffprobe output we care about.
type ProbeInfo struct {
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// NewFFmpeg creates an ffmpeg runner
func NewFFmpeg(config FFmpegConfig, log *logger.Logger) *FFmpeg {
	if config.Path == "" {
		config.Path = "ffmpeg"
	}
	if config.ProbePath == "" {
		config.ProbePath = "ffprobe"
	}
	return &FFmpeg{
		config: config,
		logger: log.Named("ffmpeg"),
	}
}

// Available reports whether both binaries can be found.
func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.config.Path, f.config.ProbePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s", ErrFFmpegNotFound, bin)
		}
	}
	return nil
}

// Probe reads the sampling rate, channel count and duration of the first
// audio stream in path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels:format=duration",
		"-of", "json",
		path,
	}

	out, err := f.run(ctx, f.config.ProbePath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream in %s", path)
	}

	rate, err := strconv.Atoi(parsed.Streams[0].SampleRate)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q in %s", parsed.Streams[0].SampleRate, path)
	}

	info := &ProbeInfo{SampleRate: rate, Channels: parsed.Streams[0].Channels}
	if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	return info, nil
}

// Decode converts any format ffmpeg understands into a mono buffer at the
// file's native sampling rate.
func (f *FFmpeg) Decode(ctx context.Context, path string) (*Buffer, error) {
	info, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(info.SampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	}

	out, err := f.run(ctx, f.config.Path, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	f.logger.Debug("Decoded audio",
		logger.String("path", path),
		logger.Int("sample_rate", info.SampleRate),
		logger.Int("channels", info.Channels),
		logger.Duration("duration", info.Duration))

	return NewBuffer(bytesToFloats(out), info.SampleRate)
}

// TimeStretch changes the duration of buf by 1/rate without changing pitch.
func (f *FFmpeg) TimeStretch(ctx context.Context, buf *Buffer, rate float64) (*Buffer, error) {
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return nil, fmt.Errorf("time-stretch rate must be positive, got %v", rate)
	}
	if buf.Len() == 0 {
		return buf.Clone(), nil
	}

	filter := AtempoFilter(rate)
	f.logger.Debug("Time-stretching", logger.Float64("rate", rate), logger.String("filter", filter))

	out, err := f.filter(ctx, buf, filter, buf.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("time-stretch: %w", err)
	}
	return out, nil
}

// Resample converts buf to targetRate.
func (f *FFmpeg) Resample(ctx context.Context, buf *Buffer, targetRate int) (*Buffer, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("target sample rate must be positive, got %d", targetRate)
	}
	if buf.SampleRate == targetRate || buf.Len() == 0 {
		return &Buffer{Samples: append([]float32(nil), buf.Samples...), SampleRate: targetRate}, nil
	}

	f.logger.Debug("Resampling",
		logger.Int("from", buf.SampleRate),
		logger.Int("to", targetRate))

	out, err := f.filter(ctx, buf, "aresample="+strconv.Itoa(targetRate), targetRate)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return out, nil
}

// filter pipes buf through an ffmpeg audio filter graph.
func (f *FFmpeg) filter(ctx context.Context, buf *Buffer, graph string, outRate int) (*Buffer, error) {
	args := []string{
		"-v", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-af", graph,
		"-ar", strconv.Itoa(outRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	}

	out, err := f.run(ctx, f.config.Path, args, floatsToBytes(buf.Samples))
	if err != nil {
		return nil, err
	}
	return NewBuffer(bytesToFloats(out), outRate)
}

func (f *FFmpeg) run(ctx context.Context, bin string, args []string, stdin []byte) ([]byte, error) {
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, bin)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", bin, err)
	}
	return stdout.Bytes(), nil
}

// AtempoFilter builds an atempo chain whose product equals rate, keeping each
// stage within the range every ffmpeg version accepts.
func AtempoFilter(rate float64) string {
	var stages []string
	for rate > maxTempo {
		stages = append(stages, "atempo="+formatFactor(maxTempo))
		rate /= maxTempo
	}
	for rate < minTempo {
		stages = append(stages, "atempo="+formatFactor(minTempo))
		rate /= minTempo
	}
	stages = append(stages, "atempo="+formatFactor(rate))
	return strings.Join(stages, ",")
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatsToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func bytesToFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
