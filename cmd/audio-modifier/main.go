// Command audio-modifier changes the playback speed and volume of an audio
// file and writes the result as 16-bit mono WAV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/yegors/audiokit/internal/audio"
	"github.com/yegors/audiokit/internal/config"
	"github.com/yegors/audiokit/internal/modifier"
	"github.com/yegors/audiokit/pkg/logger"
)

type options struct {
	inputFile    string
	outputFile   string
	speedFactor  float64
	volumeFactor float64
	configPath   string
	logLevel     string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("audio-modifier", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.inputFile, "input_file", "", "Path to the input audio file (required)")
	fs.StringVar(&opts.outputFile, "output_file", "output.wav", "Path to save the modified audio file")
	fs.Float64Var(&opts.speedFactor, "speed_factor", 1.0, "Playback speed factor; 1.0 keeps the original speed")
	fs.Float64Var(&opts.volumeFactor, "volume_factor", 1.0, "Volume gain factor; 1.0 keeps the original volume")
	fs.StringVar(&opts.configPath, "config", "", "Path to an optional TOML configuration file")
	fs.StringVar(&opts.logLevel, "log_level", "", "Log level override (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.inputFile == "" {
		fmt.Fprintln(output, "the following arguments are required: --input_file")
		fs.Usage()
		return nil, errors.New("missing --input_file")
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	_ = godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg.ApplyEnv()
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	log = log.WithRunID(uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ffmpeg := audio.NewFFmpeg(audio.FFmpegConfig{
		Path:      cfg.FFmpeg.Path,
		ProbePath: cfg.FFmpeg.ProbePath,
		Timeout:   cfg.FFmpeg.Timeout(),
	}, log)
	if err := ffmpeg.Available(); err != nil {
		// PCM WAV at speed 1.0 still works without ffmpeg
		log.Warn("ffmpeg not available", logger.Error(err))
	}

	mod := modifier.New(audio.NewLoader(ffmpeg, log), ffmpeg, log)
	stats, err := mod.Modify(ctx, modifier.Options{
		InputPath:    opts.inputFile,
		OutputPath:   opts.outputFile,
		SpeedFactor:  opts.speedFactor,
		VolumeFactor: opts.volumeFactor,
	})
	if err != nil {
		log.Error("Audio modification failed", logger.Error(err))
		return 1
	}

	log.Info("Modified audio saved",
		logger.String("path", opts.outputFile),
		logger.Int("sample_rate", stats.SampleRate),
		logger.Duration("input_duration", stats.InputDuration),
		logger.Duration("output_duration", stats.OutputDuration))
	return 0
}
