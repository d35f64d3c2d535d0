// Command transcriber converts speech in an audio file to text and saves it
// as {"transcription": "..."} JSON.
package main

import (
	"context"
	"encoding/json"
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
	"github.com/yegors/audiokit/internal/models"
	"github.com/yegors/audiokit/internal/storage/sqlite"
	"github.com/yegors/audiokit/internal/transcription"
	"github.com/yegors/audiokit/internal/transcription/backends"
	"github.com/yegors/audiokit/pkg/logger"
)

type options struct {
	inputFile         string
	modelName         string
	modelSamplingRate int
	outputJSON        string
	backend           string
	language          string
	historyDB         string
	listHistory       int
	configPath        string
	logLevel          string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("transcriber", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.inputFile, "input_file", "", "Path to the input audio file (required)")
	fs.StringVar(&opts.modelName, "model_name", transcription.DefaultModelName, "Speech recognition model name or local model path")
	fs.IntVar(&opts.modelSamplingRate, "model_sampling_rate", transcription.DefaultSampleRate, "Sampling rate expected by the model")
	fs.StringVar(&opts.outputJSON, "output_json", "result.json", "Path to save the transcription JSON")
	fs.StringVar(&opts.backend, "backend", "", "Recognition backend: whisper, vosk or openai (default from config)")
	fs.StringVar(&opts.language, "language", "", "Spoken language code, or auto (default from config)")
	fs.StringVar(&opts.historyDB, "history_db", "", "SQLite database to record runs in (default from config, disabled if empty)")
	fs.IntVar(&opts.listHistory, "list_history", 0, "Print the N most recent history records as JSON and exit (filtered by --input_file if given)")
	fs.StringVar(&opts.configPath, "config", "", "Path to an optional TOML configuration file")
	fs.StringVar(&opts.logLevel, "log_level", "", "Log level override (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.listHistory < 0 {
		fmt.Fprintln(output, "--list_history must not be negative")
		return nil, fmt.Errorf("invalid --list_history %d", opts.listHistory)
	}
	if opts.inputFile == "" && opts.listHistory == 0 {
		fmt.Fprintln(output, "the following arguments are required: --input_file")
		fs.Usage()
		return nil, errors.New("missing --input_file")
	}
	return opts, nil
}

// applyOverrides lets command line flags win over the config file.
func (o *options) applyOverrides(cfg *config.Config) error {
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.backend != "" {
		cfg.Models.Backend = o.backend
	}
	if o.language != "" {
		cfg.Models.Language = o.language
	}
	if o.historyDB != "" {
		cfg.History.DBPath = o.historyDB
	}
	return cfg.Validate()
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
	if err := opts.applyOverrides(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		return 1
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

	runID := uuid.NewString()
	log = log.WithRunID(runID)

	if opts.listHistory > 0 {
		if err := listHistory(cfg.History.DBPath, opts.listHistory, opts.inputFile, os.Stdout, log); err != nil {
			log.Error("Failed to list history", logger.Error(err))
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := transcribe(ctx, runID, opts, cfg, log); err != nil {
		log.Error("Transcription failed", logger.Error(err))
		return 1
	}
	return 0
}

func transcribe(ctx context.Context, runID string, opts *options, cfg *config.Config, log *logger.Logger) error {
	var manager *models.Manager
	if cfg.Models.Backend != "openai" {
		var err error
		manager, err = models.NewManager(cfg.Models.CacheDir, cfg.Models.AutoDownload, nil, log)
		if err != nil {
			return err
		}
	}

	rec, err := backends.New(ctx, backends.Options{
		Backend:    cfg.Models.Backend,
		ModelName:  opts.modelName,
		SampleRate: opts.modelSamplingRate,
		Language:   cfg.Models.Language,
		Threads:    cfg.Models.Threads,
		OpenAI:     cfg.OpenAI,
	}, manager, log)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", opts.modelName, err)
	}

	ffmpeg := audio.NewFFmpeg(audio.FFmpegConfig{
		Path:      cfg.FFmpeg.Path,
		ProbePath: cfg.FFmpeg.ProbePath,
		Timeout:   cfg.FFmpeg.Timeout(),
	}, log)

	t, err := transcription.New(rec, audio.NewLoader(ffmpeg, log), ffmpeg, transcription.Config{
		ModelName:         opts.modelName,
		ModelSamplingRate: opts.modelSamplingRate,
	}, log)
	if err != nil {
		rec.Close()
		return err
	}
	defer t.Close()

	result, err := t.TranscribeFromFile(ctx, opts.inputFile)
	if err != nil {
		return err
	}

	if err := transcription.SaveTranscriptionToJSON(result, opts.outputJSON, log); err != nil {
		return err
	}

	if cfg.History.DBPath != "" && !result.Empty() {
		if err := recordHistory(cfg.History.DBPath, runID, opts, result, log); err != nil {
			// the JSON is already written; a broken history db is not fatal
			log.Warn("Failed to record transcription history", logger.Error(err))
		}
	}
	return nil
}

func recordHistory(path, runID string, opts *options, result *transcription.Result, log *logger.Logger) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	storage, err := sqlite.NewTranscriptionStorage(db, log)
	if err != nil {
		return err
	}

	_, err = storage.StoreTranscription(&sqlite.TranscriptionRecord{
		RunID:          runID,
		InputFile:      opts.inputFile,
		Model:          result.Model,
		Backend:        result.Backend,
		SampleRate:     result.SampleRate,
		Content:        result.Text(),
		AudioDuration:  result.AudioDuration,
		ProcessingTime: result.ProcessingTime,
		OutputJSON:     opts.outputJSON,
	})
	return err
}

// listHistory writes up to limit records, newest first, as a JSON array.
func listHistory(path string, limit int, inputFile string, w io.Writer, log *logger.Logger) error {
	if path == "" {
		return errors.New("no history database configured (--history_db or [history].db_path)")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("history database %s: %w", path, err)
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	storage, err := sqlite.NewTranscriptionStorage(db, log)
	if err != nil {
		return err
	}

	var records []*sqlite.TranscriptionRecord
	if inputFile != "" {
		records, err = storage.GetTranscriptionsByInputFile(inputFile)
		if len(records) > limit {
			records = records[:limit]
		}
	} else {
		records, err = storage.GetRecentTranscriptions(limit)
	}
	if err != nil {
		return err
	}
	if records == nil {
		records = []*sqlite.TranscriptionRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
