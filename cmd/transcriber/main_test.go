package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yegors/audiokit/internal/config"
	"github.com/yegors/audiokit/internal/storage/sqlite"
	"github.com/yegors/audiokit/internal/transcription"
	"github.com/yegors/audiokit/pkg/logger"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"--input_file", "speech.wav"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	if opts.modelName != "openai/whisper-small" {
		t.Errorf("Expected default model openai/whisper-small, got %s", opts.modelName)
	}
	if opts.modelSamplingRate != 16000 {
		t.Errorf("Expected default sampling rate 16000, got %d", opts.modelSamplingRate)
	}
	if opts.outputJSON != "result.json" {
		t.Errorf("Expected default output result.json, got %s", opts.outputJSON)
	}
	if opts.backend != "" || opts.language != "" || opts.historyDB != "" {
		t.Errorf("Expected config-driven options to be empty, got %+v", opts)
	}
}

func TestParseFlagsMissingInput(t *testing.T) {
	var out bytes.Buffer
	if _, err := parseFlags([]string{"--model_name", "openai/whisper-tiny"}, &out); err == nil {
		t.Fatal("Expected error when --input_file is missing")
	}
	if !strings.Contains(out.String(), "--input_file") {
		t.Errorf("Expected usage to mention --input_file, got %q", out.String())
	}
}

func TestParseFlagsBadRate(t *testing.T) {
	if _, err := parseFlags([]string{"--input_file", "a.wav", "--model_sampling_rate", "16k"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for non-integer sampling rate")
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantBackend string
		wantLang    string
		wantDB      string
		wantErr     bool
	}{
		{
			name:        "config defaults kept",
			args:        []string{"--input_file", "a.wav"},
			wantBackend: "whisper",
			wantLang:    "auto",
		},
		{
			name:        "flags win",
			args:        []string{"--input_file", "a.wav", "--backend", "vosk", "--language", "ru", "--history_db", "h.db"},
			wantBackend: "vosk",
			wantLang:    "ru",
			wantDB:      "h.db",
		},
		{
			name:    "unknown backend",
			args:    []string{"--input_file", "a.wav", "--backend", "sphinx"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			args:    []string{"--input_file", "a.wav", "--log_level", "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("parseFlags failed: %v", err)
			}

			cfg := config.Default()
			err = opts.applyOverrides(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyOverrides failed: %v", err)
			}

			if cfg.Models.Backend != tt.wantBackend {
				t.Errorf("Expected backend %s, got %s", tt.wantBackend, cfg.Models.Backend)
			}
			if cfg.Models.Language != tt.wantLang {
				t.Errorf("Expected language %s, got %s", tt.wantLang, cfg.Models.Language)
			}
			if cfg.History.DBPath != tt.wantDB {
				t.Errorf("Expected history db %q, got %q", tt.wantDB, cfg.History.DBPath)
			}
		})
	}
}

func TestRecordHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	opts := &options{inputFile: "speech.wav", outputJSON: "out.json"}
	result := &transcription.Result{
		Segments:       []string{"hello", "world"},
		Model:          "openai/whisper-small",
		Backend:        "whisper",
		SampleRate:     16000,
		AudioDuration:  2 * time.Second,
		ProcessingTime: 500 * time.Millisecond,
	}

	if err := recordHistory(path, "run-42", opts, result, logger.NewNop()); err != nil {
		t.Fatalf("recordHistory failed: %v", err)
	}

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	storage, err := sqlite.NewTranscriptionStorage(db, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTranscriptionStorage failed: %v", err)
	}

	records, err := storage.GetRecentTranscriptions(1)
	if err != nil {
		t.Fatalf("GetRecentTranscriptions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.RunID != "run-42" || r.Content != "hello world" || r.OutputJSON != "out.json" {
		t.Errorf("Unexpected record: %+v", r)
	}
}

func TestRunMissingInputExitCode(t *testing.T) {
	if code := run([]string{"--output_json", "x.json"}); code != 2 {
		t.Errorf("Expected exit code 2 without --input_file, got %d", code)
	}
}

func TestParseFlagsListHistory(t *testing.T) {
	opts, err := parseFlags([]string{"--list_history", "5", "--history_db", "h.db"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Expected --list_history to work without --input_file: %v", err)
	}
	if opts.listHistory != 5 {
		t.Errorf("Expected list_history 5, got %d", opts.listHistory)
	}

	if _, err := parseFlags([]string{"--list_history", "-1"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for negative --list_history")
	}
}

func TestListHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	log := logger.NewNop()

	runs := []struct {
		runID string
		input string
	}{
		{"r1", "a.wav"},
		{"r2", "b.wav"},
		{"r3", "a.wav"},
		{"r4", "a.wav"},
	}
	for _, r := range runs {
		result := &transcription.Result{Segments: []string{r.runID}, Model: "m", Backend: "whisper", SampleRate: 16000}
		if err := recordHistory(path, r.runID, &options{inputFile: r.input, outputJSON: "out.json"}, result, log); err != nil {
			t.Fatalf("recordHistory failed: %v", err)
		}
	}

	tests := []struct {
		name  string
		limit int
		input string
		want  []string
	}{
		{"recent", 2, "", []string{"r4", "r3"}},
		{"all", 10, "", []string{"r4", "r3", "r2", "r1"}},
		{"by input file", 2, "a.wav", []string{"r4", "r3"}},
		{"unknown input file", 5, "c.wav", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := listHistory(path, tt.limit, tt.input, &out, log); err != nil {
				t.Fatalf("listHistory failed: %v", err)
			}

			var records []sqlite.TranscriptionRecord
			if err := json.Unmarshal(out.Bytes(), &records); err != nil {
				t.Fatalf("output is not a JSON array: %v\n%s", err, out.String())
			}
			if len(records) != len(tt.want) {
				t.Fatalf("Expected %d records, got %d", len(tt.want), len(records))
			}
			for i, r := range records {
				if r.RunID != tt.want[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.want[i], r.RunID)
				}
			}
		})
	}
}

func TestListHistoryRequiresDatabase(t *testing.T) {
	if err := listHistory("", 5, "", &bytes.Buffer{}, logger.NewNop()); err == nil {
		t.Error("Expected error without a history database")
	}
	missing := filepath.Join(t.TempDir(), "missing.db")
	if err := listHistory(missing, 5, "", &bytes.Buffer{}, logger.NewNop()); err == nil {
		t.Error("Expected error for a missing history database")
	}
}
