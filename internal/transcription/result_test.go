package transcription

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yegors/audiokit/pkg/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.Wrap(zap.New(core)), logs
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		want     string
		wantNone bool
	}{
		{"nil", nil, "", true},
		{"no segments", &Result{}, "", true},
		{"blank segments", &Result{Segments: []string{" ", ""}}, "", true},
		{"single", &Result{Segments: []string{" Hello there. "}}, "Hello there.", false},
		{"joined", &Result{Segments: []string{" One.", " Two."}}, "One. Two.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
			if tt.result.Empty() != tt.wantNone {
				t.Errorf("Empty() = %v, want %v", tt.result.Empty(), tt.wantNone)
			}
		})
	}
}

func TestSaveTranscriptionToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	log, _ := observedLogger()

	text := "Grüß Gott, <tom> & 東京"
	if err := SaveTranscriptionToJSON(&Result{Segments: []string{text}}, path, log); err != nil {
		t.Fatalf("SaveTranscriptionToJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	if !strings.Contains(string(data), text) {
		t.Errorf("Expected raw UTF-8 text in file, got %s", data)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded["transcription"] != text {
		t.Errorf("Expected {\"transcription\": %q}, got %v", text, decoded)
	}
}

func TestSaveTranscriptionToJSONNoResult(t *testing.T) {
	for name, result := range map[string]*Result{"nil": nil, "empty": {Segments: []string{""}}} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "result.json")
			log, logs := observedLogger()

			if err := SaveTranscriptionToJSON(result, path, log); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("Expected no file to be created")
			}
			if logs.FilterMessage(NoResultMessage).Len() != 1 {
				t.Errorf("Expected diagnostic %q, got %v", NoResultMessage, logs.All())
			}
		})
	}
}

func TestSaveTranscriptionToJSONBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "result.json")
	log, _ := observedLogger()
	if err := SaveTranscriptionToJSON(&Result{Segments: []string{"hi"}}, path, log); err == nil {
		t.Error("Expected error for unwritable path")
	}
}
