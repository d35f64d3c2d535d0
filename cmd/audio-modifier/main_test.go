package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"--input_file", "in.wav"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	if opts.inputFile != "in.wav" {
		t.Errorf("Expected input in.wav, got %s", opts.inputFile)
	}
	if opts.outputFile != "output.wav" {
		t.Errorf("Expected default output output.wav, got %s", opts.outputFile)
	}
	if opts.speedFactor != 1.0 {
		t.Errorf("Expected default speed 1.0, got %v", opts.speedFactor)
	}
	if opts.volumeFactor != 1.0 {
		t.Errorf("Expected default volume 1.0, got %v", opts.volumeFactor)
	}
	if opts.configPath != "" || opts.logLevel != "" {
		t.Errorf("Expected empty config and log level, got %q %q", opts.configPath, opts.logLevel)
	}
}

func TestParseFlagsAll(t *testing.T) {
	opts, err := parseFlags([]string{
		"--input_file=in.mp3",
		"--output_file", "out.wav",
		"--speed_factor", "1.5",
		"--volume_factor", "0.25",
		"--config", "audiokit.toml",
		"--log_level", "debug",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	if opts.outputFile != "out.wav" || opts.speedFactor != 1.5 || opts.volumeFactor != 0.25 {
		t.Errorf("Unexpected options: %+v", opts)
	}
	if opts.configPath != "audiokit.toml" || opts.logLevel != "debug" {
		t.Errorf("Unexpected config/log options: %+v", opts)
	}
}

func TestParseFlagsMissingInput(t *testing.T) {
	var out bytes.Buffer
	if _, err := parseFlags([]string{"--speed_factor", "2"}, &out); err == nil {
		t.Fatal("Expected error when --input_file is missing")
	}
	if !strings.Contains(out.String(), "--input_file") {
		t.Errorf("Expected usage to mention --input_file, got %q", out.String())
	}
}

func TestParseFlagsBadFloat(t *testing.T) {
	if _, err := parseFlags([]string{"--input_file", "in.wav", "--speed_factor", "fast"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for non-numeric speed factor")
	}
}

func TestParseFlagsHelp(t *testing.T) {
	_, err := parseFlags([]string{"-h"}, &bytes.Buffer{})
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp, got %v", err)
	}
}

func TestRunExitCodes(t *testing.T) {
	if code := run([]string{}); code != 2 {
		t.Errorf("Expected exit code 2 without --input_file, got %d", code)
	}
	if code := run([]string{"--input_file", "/nonexistent/in.wav", "--log_level", "error", "--output_file", t.TempDir() + "/out.wav"}); code != 1 {
		t.Errorf("Expected exit code 1 for missing input file, got %d", code)
	}
}
