// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel_Unknown(t *testing.T) {
	// Unknown levels fall back to Info.
	got := Level(42).toSlogLevel()
	if got != LevelInfo.toSlogLevel() {
		t.Errorf("toSlogLevel(42) = %v, want Info", got)
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	if logger.slog == nil {
		t.Fatal("New() returned logger with nil slog")
	}
	if logger.file != nil {
		t.Error("New() with no LogDir should not open a file")
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "testsvc",
		Quiet:   true,
	})

	logger.Info("hello file", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "testsvc_") {
		t.Errorf("log file %q does not carry service prefix", entries[0].Name())
	}

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Errorf("log file missing message, got: %s", content)
	}
	if !strings.Contains(string(content), `"service":"testsvc"`) {
		t.Errorf("log file missing service attribute, got: %s", content)
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "with", Quiet: true})
	defer logger.Close()

	child := logger.With("scan_id", "abc123")
	if child == logger {
		t.Fatal("With() must return a new logger")
	}
	child.Info("scoped message")

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	content, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !strings.Contains(string(content), "abc123") {
		t.Errorf("child logger attribute missing from output: %s", content)
	}
}

func TestLogger_Close_Idempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	got := expandPath("~/logs")
	want := filepath.Join(home, "logs")
	if got != want {
		t.Errorf("expandPath(~/logs) = %q, want %q", got, want)
	}

	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q, want unchanged", got)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Service != "crewscope" {
		t.Errorf("Default() service = %q, want crewscope", logger.config.Service)
	}
	if logger.config.Level != LevelInfo {
		t.Errorf("Default() level = %v, want Info", logger.config.Level)
	}
}
