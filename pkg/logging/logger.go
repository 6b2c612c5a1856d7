// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for CrewScope components.
//
// The logger is a thin layer over Go's standard slog package with
// multi-destination output:
//
//   - Default: stderr output for CLI compatibility (follows Unix conventions)
//   - Optional: JSON file logging with automatic directory creation
//
// # Basic Usage
//
// For simple CLI usage with stderr output:
//
//	logger := logging.Default()
//	logger.Info("discovery started", "root", projectRoot)
//	logger.Error("file skipped", "path", path, "error", err)
//
// # File Logging
//
// To enable file logging alongside stderr:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.crewscope/logs",  // Supports ~ expansion
//	    Service: "discovery",
//	})
//	defer logger.Close()  // Important: flushes and closes file
//
// This creates log files named `{service}_{date}.log` in JSON format.
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: Development troubleshooting, verbose output
//   - Info: Normal operations (scan start/end, entity discovered)
//   - Warn: Recoverable issues (skipped file, malformed config)
//   - Error: Operation failures (but the scan continues)
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog.Logger is
// thread-safe and mutable state is protected by a mutex.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the minimum severity a message needs to be emitted.
//
// Ordering matches slog: Debug < Info < Warn < Error. Anything below
// the configured level is dropped before formatting.
type Level int

const (
	// LevelDebug is per-file tracing, normally off. The --verbose flag
	// enables it.
	LevelDebug Level = iota

	// LevelInfo covers normal scan progress.
	LevelInfo

	// LevelWarn is for potentially problematic situations the system
	// can continue past (skipped files, fallback values).
	LevelWarn

	// LevelError marks a failed operation. The scan itself keeps going;
	// hard failures are returned as errors, not logged and swallowed.
	LevelError
)

// String returns the human-readable name of the level.
//
// Returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls where and how the Logger writes.
//
// The zero value is usable: text-formatted Info+ messages on stderr,
// no file output.
type Config struct {
	// Level is the minimum severity to emit. Default: LevelInfo.
	Level Level

	// LogDir, when non-empty, adds a JSON log file named
	// "{Service}_{YYYY-MM-DD}.log" under this directory alongside the
	// stderr stream. The directory is created (0750) on first use and
	// a leading ~ expands to the home directory.
	LogDir string

	// Service is attached to every record as the "service" attribute
	// and names the log file. The CLI passes "crewscope"; library
	// embedders typically pass "discovery" or "watch". Empty omits
	// the attribute.
	Service string

	// JSON switches the stderr stream from text to JSON. The file
	// stream is always JSON; this only affects what a terminal sees.
	JSON bool

	// Quiet drops the stderr stream entirely. Combined with LogDir
	// this gives file-only logging; combined without it, silence.
	Quiet bool
}

// Logger provides structured logging with multi-destination output.
//
// Logger wraps slog.Logger with simultaneous stderr and file output
// and proper cleanup via Close(). Always call Close() when done with
// a logger that has file logging configured:
//
//	logger := logging.New(config)
//	defer logger.Close()
//
// Use With() to create a logger with additional attributes:
//
//	fileLogger := logger.With("path", filePath)
//	fileLogger.Info("analyzing")  // Includes path
type Logger struct {
	// slog is the underlying structured logger
	slog *slog.Logger

	// config stores the configuration for reference
	config Config

	// file is the optional log file handle (nil if file logging disabled)
	file *os.File

	// mu protects mutable state (file)
	mu sync.Mutex
}

// New creates a new Logger with the given configuration.
//
// This constructor sets up all logging destinations based on config:
// a stderr handler (unless Quiet is true) and a file handler (if
// LogDir is set). The returned Logger must be closed with Close() to
// release the file handle.
func New(config Config) *Logger {
	var handlers []slog.Handler

	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	if !config.Quiet {
		var stderrHandler slog.Handler
		if config.JSON {
			stderrHandler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			stderrHandler = slog.NewTextHandler(os.Stderr, opts)
		}
		handlers = append(handlers, stderrHandler)
	}

	logger := &Logger{
		config: config,
	}

	if config.LogDir != "" {
		logDir := expandPath(config.LogDir)
		if err := os.MkdirAll(logDir, 0750); err == nil {
			serviceName := config.Service
			if serviceName == "" {
				serviceName = "crewscope"
			}
			filename := fmt.Sprintf("%s_%s.log", serviceName, time.Now().Format("2006-01-02"))
			logPath := filepath.Join(logDir, filename)

			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
			if err == nil {
				logger.file = file
				// Always use JSON for file logs (machine-parseable)
				handlers = append(handlers, slog.NewJSONHandler(file, opts))
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		// Fallback: at least write to stderr
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns a logger with default settings.
//
// The default configuration writes Info+ messages to stderr in text
// format with the "crewscope" service attribute. This is suitable for
// library callers that don't configure logging explicitly.
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "crewscope",
	})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a new Logger with additional attributes.
//
// The returned logger includes all attributes from the parent plus
// the new ones. The parent logger is not modified.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
		file:   l.file, // Share file handle
	}
}

// Slog returns the underlying slog.Logger.
//
// This provides direct access to slog features not exposed by this
// wrapper, such as LogAttrs or custom Record handling.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes and closes the log file, if one is open.
//
// Returns the first error encountered during cleanup.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	l.file = nil
	return nil
}

// multiHandler fans out log records to multiple slog handlers.
//
// This enables simultaneous output to stderr and file with
// potentially different formats (text vs JSON).
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands ~ to the user's home directory.
//
// Examples:
//   - "~/.crewscope/logs" -> "/home/user/.crewscope/logs"
//   - "/var/log" -> "/var/log" (unchanged)
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
