package ast

import "errors"

// File size constants for input validation.
const (
	// DefaultMaxFileSize is the maximum file size the parser will accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold at which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// ErrFileTooLarge is returned when input content exceeds the maximum file size.
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// ErrInvalidContent is returned when input content is not valid UTF-8.
var ErrInvalidContent = errors.New("content is not valid UTF-8")
