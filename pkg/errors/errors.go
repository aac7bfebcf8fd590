// Package errors provides structured error types for livedot.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and preview server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The document engine raises a small, fixed taxonomy:
//   - IO_ERROR: a document could not be read or written
//   - PARSE_ERROR: the graph engine rejected the document text
//   - LAYOUT_ERROR: the configured layout engine could not lay the graph out
//   - RENDER_ERROR: the requested output format could not be produced
//   - ATTRIBUTE_NOT_FOUND: strict lookup of an absent or empty attribute
//   - FILE_LOCKED: the backing file is mid-write by another process
//
// Validation failures use the INVALID_* codes.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeAttributeNotFound, "attribute %q not set", name)
//	if errors.Is(err, errors.ErrCodeAttributeNotFound) {
//	    // Handle missing attribute
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Document engine errors
	ErrCodeIO                Code = "IO_ERROR"
	ErrCodeParse             Code = "PARSE_ERROR"
	ErrCodeLayout            Code = "LAYOUT_ERROR"
	ErrCodeRender            Code = "RENDER_ERROR"
	ErrCodeAttributeNotFound Code = "ATTRIBUTE_NOT_FOUND"
	ErrCodeFileLocked        Code = "FILE_LOCKED"
	ErrCodeDisposed          Code = "DISPOSED"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// The outermost coded error wins, so a LAYOUT_ERROR wrapping an IO_ERROR
// reports LAYOUT_ERROR only.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsTransient reports whether err describes a condition expected to clear by
// itself, such as a file another process still holds open for writing.
//
// FILE_LOCKED and IO_ERROR are both transient. Sharing violations surface as
// a handful of different errno values depending on the platform, and a file
// replaced by rename is briefly absent, so any I/O failure on reopen is
// retried rather than matching one specific code.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case ErrCodeFileLocked, ErrCodeIO:
		return true
	case "":
		return isLockErrno(err)
	}
	return false
}

// isLockErrno matches raw errno values that indicate the file is in use.
func isLockErrno(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case syscall.EBUSY, syscall.EAGAIN, syscall.EACCES, syscall.ETXTBSY:
		return true
	}
	return false
}
