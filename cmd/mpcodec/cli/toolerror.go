// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory tells scripts what kind of failure a command hit.
type ErrorCategory string

const (
	// CategoryValidation: bad flags, arguments or boundary values.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: an input file or directory is missing.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryInternal: I/O failures and malformed multipart input.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError carries a category and an optional hint alongside the
// underlying error. errors.Is and errors.As see through it.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is printed after a blank line, below the message.
	Hint string
}

func newToolError(category ErrorCategory, format string, args []any) *ToolError {
	return &ToolError{Category: category, Err: fmt.Errorf(format, args...)}
}

func (e *ToolError) Error() string {
	message := e.Err.Error()
	if e.Hint != "" {
		message += "\n\n" + e.Hint
	}
	return message
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint attaches a suggested next step.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation formats a CategoryValidation error.
func Validation(format string, args ...any) *ToolError {
	return newToolError(CategoryValidation, format, args)
}

// NotFound formats a CategoryNotFound error.
func NotFound(format string, args ...any) *ToolError {
	return newToolError(CategoryNotFound, format, args)
}

// Internal formats a CategoryInternal error.
func Internal(format string, args ...any) *ToolError {
	return newToolError(CategoryInternal, format, args)
}
