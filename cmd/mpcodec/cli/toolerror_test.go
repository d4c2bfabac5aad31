// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestToolError_Error(t *testing.T) {
	err := Validation("missing required flag --output")
	if err.Error() != "missing required flag --output" {
		t.Errorf("Error() = %q", err.Error())
	}

	err.WithHint("Pass --output <directory>.")
	want := "missing required flag --output\n\nPass --output <directory>."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestToolError_Categories(t *testing.T) {
	tests := []struct {
		err  *ToolError
		want ErrorCategory
	}{
		{Validation("bad"), CategoryValidation},
		{NotFound("missing"), CategoryNotFound},
		{Internal("broken"), CategoryInternal},
	}
	for _, test := range tests {
		if test.err.Category != test.want {
			t.Errorf("Category = %q, want %q", test.err.Category, test.want)
		}
	}
}

func TestToolError_Unwrap(t *testing.T) {
	err := NotFound("open input: %w", fs.ErrNotExist)
	wrapped := fmt.Errorf("split failed: %w", err)

	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	var toolErr *ToolError
	if !errors.As(wrapped, &toolErr) || toolErr.Category != CategoryNotFound {
		t.Errorf("errors.As = %v", toolErr)
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 3}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 3 {
		t.Errorf("ExitError does not report code 3")
	}
}
