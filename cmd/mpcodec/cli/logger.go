// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// LogLevelEnv overrides the level passed to [NewCommandLogger] with
// one of debug, info, warn or error.
const LogLevelEnv = "MPCODEC_LOG_LEVEL"

// NewCommandLogger logs to stderr: slog text when stderr is a terminal,
// JSON lines when it is piped.
func NewCommandLogger(level slog.Leveler) *slog.Logger {
	if value := os.Getenv(LogLevelEnv); value != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(value)); err == nil {
			level = parsed
		}
	}
	return newLogger(os.Stderr, IsTerminal(os.Stderr), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsTerminal reports whether file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
