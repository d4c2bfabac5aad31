// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/commands"
)

// Exit statuses. Usage errors are distinguished from failures so that
// scripts can tell a bad invocation from a bad message.
const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(exitStatus(commands.Root().Execute(os.Args[1:]), os.Stderr))
}

// exitStatus maps the error returned by the command tree to a process
// exit status, printing it to stderr unless it carries its own status.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	fmt.Fprintf(stderr, "mpcodec: %v\n", err)
	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) && toolErr.Category == cli.CategoryValidation {
		return exitUsage
	}
	return exitFailure
}
