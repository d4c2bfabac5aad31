// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the mpcodec binary.
//
// A [Command] tree is built in cmd/mpcodec/commands. [Command.Execute]
// walks it by name, parses the leaf's pflag flag set, and calls Run with
// a signal-aware context and a logger from [NewCommandLogger]. Help is
// printed for -h, --help, "help", or a group command invoked bare.
//
// Leaf commands declare their flags as a params struct:
//
//	type splitParams struct {
//		Output string `flag:"output,o" desc:"directory for the parts"`
//		Decode bool   `flag:"decode" desc:"undo Content-Encoding"`
//	}
//
// and bind it with [FlagsFromParams]. Embedding [JSONOutput] adds --json.
//
// Misspelled subcommands and flags get a "did you mean" suggestion
// chosen by edit distance.
//
// Errors returned from Run are usually [ToolError] values, which main
// maps to exit status 2 for validation failures and 1 otherwise. A
// command that has already reported its own failure returns
// [ExitError].
package cli
