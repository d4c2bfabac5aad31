// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the mpcodec
// binary.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/mpcodec/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" when not injected, which occurs during
// development builds and test runs. [Version] is set manually for
// releases.
//
// [Info] formats a one-line summary, [Full] adds the Go toolchain and
// platform, and [Current] returns the same data as a [Build] value for
// JSON output.
package version
