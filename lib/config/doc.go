// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the multipart
// codec and the mpcodec command.
//
// Configuration is loaded from a single file specified by either the
// MPCODEC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. Files ending in .json or .jsonc are read as JSONC (comments
// and trailing commas allowed); everything else is read as YAML.
//
// The file is merged over [Default] and checked with
// [Config.Validate] before it is returned. ${VAR} and ${VAR:-default}
// patterns are expanded in the boundary token only.
//
// Key exports:
//
//   - [Config] -- boundary, subtype, part terminator, charset, chunk
//     size, parser limits, content encoding and digest
//   - [Default] -- returns a Config with the codec defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Options] and [Config.PartOptions] -- the values as
//     multipart options
package config
