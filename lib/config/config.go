// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "MPCODEC_CONFIG"

// Part terminators accepted in PartTerminator.
const (
	TerminatorCRLF = "crlf"
	TerminatorLF   = "lf"
)

// Config is the codec configuration shared by the decoder, the encoder
// and the CLI.
type Config struct {
	// Boundary is the token used when encoding. Empty selects
	// multipart.DefaultBoundary; "random" generates one per message.
	Boundary string `yaml:"boundary" json:"boundary"`

	// Subtype is the multipart subtype of encoded messages.
	// Default: form-data
	Subtype string `yaml:"subtype" json:"subtype"`

	// PartTerminator is the line break written after each part's
	// content: "crlf" or "lf".
	// Default: crlf
	PartTerminator string `yaml:"part_terminator" json:"part_terminator"`

	// DefaultCharset applies to text content without a charset
	// parameter.
	// Default: utf-8
	DefaultCharset string `yaml:"default_charset" json:"default_charset"`

	// ChunkSize is the size of chunks read from sources and produced
	// from in-memory payloads.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Limits bounds what the parser accepts.
	Limits multipart.Limits `yaml:"limits" json:"limits"`

	// ContentEncoding is applied to encoded parts: identity, zstd or
	// lz4.
	ContentEncoding string `yaml:"content_encoding" json:"content_encoding"`

	// Digest adds a BLAKE3 Content-Digest to encoded parts.
	Digest bool `yaml:"digest" json:"digest"`
}

// Default returns the default configuration. Load and LoadFile merge
// the file over it.
func Default() *Config {
	return &Config{
		Subtype:         "form-data",
		PartTerminator:  TerminatorCRLF,
		DefaultCharset:  entity.DefaultCharset,
		ChunkSize:       flow.DefaultChunkSize,
		Limits:          multipart.DefaultLimits(),
		ContentEncoding: string(entity.EncodingIdentity),
	}
}

// Load loads configuration from the file named by MPCODEC_CONFIG.
//
// There are no fallbacks: if the variable is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your mpcodec config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path. Files ending in .json or
// .jsonc are parsed as JSONC; anything else as YAML.
//
// The only expansion performed is ${VAR} and ${VAR:-default} in the
// boundary token.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.Boundary = expandVars(cfg.Boundary)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// loadFile merges one file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Boundary != "" && c.Boundary != "random" {
		if _, err := multipart.NewBoundary(c.Boundary); err != nil {
			errs = append(errs, fmt.Errorf("boundary: %w", err))
		}
	}

	if c.Subtype == "" || strings.ContainsAny(c.Subtype, "/; \t") {
		errs = append(errs, fmt.Errorf("subtype %q is not a valid multipart subtype", c.Subtype))
	}

	terminators := []string{TerminatorCRLF, TerminatorLF}
	if !slices.Contains(terminators, c.PartTerminator) {
		errs = append(errs, fmt.Errorf("part_terminator must be one of: %v", terminators))
	}

	if !entity.SupportedCharset(c.DefaultCharset) {
		errs = append(errs, fmt.Errorf("default_charset %q is not supported", c.DefaultCharset))
	}

	if c.ChunkSize < 1 || c.ChunkSize > 16<<20 {
		errs = append(errs, fmt.Errorf("chunk_size must be between 1 and %d, got %d", 16<<20, c.ChunkSize))
	}

	if c.Limits.MaxHeaderLine < 0 || c.Limits.MaxHeaderBytes < 0 || c.Limits.MaxHeaders < 0 {
		errs = append(errs, errors.New("limits must not be negative (max_parts excepted)"))
	}
	if c.Limits.MaxHeaderLine > 0 && c.Limits.MaxHeaderBytes > 0 && c.Limits.MaxHeaderLine > c.Limits.MaxHeaderBytes {
		errs = append(errs, fmt.Errorf("limits.max_header_line (%d) exceeds limits.max_header_bytes (%d)",
			c.Limits.MaxHeaderLine, c.Limits.MaxHeaderBytes))
	}

	if _, err := entity.ParseContentEncoding(c.ContentEncoding); err != nil {
		errs = append(errs, fmt.Errorf("content_encoding: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Terminator returns the part terminator bytes.
func (c *Config) Terminator() string {
	if c.PartTerminator == TerminatorLF {
		return "\n"
	}
	return "\r\n"
}

// EncoderBoundary returns the boundary to encode with.
func (c *Config) EncoderBoundary() (multipart.Boundary, error) {
	switch c.Boundary {
	case "":
		return multipart.MustBoundary(multipart.DefaultBoundary), nil
	case "random":
		return multipart.RandomBoundary(), nil
	default:
		return multipart.NewBoundary(c.Boundary)
	}
}

// Encoding returns the configured content encoding.
func (c *Config) Encoding() entity.ContentEncoding {
	encoding, err := entity.ParseContentEncoding(c.ContentEncoding)
	if err != nil {
		return entity.EncodingIdentity
	}
	return encoding
}

// Registry returns an entity registry honoring the chunk size and
// default charset.
func (c *Config) Registry() *entity.Registry {
	return entity.NewDefaultRegistry(
		entity.WithChunkSize(c.ChunkSize),
		entity.WithDefaultCharset(c.DefaultCharset),
	)
}

// Options returns decoder and encoder options for this configuration.
func (c *Config) Options(logger *slog.Logger) []multipart.Option {
	options := []multipart.Option{
		multipart.WithRegistry(c.Registry()),
		multipart.WithLimits(c.Limits),
		multipart.WithSubtype(c.Subtype),
		multipart.WithPartTerminator(c.Terminator()),
		multipart.WithChunkSize(c.ChunkSize),
	}
	if logger != nil {
		options = append(options, multipart.WithLogger(logger))
	}
	return options
}

// PartOptions returns the per-part options implied by the content
// encoding and digest settings.
func (c *Config) PartOptions() []multipart.PartOption {
	var options []multipart.PartOption
	if encoding := c.Encoding(); encoding != entity.EncodingIdentity {
		options = append(options, multipart.WithContentEncoding(encoding))
	}
	if c.Digest {
		options = append(options, multipart.WithDigest())
	}
	return options
}
