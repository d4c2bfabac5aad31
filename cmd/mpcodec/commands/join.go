// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/config"
	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
	"github.com/spf13/pflag"
)

type joinParams struct {
	Config          string `flag:"config" desc:"configuration file (default: $MPCODEC_CONFIG)"`
	Boundary        string `flag:"boundary" desc:"boundary token, or 'random'"`
	Subtype         string `flag:"subtype" desc:"multipart subtype, e.g. form-data, mixed, related"`
	Encoding        string `flag:"encoding" desc:"content encoding for every part: identity, zstd, lz4"`
	Digest          bool   `flag:"digest" desc:"add a Content-Digest header to every part"`
	ContentTypeFile string `flag:"content-type-file" desc:"write the message Content-Type to this file instead of stderr"`
}

// joinInput is one file to attach and the form field it is sent as.
type joinInput struct {
	Name string
	Path string
}

func joinCommand() *cli.Command {
	var params joinParams
	return &cli.Command{
		Name:    "join",
		Summary: "Encode files as the parts of a multipart message",
		Description: `Write a multipart message to stdout with one part per file argument.
Each argument is a path, or field=path to choose the form field name.
The field name otherwise defaults to the file name without extension.

Part Content-Type is derived from the file extension. Files are opened
one at a time as the encoder reaches them and streamed in chunks, so
messages larger than memory can be produced. --encoding and --digest
buffer each part to compress or hash it.

The Content-Type of the message, including the boundary parameter, is
printed to stderr or written to --content-type-file.`,
		Usage: "mpcodec join [flags] [field=]file...",
		Examples: []cli.Example{
			{
				Description: "Build a form upload",
				Command:     "mpcodec join meta=meta.json upload=photo.jpg > body.bin",
			},
			{
				Description: "Build a zstd-compressed, digested mixed message",
				Command:     "mpcodec join --subtype mixed --encoding zstd --digest --boundary random a.log b.log",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("join", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return cli.Validation("join needs at least one file")
			}
			inputs, err := parseJoinInputs(args)
			if err != nil {
				return err
			}
			cfg, err := joinConfig(params)
			if err != nil {
				return err
			}
			boundary, err := cfg.EncoderBoundary()
			if err != nil {
				return cli.Validation("%w", err)
			}

			contentType, err := joinFiles(ctx, os.Stdout, inputs, boundary, cfg.PartOptions(), cfg.Options(logger)...)
			if err != nil {
				return err
			}
			logger.Debug("message joined", "parts", len(inputs), "boundary", boundary.Token())

			if params.ContentTypeFile != "" {
				return os.WriteFile(params.ContentTypeFile, []byte(contentType+"\n"), 0o644)
			}
			fmt.Fprintf(os.Stderr, "Content-Type: %s\n", contentType)
			return nil
		},
	}
}

// joinConfig loads the configuration and applies flag overrides.
func joinConfig(params joinParams) (*config.Config, error) {
	cfg, err := loadConfig(params.Config)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if params.Boundary != "" {
		cfg.Boundary = params.Boundary
	}
	if params.Subtype != "" {
		cfg.Subtype = params.Subtype
	}
	if params.Encoding != "" {
		cfg.ContentEncoding = params.Encoding
	}
	if params.Digest {
		cfg.Digest = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}

// parseJoinInputs splits field=path arguments and checks that every
// file exists before anything is written.
func parseJoinInputs(args []string) ([]joinInput, error) {
	inputs := make([]joinInput, 0, len(args))
	for _, arg := range args {
		name, path, found := strings.Cut(arg, "=")
		if !found || name == "" {
			path = arg
			base := filepath.Base(arg)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, cli.NotFound("%s: %w", path, err)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, cli.Validation("%s is a directory", path)
		}
		inputs = append(inputs, joinInput{Name: name, Path: path})
	}
	return inputs, nil
}

// joinFiles encodes inputs as one multipart message written to w and
// returns the message Content-Type. Each file is opened when the
// encoder requests its part and closed when its content ends.
func joinFiles(ctx context.Context, w io.Writer, inputs []joinInput, boundary multipart.Boundary, partOptions []multipart.PartOption, options ...multipart.Option) (string, error) {
	parts := flow.Generate(func() func() (*multipart.WritablePart, error) {
		index := 0
		return func() (*multipart.WritablePart, error) {
			if index == len(inputs) {
				return nil, io.EOF
			}
			input := inputs[index]
			index++
			file, err := os.Open(input.Path)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", input.Path, err)
			}
			fileOptions := append([]multipart.PartOption{
				multipart.WithName(input.Name),
				multipart.WithFilename(filepath.Base(input.Path)),
				multipart.WithContentType(contentTypeFor(input.Path)),
			}, partOptions...)
			return multipart.NewWritablePart(file, fileOptions...), nil
		}
	})

	encoder := multipart.NewEncoder(boundary, options...)
	if err := encoder.Attach(parts); err != nil {
		return "", err
	}
	if _, err := flow.WriteTo(ctx, w, encoder); err != nil {
		return "", err
	}
	return encoder.ContentType(), nil
}

func contentTypeFor(path string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}
	return entity.OctetStream
}
