// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
	"github.com/spf13/pflag"
)

// manifestName is the file split writes next to the extracted parts.
const manifestName = "manifest.json"

type splitParams struct {
	messageParams
	Output string `flag:"output,o" desc:"directory to write parts into (required)"`
	Decode bool   `flag:"decode" desc:"undo each part's Content-Encoding before writing it"`
}

// manifest is the JSON document split writes alongside the parts.
type manifest struct {
	Boundary string        `json:"boundary"`
	Parts    []partSummary `json:"parts"`
}

func splitCommand() *cli.Command {
	var params splitParams
	return &cli.Command{
		Name:    "split",
		Summary: "Write each part of a multipart message to its own file",
		Description: `Read a multipart message from a file or stdin and write every part's
content to a file in the output directory, together with a manifest.json
describing each part.

The boundary comes from --boundary, --content-type, the configuration
file, or, failing those, the first delimiter line of the input.

Parts carrying a Content-Digest are verified while they are written. A
mismatch is logged, recorded in the manifest, and makes the command exit
with status 1 once every part has been written.`,
		Usage: "mpcodec split [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Split an HTTP request body using its Content-Type",
				Command:     "mpcodec split --content-type \"$CONTENT_TYPE\" -o parts body.bin",
			},
			{
				Description: "Split a message from stdin, decompressing parts",
				Command:     "mpcodec join a.json b.txt | mpcodec split --decode -o out",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("split", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Output == "" {
				return cli.Validation("--output is required").
					WithHint("Pass --output <directory> to choose where parts are written.")
			}
			cfg, err := loadConfig(params.Config)
			if err != nil {
				return cli.Validation("%w", err)
			}
			input, name, err := openInput(args, os.Stdin)
			if err != nil {
				return err
			}
			defer input.Close()

			buffered := bufio.NewReaderSize(input, sniffWindow)
			boundary, err := resolveBoundary(params.messageParams, cfg, buffered)
			if err != nil {
				return err
			}

			logger.Debug("splitting message", "input", name, "boundary", boundary.Token(), "output", params.Output)
			summaries, err := splitMessage(ctx, buffered, boundary, params.Output, params.Decode, cfg.Options(logger)...)
			if err != nil {
				return err
			}
			for _, summary := range summaries {
				if summary.Digest == digestMismatch {
					logger.Warn("content digest mismatch", "part", summary.Index, "path", summary.Path)
				}
			}
			logger.Info("message split", "parts", len(summaries), "output", params.Output)
			if mismatches(summaries) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// splitMessage writes every part of the message in source to its own
// file under directory, then writes the manifest.
func splitMessage(ctx context.Context, source io.Reader, boundary multipart.Boundary, directory string, decode bool, options ...multipart.Option) ([]partSummary, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, cli.Internal("create output directory: %w", err)
	}

	summaries := []partSummary{}
	err := multipart.Walk(ctx, source, boundary, func(part *multipart.ReadablePart) error {
		path := filepath.Join(directory, partFileName(part))
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		summary, err := copyPart(ctx, part, file, decode)
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
		if err != nil {
			return err
		}
		summary.Path = filepath.Base(path)
		summaries = append(summaries, summary)
		return nil
	}, options...)
	if err != nil {
		return summaries, err
	}

	file, err := os.Create(filepath.Join(directory, manifestName))
	if err != nil {
		return summaries, cli.Internal("create manifest: %w", err)
	}
	defer file.Close()
	if err := cli.WriteJSON(file, manifest{Boundary: boundary.Token(), Parts: summaries}); err != nil {
		return summaries, cli.Internal("write manifest: %w", err)
	}
	return summaries, file.Close()
}

// partFileName names the file for a part: its index, then its
// filename, form field name, or "part" with an extension matching its
// content type.
func partFileName(part *multipart.ReadablePart) string {
	prefix := fmt.Sprintf("%03d-", part.Index())
	if filename := part.Filename(); filename != "" && filename != "." && filename != ".." {
		return prefix + filename
	}
	base := "part"
	if name := sanitizeName(part.Name()); name != "" {
		base = name
	}
	extension := ".bin"
	if extensions, err := mime.ExtensionsByType(part.ContentType().Type); err == nil && len(extensions) > 0 {
		extension = extensions[0]
	}
	return prefix + base + extension
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, strings.Trim(name, ". "))
}
