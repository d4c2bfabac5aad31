// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the mpcodec command tree: split and inspect
// decode messages with [multipart.Walk], join encodes files with the
// streaming [multipart.Encoder].
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/version"
	"github.com/spf13/pflag"
)

// Root builds and returns the complete mpcodec command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "mpcodec",
		Description: `mpcodec: streaming multipart MIME codec.

Split multipart messages into files, inspect their parts and verify
content digests, or join files into a new message. Defaults come from
the YAML or JSONC file named by --config or $MPCODEC_CONFIG.`,
		Subcommands: []*cli.Command{
			splitCommand(),
			joinCommand(),
			inspectCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List the parts of a request body",
				Command:     "mpcodec inspect --content-type \"$CONTENT_TYPE\" body.bin",
			},
			{
				Description: "Extract every part into a directory",
				Command:     "mpcodec split -o parts body.bin",
			},
			{
				Description: "Encode two files as a form upload",
				Command:     "mpcodec join meta=meta.json upload=photo.jpg > body.bin",
			},
		},
	}
}

func versionCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("version", &params) },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("version takes no arguments, got %q", args[0])
			}
			if done, err := params.EmitJSON(os.Stdout, version.Current()); done {
				return err
			}
			fmt.Printf("mpcodec %s\n", version.Full())
			return nil
		},
	}
}
