// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
)

type inspectParams struct {
	cli.JSONOutput
	messageParams
	Preview int `flag:"preview" desc:"show the first N bytes of each part's decoded content"`
}

// theme holds the colors of the styled inspect table. Colors are ANSI
// 256-color codes.
type theme struct {
	Header   lipgloss.Color
	Faint    lipgloss.Color
	Verified lipgloss.Color
	Mismatch lipgloss.Color
}

var defaultTheme = theme{
	Header:   lipgloss.Color("75"),
	Faint:    lipgloss.Color("245"),
	Verified: lipgloss.Color("78"),
	Mismatch: lipgloss.Color("203"),
}

// maxCellWidth caps the width of a styled table cell; longer values
// are truncated with an ellipsis.
const maxCellWidth = 40

var inspectColumns = []string{"INDEX", "NAME", "FILENAME", "CONTENT-TYPE", "ENCODING", "SIZE", "DIGEST"}

func inspectCommand() *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "List the parts of a multipart message",
		Description: `Read a multipart message from a file or stdin and print one row per
part: its index, form field name, filename, content type, content
encoding, size as transmitted, and the result of checking its
Content-Digest.

With --preview N, the first N bytes of every part's content are shown
after the table, decoded from their Content-Encoding. On a terminal,
parts whose content type has a known syntax are highlighted.

The command exits with status 1 when any digest does not verify.`,
		Usage: "mpcodec inspect [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "List the parts of a saved request body",
				Command:     "mpcodec inspect --content-type \"$CONTENT_TYPE\" body.bin",
			},
			{
				Description: "Verify digests in a pipeline",
				Command:     "mpcodec join --digest a b | mpcodec inspect --json",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("inspect", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
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
			logger.Debug("inspecting message", "input", name, "boundary", boundary.Token())

			if params.Preview < 0 {
				return cli.Validation("--preview must not be negative")
			}
			summaries, err := inspectMessage(ctx, buffered, boundary, params.Preview, cfg.Options(logger)...)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, summaries); done {
				if err != nil {
					return err
				}
			} else {
				styled := cli.IsTerminal(os.Stdout)
				renderSummaries(os.Stdout, summaries, styled)
				renderPreviews(os.Stdout, summaries, styled)
			}
			if mismatches(summaries) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// inspectMessage reads every part of the message in source and
// summarizes it. With preview > 0 the first preview bytes of each
// part's decoded content are kept; the rest is discarded.
func inspectMessage(ctx context.Context, source io.Reader, boundary multipart.Boundary, preview int, options ...multipart.Option) ([]partSummary, error) {
	summaries := []partSummary{}
	err := multipart.Walk(ctx, source, boundary, func(part *multipart.ReadablePart) error {
		head := &headBuffer{limit: preview}
		summary, err := copyPart(ctx, part, head, preview > 0)
		if err != nil {
			return err
		}
		summary.Preview = string(head.data)
		summaries = append(summaries, summary)
		return nil
	}, options...)
	return summaries, err
}

// headBuffer keeps the first limit bytes written to it and accepts the
// rest without storing it.
type headBuffer struct {
	limit int
	data  []byte
}

func (b *headBuffer) Write(p []byte) (int, error) {
	if room := b.limit - len(b.data); room > 0 {
		b.data = append(b.data, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

// renderPreviews prints the kept content of each part. When styled,
// content whose type has a known syntax is highlighted.
func renderPreviews(w io.Writer, summaries []partSummary, styled bool) {
	for _, summary := range summaries {
		if summary.Preview == "" {
			continue
		}
		fmt.Fprintf(w, "\n--- part %d (%s) ---\n", summary.Index, summary.ContentType)
		content := summary.Preview
		if styled {
			content = highlight(content, summary.ContentType)
		}
		fmt.Fprint(w, content)
		if !strings.HasSuffix(content, "\n") {
			fmt.Fprintln(w)
		}
	}
}

// highlight colors code for a 256-color terminal using the lexer
// registered for contentType, returning code unchanged when there is
// none.
func highlight(code, contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	lexer := lexers.MatchMimeType(strings.TrimSpace(mediaType))
	if lexer == nil {
		return code
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, lexer.Config().Name, "terminal256", "monokai"); err != nil {
		return code
	}
	return buffer.String()
}

func summaryRow(summary partSummary) []string {
	return []string{
		strconv.Itoa(summary.Index),
		dash(summary.Name),
		dash(summary.Filename),
		summary.ContentType,
		dash(summary.ContentEncoding),
		strconv.FormatInt(summary.Size, 10),
		string(summary.Digest),
	}
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// renderSummaries prints the part table, with colors when styled.
func renderSummaries(w io.Writer, summaries []partSummary, styled bool) {
	if !styled {
		tab := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tab, strings.Join(inspectColumns, "\t"))
		for _, summary := range summaries {
			fmt.Fprintln(tab, strings.Join(summaryRow(summary), "\t"))
		}
		tab.Flush()
		return
	}

	rows := make([][]string, 0, len(summaries))
	widths := make([]int, len(inspectColumns))
	for column, title := range inspectColumns {
		widths[column] = ansi.StringWidth(title)
	}
	for _, summary := range summaries {
		row := summaryRow(summary)
		for column, cell := range row {
			row[column] = ansi.Truncate(cell, maxCellWidth, "…")
			widths[column] = max(widths[column], ansi.StringWidth(row[column]))
		}
		rows = append(rows, row)
	}

	// The caller has already decided the output is a terminal.
	renderer := lipgloss.NewRenderer(w)
	renderer.SetColorProfile(termenv.ANSI256)

	cell := func(style lipgloss.Style, column int, value string) string {
		return style.Width(widths[column] + 2).Render(value)
	}
	header := renderer.NewStyle().Bold(true).Foreground(defaultTheme.Header)
	faint := renderer.NewStyle().Foreground(defaultTheme.Faint)
	plain := renderer.NewStyle()

	var line strings.Builder
	for column, title := range inspectColumns {
		line.WriteString(cell(header, column, title))
	}
	fmt.Fprintln(w, strings.TrimRight(line.String(), " "))

	digestColumn := len(inspectColumns) - 1
	for index, row := range rows {
		line.Reset()
		for column, value := range row {
			style := plain
			switch {
			case value == "-":
				style = faint
			case column == digestColumn:
				style = digestStyle(renderer, summaries[index].Digest)
			}
			line.WriteString(cell(style, column, value))
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}

func digestStyle(renderer *lipgloss.Renderer, status digestStatus) lipgloss.Style {
	style := renderer.NewStyle()
	switch status {
	case digestVerified:
		return style.Foreground(defaultTheme.Verified)
	case digestMismatch, digestUnsupported:
		return style.Bold(true).Foreground(defaultTheme.Mismatch)
	default:
		return style.Foreground(defaultTheme.Faint)
	}
}
