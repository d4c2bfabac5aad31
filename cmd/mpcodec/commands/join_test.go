// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/config"
	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
	"github.com/bureau-foundation/mpcodec/lib/testutil"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	directory := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(directory, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return directory
}

func TestParseJoinInputs(t *testing.T) {
	directory := writeFiles(t, map[string]string{"meta.json": "{}", "photo.jpg": "jpeg"})
	meta := filepath.Join(directory, "meta.json")
	photo := filepath.Join(directory, "photo.jpg")

	inputs, err := parseJoinInputs([]string{meta, "upload=" + photo})
	if err != nil {
		t.Fatalf("parseJoinInputs: %v", err)
	}
	want := []joinInput{{Name: "meta", Path: meta}, {Name: "upload", Path: photo}}
	if len(inputs) != len(want) || inputs[0] != want[0] || inputs[1] != want[1] {
		t.Errorf("inputs = %+v, want %+v", inputs, want)
	}

	_, err = parseJoinInputs([]string{filepath.Join(directory, "missing.txt")})
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryNotFound {
		t.Errorf("missing file error = %v, want not_found", err)
	}

	_, err = parseJoinInputs([]string{directory})
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Errorf("directory error = %v, want validation", err)
	}
}

func TestJoinConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	cfg, err := joinConfig(joinParams{Boundary: "random", Subtype: "mixed", Encoding: "lz4", Digest: true})
	if err != nil {
		t.Fatalf("joinConfig: %v", err)
	}
	if cfg.Subtype != "mixed" || cfg.Encoding() != entity.EncodingLZ4 || !cfg.Digest {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.PartOptions()) != 2 {
		t.Errorf("PartOptions = %d options, want 2", len(cfg.PartOptions()))
	}

	_, err = joinConfig(joinParams{Encoding: "brotli"})
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Errorf("bad encoding error = %v, want validation", err)
	}
}

func TestJoinFilesRoundTrip(t *testing.T) {
	files := map[string]string{
		"meta.json": `{"title":"report"}`,
		"notes.txt": strings.Repeat("line of notes\n", 200),
	}
	directory := writeFiles(t, files)
	inputs := []joinInput{
		{Name: "meta", Path: filepath.Join(directory, "meta.json")},
		{Name: "notes", Path: filepath.Join(directory, "notes.txt")},
	}

	tests := []struct {
		name        string
		partOptions []multipart.PartOption
		encoding    string
		digest      digestStatus
	}{
		{"plain", nil, "", digestAbsent},
		{"zstd with digest", []multipart.PartOption{multipart.WithContentEncoding(entity.EncodingZstd), multipart.WithDigest()}, "zstd", digestVerified},
		{"lz4", []multipart.PartOption{multipart.WithContentEncoding(entity.EncodingLZ4)}, "lz4", digestAbsent},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			boundary := multipart.RandomBoundary()

			var message bytes.Buffer
			contentType, err := joinFiles(ctx, &message, inputs, boundary, test.partOptions,
				multipart.WithSubtype("mixed"), multipart.WithChunkSize(64))
			if err != nil {
				t.Fatalf("joinFiles: %v", err)
			}
			if contentType != boundary.ContentType("mixed") {
				t.Errorf("content type = %q", contentType)
			}

			summaries, err := inspectMessage(ctx, bytes.NewReader(message.Bytes()), boundary, 0)
			if err != nil {
				t.Fatalf("inspectMessage: %v", err)
			}
			if len(summaries) != 2 {
				t.Fatalf("got %d parts, want 2", len(summaries))
			}
			if summaries[0].Name != "meta" || summaries[0].Filename != "meta.json" || summaries[0].ContentType != "application/json" {
				t.Errorf("summaries[0] = %+v", summaries[0])
			}
			if summaries[1].Name != "notes" || !strings.HasPrefix(summaries[1].ContentType, "text/plain") {
				t.Errorf("summaries[1] = %+v", summaries[1])
			}
			for _, summary := range summaries {
				if summary.ContentEncoding != test.encoding || summary.Digest != test.digest {
					t.Errorf("part %d: encoding %q digest %q, want %q %q",
						summary.Index, summary.ContentEncoding, summary.Digest, test.encoding, test.digest)
				}
			}

			output := t.TempDir()
			if _, err := splitMessage(ctx, bytes.NewReader(message.Bytes()), boundary, output, true); err != nil {
				t.Fatalf("splitMessage: %v", err)
			}
			for index, name := range []string{"meta.json", "notes.txt"} {
				data, err := os.ReadFile(filepath.Join(output, partPrefix(index)+name))
				if err != nil {
					t.Fatal(err)
				}
				if string(data) != files[name] {
					t.Errorf("%s round-tripped as %q", name, data)
				}
			}
		})
	}
}

func partPrefix(index int) string {
	return []string{"000-", "001-"}[index]
}

func TestJoinFilesOpenFailure(t *testing.T) {
	inputs := []joinInput{{Name: "gone", Path: filepath.Join(t.TempDir(), "gone.txt")}}
	var message bytes.Buffer
	_, err := joinFiles(context.Background(), &message, inputs, multipart.MustBoundary(testutil.UniqueToken("join")), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
}
