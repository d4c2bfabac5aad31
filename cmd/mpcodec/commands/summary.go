// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
)

// digestStatus reports what happened when a part's Content-Digest was
// checked.
type digestStatus string

const (
	digestAbsent      digestStatus = "absent"
	digestVerified    digestStatus = "verified"
	digestMismatch    digestStatus = "mismatch"
	digestUnsupported digestStatus = "unsupported"
)

// partSummary describes one part of a message as split or inspect
// report it.
type partSummary struct {
	Index           int          `json:"index"`
	Name            string       `json:"name,omitempty"`
	Filename        string       `json:"filename,omitempty"`
	ContentType     string       `json:"content_type"`
	ContentEncoding string       `json:"content_encoding,omitempty"`
	Size            int64        `json:"size"`
	Digest          digestStatus `json:"digest"`
	Path            string       `json:"path,omitempty"`
	Preview         string       `json:"preview,omitempty"`
}

// copyPart streams the content of part to destination, verifying its
// Content-Digest when present. With decode set, the Content-Encoding
// is undone before writing. Size counts the bytes as transmitted.
//
// A digest mismatch is reported in the summary, not as an error, so
// callers can finish the message before deciding how to fail.
func copyPart(ctx context.Context, part *multipart.ReadablePart, destination io.Writer, decode bool) (partSummary, error) {
	summary := partSummary{
		Index:           part.Index(),
		Name:            part.Name(),
		Filename:        part.Filename(),
		ContentType:     part.ContentType().String(),
		ContentEncoding: part.Header().Get("Content-Encoding"),
		Digest:          digestAbsent,
	}

	content := part.Reader(ctx)
	defer content.Close()
	counted := &countingReader{source: content}

	var source io.Reader = counted
	var verifier *entity.DigestVerifier
	if header := part.Header().Get("Content-Digest"); header != "" {
		var err error
		verifier, err = entity.NewDigestVerifier(counted, header)
		if err != nil {
			summary.Digest = digestUnsupported
		} else {
			summary.Digest = digestVerified
			source = verifier
		}
	}

	if decode {
		encoding, err := entity.ParseContentEncoding(summary.ContentEncoding)
		if err != nil {
			return summary, fmt.Errorf("part %d: %w", summary.Index, err)
		}
		decoded, err := entity.DecodeContent(source, encoding)
		if err != nil {
			return summary, fmt.Errorf("part %d: %w", summary.Index, err)
		}
		defer decoded.Close()
		source = decoded
	}

	_, err := io.Copy(destination, source)
	if err == nil && verifier != nil {
		// A decompressor may stop at the end of its frame before the
		// verifier has seen the end of the raw content.
		_, err = io.Copy(io.Discard, verifier)
	}
	summary.Size = counted.count
	if errors.Is(err, entity.ErrDigestMismatch) {
		summary.Digest = digestMismatch
		return summary, nil
	}
	if err != nil {
		return summary, fmt.Errorf("part %d: %w", summary.Index, err)
	}
	return summary, nil
}

type countingReader struct {
	source io.Reader
	count  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	count, err := r.source.Read(p)
	r.count += int64(count)
	return count, err
}

// mismatches counts the parts whose digest did not verify.
func mismatches(summaries []partSummary) int {
	count := 0
	for _, summary := range summaries {
		if summary.Digest == digestMismatch {
			count++
		}
	}
	return count
}
