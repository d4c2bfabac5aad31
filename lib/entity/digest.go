// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// DigestAlgorithm is the algorithm key used in Content-Digest values.
const DigestAlgorithm = "blake3"

var (
	// ErrDigestMismatch is returned when content does not hash to its
	// declared Content-Digest.
	ErrDigestMismatch = errors.New("content digest mismatch")

	// ErrUnsupportedDigest is returned when a Content-Digest header
	// carries no algorithm this package can verify.
	ErrUnsupportedDigest = errors.New("unsupported content digest")
)

// FormatDigest returns the Content-Digest header value for data, in
// the structured-field dictionary form of RFC 9530:
// blake3=:<base64 of the 32-byte BLAKE3 digest>:
func FormatDigest(data []byte) string {
	sum := blake3.Sum256(data)
	return DigestAlgorithm + "=:" + base64.StdEncoding.EncodeToString(sum[:]) + ":"
}

// ParseDigest extracts the BLAKE3 digest from a Content-Digest header
// value. Other algorithms in the dictionary are skipped.
func ParseDigest(value string) ([32]byte, error) {
	var digest [32]byte
	for _, member := range strings.Split(value, ",") {
		key, encoded, found := strings.Cut(strings.TrimSpace(member), "=")
		if !found || strings.ToLower(strings.TrimSpace(key)) != DigestAlgorithm {
			continue
		}
		encoded = strings.TrimSpace(encoded)
		if len(encoded) < 2 || encoded[0] != ':' || encoded[len(encoded)-1] != ':' {
			return digest, fmt.Errorf("%w: malformed byte sequence %q", ErrUnsupportedDigest, encoded)
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded[1 : len(encoded)-1])
		if err != nil {
			return digest, fmt.Errorf("%w: %v", ErrUnsupportedDigest, err)
		}
		if len(decoded) != len(digest) {
			return digest, fmt.Errorf("%w: digest is %d bytes, want %d", ErrUnsupportedDigest, len(decoded), len(digest))
		}
		copy(digest[:], decoded)
		return digest, nil
	}
	return digest, fmt.Errorf("%w: no %s member in %q", ErrUnsupportedDigest, DigestAlgorithm, value)
}

// DigestVerifier hashes content as it is read and, at end of stream,
// fails with ErrDigestMismatch if the hash differs from the expected
// digest. The failure is sticky.
type DigestVerifier struct {
	source   io.Reader
	hasher   *blake3.Hasher
	expected [32]byte
	err      error
}

// NewDigestVerifier wraps source, verifying it against the
// Content-Digest header value.
func NewDigestVerifier(source io.Reader, header string) (*DigestVerifier, error) {
	expected, err := ParseDigest(header)
	if err != nil {
		return nil, err
	}
	return &DigestVerifier{source: source, hasher: blake3.New(), expected: expected}, nil
}

func (v *DigestVerifier) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}
	count, err := v.source.Read(p)
	v.hasher.Write(p[:count])
	if errors.Is(err, io.EOF) {
		if actual := v.hasher.Sum(nil); !bytes.Equal(actual, v.expected[:]) {
			v.err = fmt.Errorf("%w: got %s", ErrDigestMismatch, base64.StdEncoding.EncodeToString(actual))
			return count, v.err
		}
		v.err = io.EOF
	}
	return count, err
}
