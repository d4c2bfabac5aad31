// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// YAMLConverter handles application/yaml, its legacy aliases, and any
// +yaml media type.
type YAMLConverter struct {
	ChunkSize int
}

func (c YAMLConverter) CanWrite(entity any, mediaType MediaType) bool {
	return entity != nil && isYAML(mediaType)
}

func (c YAMLConverter) CanRead(target any, mediaType MediaType) bool {
	return isPointer(target) && isYAML(mediaType)
}

func (c YAMLConverter) Write(_ context.Context, entity any, mediaType MediaType) (Payload, error) {
	data, err := yaml.Marshal(entity)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal YAML: %w", err)
	}
	return Payload{Content: flow.FromBytes(data, c.ChunkSize), MediaType: mediaType}, nil
}

func (c YAMLConverter) Read(_ context.Context, content io.Reader, target any, _ MediaType) error {
	if err := yaml.NewDecoder(content).Decode(target); err != nil {
		return fmt.Errorf("unmarshal YAML: %w", err)
	}
	return nil
}

func isYAML(mediaType MediaType) bool {
	switch mediaType.Type {
	case ApplicationYAML, "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return mediaType.HasSuffix("yaml")
}
