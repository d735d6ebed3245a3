/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaults []byte

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(nil)
}

// Parse decodes data over the built-in defaults and validates the result.
// Fields absent from data keep their default value; a rubrics list in data
// replaces the default list entirely.
func Parse(data []byte) (*Catalog, error) {
	var cfg Config
	if err := decode(defaults, &cfg); err != nil {
		return nil, fmt.Errorf("decoding built-in rubrics: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := decode(data, &cfg); err != nil {
			return nil, err
		}
	}
	return New(cfg)
}

// LoadFile reads path with Parse. An empty path yields the defaults.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rubric file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decoding rubric yaml: %w", err)
	}
	return nil
}
