package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// parseYaml decodes exactly one yaml document, rejecting unknown keys.
func parseYaml(out interface{}, blob []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(blob))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("config is empty: %w", ErrInvalidConfig)
		}
		return fmt.Errorf("can't parse yaml: %w", err)
	}
	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config must contain a single yaml document: %w", ErrInvalidConfig)
	}
	return nil
}
