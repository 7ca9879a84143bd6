// Package encoding reads and writes the JSON documents kept in the
// configuration directory.
package encoding

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a JSON file and unmarshals it into a new T.
// Returns nil, nil if the file does not exist.
func LoadJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", path, err)
	}

	return &result, nil
}

// LoadJSONOrInit behaves like LoadJSON but writes and returns init when the
// file does not exist yet.
func LoadJSONOrInit[T any](path string, init T) (*T, error) {
	doc, err := LoadJSON[T](path)
	if err != nil {
		return nil, err
	}

	if doc != nil {
		return doc, nil
	}

	if err := SaveJSON(path, init); err != nil {
		return nil, err
	}

	return &init, nil
}

// SaveJSON marshals the value to indented JSON and replaces the file at path.
// The whole document is rewritten on every call.
func SaveJSON[T any](path string, value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return WriteFileSecure(path, data)
}
