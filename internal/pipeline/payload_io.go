package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region payload-io
// LoadPayload reads a rendered payload back from disk for scoring or tuning.
func LoadPayload(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read payload: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse payload %s: %w", path, err)
	}
	return p, nil
}

// WritePayload writes a payload as indented JSON.
func WritePayload(path string, p Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// #endregion payload-io
