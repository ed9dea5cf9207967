package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/schema"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

func EncodeJSON(v any) ([]byte, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

func WriteJSON(path string, v any) error {
	raw, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// ReadSummary loads a results file and checks it against the summary schema.
func ReadSummary(path string) (types.Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Summary{}, fmt.Errorf("read results: %w", err)
	}
	if err := schema.Check(schema.Summary, raw); err != nil {
		return types.Summary{}, fmt.Errorf("results %s: %w", path, err)
	}
	var s types.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.Summary{}, fmt.Errorf("results %s: %w: %v", path, schema.ErrInvalidDocument, err)
	}
	return s, nil
}
