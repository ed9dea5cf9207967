package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/schema"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// ErrBaselineUnavailable covers every way a baseline can fail to load:
// missing, unreadable, malformed or schema-invalid.
var ErrBaselineUnavailable = errors.New("baseline unavailable")

const ociScheme = "oci://"

// Store persists the single baseline a comparison runs against.
type Store interface {
	Load(ctx context.Context) (types.Baseline, error)
	Save(ctx context.Context, s types.Summary, sourceID string) (types.Baseline, error)
	Location() string
}

// Open picks a store from a location string: "oci://<ref>" selects a registry
// artifact, anything else is a file path.
func Open(location string) (Store, error) {
	if location == "" {
		return nil, fmt.Errorf("baseline location is empty")
	}
	if ref, ok := strings.CutPrefix(location, ociScheme); ok {
		return NewOCIStore(ref)
	}
	return &FileStore{Path: location}, nil
}

func newBaseline(s types.Summary, sourceID string, now time.Time) (types.Baseline, error) {
	if strings.TrimSpace(sourceID) == "" {
		return types.Baseline{}, fmt.Errorf("baseline source id is required")
	}
	return types.Baseline{
		Summary:    s,
		SourceID:   sourceID,
		CapturedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

func encodeBaseline(b types.Baseline) ([]byte, error) {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode baseline: %w", err)
	}
	return append(raw, '\n'), nil
}

func decodeBaseline(raw []byte, where string) (types.Baseline, error) {
	if err := schema.Check(schema.Baseline, raw); err != nil {
		return types.Baseline{}, fmt.Errorf("%w: %s: %v", ErrBaselineUnavailable, where, err)
	}
	var b types.Baseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return types.Baseline{}, fmt.Errorf("%w: %s: %v", ErrBaselineUnavailable, where, err)
	}
	return b, nil
}
