package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// FileStore keeps the baseline in a single JSON file. Saves are atomic: the
// document is written to a temporary file in the same directory and renamed
// over the target, so readers see either the old or the new baseline.
type FileStore struct {
	Path string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (f *FileStore) Location() string { return f.Path }

func (f *FileStore) Load(_ context.Context) (types.Baseline, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return types.Baseline{}, fmt.Errorf("%w: %v", ErrBaselineUnavailable, err)
	}
	return decodeBaseline(raw, f.Path)
}

func (f *FileStore) Save(_ context.Context, s types.Summary, sourceID string) (types.Baseline, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	b, err := newBaseline(s, sourceID, now())
	if err != nil {
		return types.Baseline{}, err
	}
	raw, err := encodeBaseline(b)
	if err != nil {
		return types.Baseline{}, err
	}
	if err := writeAtomic(f.Path, raw, 0o644); err != nil {
		return types.Baseline{}, err
	}
	return b, nil
}

func writeAtomic(path string, raw []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp baseline: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp baseline: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp baseline: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp baseline: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace baseline: %w", err)
	}
	return nil
}
