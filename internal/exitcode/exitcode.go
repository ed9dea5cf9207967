// Package exitcode is the stable process exit-code contract of perfgate.
// A tooling failure never shares a code with a failed gate.
package exitcode

import (
	"errors"
	"io/fs"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/loadgen"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/policy"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/remediate"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/store"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/schema"
)

const (
	OK                  = 0
	GateFailed          = 1
	Usage               = 2
	InvalidInput        = 3
	BaselineUnavailable = 4
	InvalidAction       = 5
	TargetUnavailable   = 6
	Internal            = 10
)

// ErrUsage marks bad flag values or combinations.
var ErrUsage = errors.New("usage error")

var table = []struct {
	err  error
	code int
}{
	{store.ErrBaselineUnavailable, BaselineUnavailable},
	{remediate.ErrInvalidAction, InvalidAction},
	{loadgen.ErrTargetUnavailable, TargetUnavailable},
	{loadgen.ErrConfig, Usage},
	{policy.ErrInvalidThresholds, InvalidInput},
	{ErrUsage, Usage},
	{schema.ErrInvalidDocument, InvalidInput},
	{fs.ErrNotExist, InvalidInput},
}

// For maps an error to its exit code. nil is OK; unrecognized errors are Internal.
func For(err error) int {
	if err == nil {
		return OK
	}
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return Internal
}
