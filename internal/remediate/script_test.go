package remediate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitEmptyPlanIsHeaderAndFooterOnly(t *testing.T) {
	script, err := Emit(nil, DefaultScriptOptions())
	require.NoError(t, err)

	want := `#!/bin/bash
# Auto-generated remediation script
# Actions: 0

set -e

echo 'Starting auto-remediation...'

echo 'Remediation complete'
kubectl get pods
`
	assert.Equal(t, want, script)
}

func TestEmitActionsInOrder(t *testing.T) {
	plan := Plan([]types.Violation{
		crit(types.MetricP99, 300, 200),
		warn(types.MetricErrorRate, 0.02, 0.01),
	}, DefaultTargets())
	opts := DefaultScriptOptions()
	opts.Comments = []string{"Generated: 2026-10-18T10:00:00Z"}

	script, err := Emit(plan, opts)
	require.NoError(t, err)

	want := `#!/bin/bash
# Auto-generated remediation script
# Generated: 2026-10-18T10:00:00Z
# Actions: 2

set -e

echo 'Starting auto-remediation...'

# Action 1: Scale backend to 5 replicas
echo 'Executing: Scale backend to 5 replicas'
kubectl scale deployment llm-backend --replicas=5
sleep 2

# Action 2: Reduce max_tokens to 50 to decrease load
echo 'Executing: Reduce max_tokens to 50 to decrease load'
kubectl patch configmap llm-config -p '{"data":{"MAX_TOKENS":"50"}}'
sleep 2

echo 'Remediation complete'
kubectl get pods
`
	assert.Equal(t, want, script)
	assert.Equal(t, 1, strings.Count(script, "set -e"))
}

func TestEmitQuotesDescriptions(t *testing.T) {
	script, err := Emit([]types.RemediationAction{{
		Priority: 1, ActionType: types.ActionInvestigate,
		Description: "Check gateway's logs\nnow",
		Command:     "kubectl logs -l app=gateway --tail=100",
	}}, ScriptOptions{})
	require.NoError(t, err)
	assert.Contains(t, script, `echo 'Executing: Check gateway'\''s logs now'`)
	assert.Contains(t, script, "# Action 1: Check gateway's logs now\n")
	assert.NotContains(t, script, "sleep")
}

func TestEmitRejectsInvalidAction(t *testing.T) {
	for name, cmd := range map[string]string{
		"empty":     "",
		"blank":     "   ",
		"multiline": "kubectl get pods\nrm -rf /",
	} {
		t.Run(name, func(t *testing.T) {
			actions := []types.RemediationAction{
				{Priority: 1, ActionType: types.ActionScaleGateway, Description: "ok", Command: "kubectl get pods"},
				{Priority: 2, ActionType: types.ActionReduceLoad, Description: "bad", Command: cmd},
			}
			script, err := Emit(actions, DefaultScriptOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAction))
			assert.Contains(t, err.Error(), "action 2")
			assert.Empty(t, script)
		})
	}
}

func TestWriteScriptIsExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remediate.sh")
	require.NoError(t, WriteScript(path, "#!/bin/bash\n"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, "2", seconds(2e9))
	assert.Equal(t, "0.5", seconds(5e8))
}
