package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/config"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/policy"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/remediate"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/report"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/schema"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type planReport struct {
	ResultsFile   string                    `json:"results_file"`
	Thresholds    policy.ThresholdSet       `json:"thresholds"`
	Violations    []types.Violation         `json:"violations"`
	Actions       []types.RemediationAction `json:"actions"`
	NeedsCritical bool                      `json:"needs_critical_remediation"`
}

func newRemediateCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remediate",
		Short: "Evaluate a results file against thresholds and plan remediation actions",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runRemediate(cmd.OutOrStdout(), log, config.LoadRemediate(v))
		},
	}
	f := cmd.Flags()
	f.String("results", "bench_results.json", "results file to evaluate")
	f.String("thresholds", "", "thresholds and remediation targets YAML (default: built-in)")
	f.String("generate-script", "", "write the plan as a bash script to this path")
	f.String("format", "text", "output format: text, json or md")
	f.Duration("settle-delay", remediate.DefaultScriptOptions().SettleDelay, "pause after each scripted action")
	f.String("status-command", remediate.DefaultScriptOptions().StatusCommand, "command run at the end of the script")
	return cmd
}

func loadPolicy(path string) (policy.ThresholdSet, remediate.Targets, error) {
	if path == "" {
		return policy.Defaults(), remediate.DefaultTargets(), nil
	}
	thresholds, err := policy.LoadThresholds(path)
	if err != nil {
		return policy.ThresholdSet{}, remediate.Targets{}, err
	}
	targets, err := remediate.LoadTargets(path)
	if err != nil {
		return policy.ThresholdSet{}, remediate.Targets{}, fmt.Errorf("%w: %v", schema.ErrInvalidDocument, err)
	}
	return thresholds, targets, nil
}

func runRemediate(out io.Writer, log *zap.Logger, cfg config.Remediate) error {
	if err := oneOf("format", cfg.Format, "text", "json", "md"); err != nil {
		return err
	}
	summary, err := report.ReadSummary(cfg.Results)
	if err != nil {
		return err
	}
	thresholds, targets, err := loadPolicy(cfg.Thresholds)
	if err != nil {
		return err
	}

	violations := policy.Evaluate(summary, thresholds)
	actions := remediate.Plan(violations, targets)
	critical := needsCritical(actions)
	log.Info("remediation planned",
		zap.Int("violations", len(violations)),
		zap.Int("actions", len(actions)),
		zap.Bool("critical", critical),
	)

	if cfg.GenerateScript != "" {
		opts := remediate.ScriptOptions{
			SettleDelay:   cfg.SettleDelay,
			StatusCommand: cfg.StatusCommand,
			Comments:      []string{fmt.Sprintf("Results: %s (run %s)", cfg.Results, summary.RunID)},
		}
		script, err := remediate.Emit(actions, opts)
		if err != nil {
			return err
		}
		if err := remediate.WriteScript(cfg.GenerateScript, script); err != nil {
			return err
		}
		log.Info("remediation script written", zap.String("path", cfg.GenerateScript))
	}

	var buf bytes.Buffer
	switch cfg.Format {
	case "json":
		raw, err := report.EncodeJSON(planReport{
			ResultsFile:   cfg.Results,
			Thresholds:    thresholds,
			Violations:    orEmpty(violations),
			Actions:       orEmpty(actions),
			NeedsCritical: critical,
		})
		if err != nil {
			return err
		}
		buf.Write(raw)
	case "md":
		buf.WriteString(report.BuildPlanMarkdown(violations, actions))
	default:
		report.WritePlanText(&buf, summary, thresholds, violations, actions)
		if cfg.GenerateScript != "" {
			fmt.Fprintf(&buf, "\nRemediation script saved to: %s\n", cfg.GenerateScript)
		}
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		return err
	}

	if critical {
		return gateFailed("critical remediation required: %d priority-%d action(s)", countPriority(actions, types.PriorityImmediate), types.PriorityImmediate)
	}
	return nil
}

func needsCritical(actions []types.RemediationAction) bool {
	return countPriority(actions, types.PriorityImmediate) > 0
}

func countPriority(actions []types.RemediationAction, p int) int {
	n := 0
	for _, a := range actions {
		if a.Priority == p {
			n++
		}
	}
	return n
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
