package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4g", *v)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *v*100)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// BuildComparisonMarkdown renders a report for CI step summaries and PR comments.
func BuildComparisonMarkdown(rep types.RegressionReport) string {
	status := "PASS"
	switch {
	case rep.GateFailed:
		status = "FAIL"
	case rep.Overall == types.VerdictWarn:
		status = "WARN"
	}
	var b strings.Builder
	b.WriteString("# Performance Regression Report\n\n")
	b.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	b.WriteString(fmt.Sprintf("- Baseline: `%s`", rep.BaselineSourceID))
	if rep.BaselineCapturedAt != "" {
		b.WriteString(fmt.Sprintf(" (captured %s)", rep.BaselineCapturedAt))
	}
	b.WriteString("\n\n")

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Baseline | Current | Change | Verdict | Note |\n")
	b.WriteString("|---|---:|---:|---:|---|---|\n")
	for _, m := range rep.Metrics {
		verdict := string(m.Verdict)
		if m.Gating {
			verdict += " (gating)"
		}
		if m.Informational {
			verdict += " (info)"
		}
		note := m.Note
		if note == "" {
			note = "-"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			m.Metric, cell(m.Baseline), cell(m.Current), percent(m.RelativeDelta), verdict, escape(note)))
	}

	if len(rep.Issues) > 0 {
		b.WriteString("\n## Issues\n\n")
		for _, issue := range rep.Issues {
			b.WriteString("- " + issue + "\n")
		}
	}
	return b.String()
}

func BuildPlanMarkdown(violations []types.Violation, actions []types.RemediationAction) string {
	var b strings.Builder
	b.WriteString("# Remediation Plan\n\n")
	if len(violations) == 0 {
		b.WriteString("All metrics within thresholds. No remediation needed.\n")
		return b.String()
	}
	b.WriteString("## Violations\n\n")
	b.WriteString("| Metric | Severity | Observed | Limit |\n")
	b.WriteString("|---|---|---:|---:|\n")
	for _, v := range violations {
		b.WriteString(fmt.Sprintf("| %s | %s | %g | %g |\n", v.Metric, v.Severity, v.Observed, v.Limit))
	}
	b.WriteString("\n## Actions\n\n")
	b.WriteString("| # | Priority | Type | Description | Command |\n")
	b.WriteString("|---:|---:|---|---|---|\n")
	for i, a := range actions {
		b.WriteString(fmt.Sprintf("| %d | %d | %s | %s | `%s` |\n", i+1, a.Priority, a.ActionType, escape(a.Description), escape(a.Command)))
	}
	return b.String()
}

func WriteMarkdown(path, md string) error {
	return os.WriteFile(path, []byte(md), 0o644)
}
