package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/policy"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

const maxListedErrors = 5

func ms(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f ms", *v)
}

func rule(w io.Writer, ch string, width int) {
	fmt.Fprintln(w, strings.Repeat(ch, width))
}

func WriteSummaryText(w io.Writer, s types.Summary) {
	rule(w, "=", 60)
	fmt.Fprintln(w, "BENCHMARK RESULTS")
	rule(w, "=", 60)
	fmt.Fprintf(w, "Timestamp:           %s\n", s.Timestamp)
	fmt.Fprintf(w, "Base URL:            %s\n", s.BaseURL)
	fmt.Fprintf(w, "Total Requests:      %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Successful:          %d\n", s.Successful)
	fmt.Fprintf(w, "Failed:              %d\n", s.Failed)
	fmt.Fprintf(w, "Concurrency:         %d\n", s.Concurrency)
	fmt.Fprintf(w, "Duration:            %.2f seconds\n", s.DurationSeconds)
	fmt.Fprintf(w, "Throughput:          %.2f req/s\n", s.ThroughputRPS)
	fmt.Fprintf(w, "Error Rate:          %.2f%%\n\n", s.ErrorRate*100)
	fmt.Fprintln(w, "Latency Statistics:")
	fmt.Fprintf(w, "  Min:               %s\n", ms(s.Latency.MinMS))
	fmt.Fprintf(w, "  Mean:              %s\n", ms(s.Latency.MeanMS))
	fmt.Fprintf(w, "  Median (p50):      %s\n", ms(s.Latency.P50MS))
	fmt.Fprintf(w, "  p95:               %s\n", ms(s.Latency.P95MS))
	fmt.Fprintf(w, "  p99:               %s\n", ms(s.Latency.P99MS))
	fmt.Fprintf(w, "  Max:               %s\n", ms(s.Latency.MaxMS))
	fmt.Fprintf(w, "  Std Dev:           %s\n\n", ms(s.Latency.StdDevMS))
	if s.AvgTokensPerSec != nil {
		fmt.Fprintf(w, "Avg Tokens/sec:      %.2f\n", *s.AvgTokensPerSec)
	} else {
		fmt.Fprintln(w, "Avg Tokens/sec:      n/a")
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(s.Errors))
		for _, e := range s.Errors[:min(len(s.Errors), maxListedErrors)] {
			fmt.Fprintf(w, "  Request %d [%s]: %s\n", e.Index, e.Outcome, e.Error)
		}
		if extra := len(s.Errors) - maxListedErrors; extra > 0 {
			fmt.Fprintf(w, "  ... and %d more errors\n", extra)
		}
	}
	rule(w, "=", 60)
}

func writeRunBlock(w io.Writer, title string, s types.Summary) {
	fmt.Fprintf(w, "\n%s:\n", title)
	fmt.Fprintf(w, "  Timestamp:         %s\n", s.Timestamp)
	fmt.Fprintf(w, "  Total Requests:    %d\n", s.TotalRequests)
	fmt.Fprintf(w, "  Error Rate:        %.2f%%\n", s.ErrorRate*100)
	fmt.Fprintf(w, "  Throughput:        %.2f req/s\n", s.ThroughputRPS)
	fmt.Fprintf(w, "  P50 Latency:       %s\n", ms(s.Latency.P50MS))
	fmt.Fprintf(w, "  P95 Latency:       %s\n", ms(s.Latency.P95MS))
	fmt.Fprintf(w, "  P99 Latency:       %s\n", ms(s.Latency.P99MS))
}

func WriteComparisonText(w io.Writer, rep types.RegressionReport, current types.Summary, baseline types.Baseline) {
	rule(w, "=", 70)
	fmt.Fprintln(w, "BENCHMARK COMPARISON")
	rule(w, "=", 70)
	writeRunBlock(w, "Current Results", current)
	writeRunBlock(w, fmt.Sprintf("Baseline Results (source %s)", baseline.SourceID), baseline.Summary)

	if len(rep.Issues) > 0 {
		fmt.Fprintln(w)
		rule(w, "-", 70)
		fmt.Fprintln(w, "DETECTED ISSUES:")
		rule(w, "-", 70)
		for _, issue := range rep.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
	rule(w, "=", 70)

	switch {
	case rep.GateFailed:
		fmt.Fprintln(w, "\nREGRESSION DETECTED - benchmark failed")
		fmt.Fprintln(w, "\nFailure criteria:")
		fmt.Fprintln(w, "  - P95 latency regression > 20%")
		fmt.Fprintln(w, "  - Error rate > 1%")
	case len(rep.Issues) > 0:
		fmt.Fprintln(w, "\nNo critical regressions (warnings only)")
	default:
		fmt.Fprintln(w, "\nAll checks passed. No regressions detected.")
	}
}

func WritePlanText(w io.Writer, s types.Summary, t policy.ThresholdSet, violations []types.Violation, actions []types.RemediationAction) {
	rule(w, "=", 70)
	fmt.Fprintln(w, "REMEDIATION ANALYSIS")
	rule(w, "=", 70)
	fmt.Fprintln(w, "\nCurrent Metrics:")
	fmt.Fprintf(w, "  P95 Latency:    %s (warning %g, critical %g)\n", ms(s.Latency.P95MS), t.P95MS.Warning, t.P95MS.Critical)
	fmt.Fprintf(w, "  P99 Latency:    %s (warning %g, critical %g)\n", ms(s.Latency.P99MS), t.P99MS.Warning, t.P99MS.Critical)
	fmt.Fprintf(w, "  Error Rate:     %.2f%% (warning %.2f%%, critical %.2f%%)\n", s.ErrorRate*100, t.ErrorRate.Warning*100, t.ErrorRate.Critical*100)
	fmt.Fprintf(w, "  Throughput:     %.2f req/s (floor warning %g, critical %g)\n", s.ThroughputRPS, t.Throughput.Warning, t.Throughput.Critical)

	if len(violations) == 0 {
		fmt.Fprintln(w, "\nAll metrics within thresholds. No remediation needed.")
		rule(w, "=", 70)
		return
	}

	fmt.Fprintf(w, "\nViolations (%d):\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "  [%s] %s = %g (limit %g)\n", strings.ToUpper(string(v.Severity)), v.Metric, v.Observed, v.Limit)
	}
	fmt.Fprintf(w, "\nRecommended Actions (%d):\n", len(actions))
	for i, a := range actions {
		fmt.Fprintf(w, "\n  %d. [P%d] %s\n", i+1, a.Priority, a.Description)
		fmt.Fprintf(w, "     Type:      %s\n", a.ActionType)
		fmt.Fprintf(w, "     Rationale: %s\n", a.Rationale)
		fmt.Fprintf(w, "     Command:   %s\n", a.Command)
	}
	rule(w, "=", 70)
}
