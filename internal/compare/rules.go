package compare

import (
	"fmt"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// Mode selects what a rule measures against its limits.
type Mode int

const (
	// Regression is the relative change, signed so that positive means worse.
	Regression Mode = iota
	// Magnitude is the absolute relative change in either direction.
	Magnitude
	// Level is the current value itself.
	Level
	// Increase is current minus baseline.
	Increase
	// Ratio is current divided by baseline. Any non-zero value over a zero
	// baseline exceeds every limit.
	Ratio
)

// Rule is one row of the comparison table. A zero Warn or Fail disables that bucket.
type Rule struct {
	Metric string
	Label  string
	// HigherIsBetter flips the sign of the relative change for Regression rules.
	HigherIsBetter bool
	Mode           Mode
	Warn           float64
	Fail           float64
	// Gating rules fail the gate on any violation, whatever the bucket.
	Gating bool
	// Informational rows are reported with their own verdict and issue but
	// never move the overall verdict.
	Informational bool
	// SkipIfViolated names an earlier metric whose violation makes this row
	// redundant. The row is then reported as ok.
	SkipIfViolated string

	value  func(types.Summary) *float64
	format func(float64) string
}

func latency(pick func(types.LatencyStats) *float64) func(types.Summary) *float64 {
	return func(s types.Summary) *float64 { return pick(s.Latency) }
}

func formatMS(v float64) string      { return fmt.Sprintf("%.2fms", v) }
func formatRPS(v float64) string     { return fmt.Sprintf("%.2f req/s", v) }
func formatPercent(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
func formatCount(v float64) string   { return fmt.Sprintf("%.0f", v) }

// DefaultRules is the regression table applied by Compare, in report order.
var DefaultRules = []Rule{
	{
		Metric: types.MetricP95, Label: "P95 latency", Mode: Regression, Warn: 0.10, Fail: 0.20,
		value:  latency(func(l types.LatencyStats) *float64 { return l.P95MS }),
		format: formatMS,
	},
	{
		Metric: types.MetricP50, Label: "P50 latency", Mode: Magnitude, Warn: 0.15,
		value:  latency(func(l types.LatencyStats) *float64 { return l.P50MS }),
		format: formatMS,
	},
	{
		Metric: types.MetricThroughput, Label: "Throughput", HigherIsBetter: true, Mode: Regression, Warn: 0.15,
		value:  func(s types.Summary) *float64 { return types.Float(s.ThroughputRPS) },
		format: formatRPS,
	},
	{
		Metric: types.MetricErrorRate, Label: "Error rate", Mode: Level, Warn: 0.01, Gating: true,
		value:  func(s types.Summary) *float64 { return types.Float(s.ErrorRate) },
		format: formatPercent,
	},
	{
		Metric: types.MetricErrorRateGrowth, Label: "Error rate", Mode: Ratio, Warn: 1.5,
		Informational: true, SkipIfViolated: types.MetricErrorRate,
		value:  func(s types.Summary) *float64 { return types.Float(s.ErrorRate) },
		format: formatPercent,
	},
	{
		Metric: types.MetricFailedRequests, Label: "Failed requests", Mode: Increase, Warn: 5, Informational: true,
		value:  func(s types.Summary) *float64 { return types.Float(float64(s.Failed)) },
		format: formatCount,
	},
}

func (r Rule) threshold() string {
	limit := r.Warn
	if r.Fail > 0 {
		limit = r.Fail
	}
	switch r.Mode {
	case Level:
		return r.format(limit)
	case Increase:
		return "+" + r.format(limit)
	case Ratio:
		return fmt.Sprintf("%gx baseline", limit)
	default:
		return fmt.Sprintf("%.0f%%", limit*100)
	}
}
