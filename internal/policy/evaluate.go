package policy

import "github.com/ogulcanaydogan/llm-perf-gate/pkg/types"

// Evaluate returns at most one violation per metric, in the order p95, p99,
// error rate, throughput. Critical is tested first and supersedes warning.
// Latency metrics are skipped when the run had no successful requests.
func Evaluate(s types.Summary, t ThresholdSet) []types.Violation {
	var out []types.Violation
	if v, ok := ceiling(types.MetricP95, s.Latency.P95MS, t.P95MS); ok {
		out = append(out, v)
	}
	if v, ok := ceiling(types.MetricP99, s.Latency.P99MS, t.P99MS); ok {
		out = append(out, v)
	}
	if v, ok := ceiling(types.MetricErrorRate, &s.ErrorRate, t.ErrorRate); ok {
		out = append(out, v)
	}
	if v, ok := floor(types.MetricThroughput, s.ThroughputRPS, t.Throughput); ok {
		out = append(out, v)
	}
	return out
}

func ceiling(metric string, value *float64, l Limit) (types.Violation, bool) {
	if value == nil {
		return types.Violation{}, false
	}
	v := *value
	switch {
	case l.Critical > 0 && v >= l.Critical:
		return types.Violation{Metric: metric, Severity: types.SeverityCritical, Observed: v, Limit: l.Critical}, true
	case l.Warning > 0 && v >= l.Warning:
		return types.Violation{Metric: metric, Severity: types.SeverityWarning, Observed: v, Limit: l.Warning}, true
	}
	return types.Violation{}, false
}

func floor(metric string, v float64, l Limit) (types.Violation, bool) {
	switch {
	case l.Critical > 0 && v <= l.Critical:
		return types.Violation{Metric: metric, Severity: types.SeverityCritical, Observed: v, Limit: l.Critical}, true
	case l.Warning > 0 && v <= l.Warning:
		return types.Violation{Metric: metric, Severity: types.SeverityWarning, Observed: v, Limit: l.Warning}, true
	}
	return types.Violation{}, false
}

// HasCritical reports whether any violation is critical.
func HasCritical(vs []types.Violation) bool {
	for _, v := range vs {
		if v.Severity == types.SeverityCritical {
			return true
		}
	}
	return false
}
