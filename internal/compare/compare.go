// Package compare gates a load run against a stored baseline.
package compare

import (
	"fmt"
	"math"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// Compare applies DefaultRules. It is pure: the same inputs always produce an
// identical report.
func Compare(current types.Summary, baseline types.Baseline) types.RegressionReport {
	return CompareWith(DefaultRules, current, baseline)
}

// CompareWith evaluates rules in order. The overall verdict is the worst verdict
// of the non-informational rows, raised to fail when a gating rule is violated;
// the gate fails exactly when the overall verdict is fail. Informational rows
// still carry their own verdict and issue.
func CompareWith(rules []Rule, current types.Summary, baseline types.Baseline) types.RegressionReport {
	rep := types.RegressionReport{
		BaselineSourceID:   baseline.SourceID,
		BaselineCapturedAt: baseline.CapturedAt,
		Metrics:            make([]types.MetricComparison, 0, len(rules)),
		Overall:            types.VerdictOK,
		Issues:             []string{},
	}
	violatedMetrics := map[string]bool{}
	for _, rule := range rules {
		if rule.SkipIfViolated != "" && violatedMetrics[rule.SkipIfViolated] {
			rep.Metrics = append(rep.Metrics, rule.skipped(current, baseline.Summary))
			continue
		}
		mc, violated, issue := rule.evaluate(current, baseline.Summary)
		rep.Metrics = append(rep.Metrics, mc)
		if violated {
			violatedMetrics[rule.Metric] = true
		}
		if issue != "" {
			rep.Issues = append(rep.Issues, issue)
		}
		if rule.Informational {
			continue
		}
		if mc.Verdict.Rank() > rep.Overall.Rank() {
			rep.Overall = mc.Verdict
		}
		if violated && rule.Gating {
			rep.Overall = types.VerdictFail
		}
	}
	rep.GateFailed = rep.Overall == types.VerdictFail
	return rep
}

func (r Rule) evaluate(current, baseline types.Summary) (types.MetricComparison, bool, string) {
	cur, base := r.value(current), r.value(baseline)
	mc := types.MetricComparison{
		Metric:        r.Metric,
		Baseline:      base,
		Current:       cur,
		Verdict:       types.VerdictOK,
		Gating:        r.Gating,
		Informational: r.Informational,
	}
	switch {
	case cur == nil:
		mc.Verdict = types.VerdictWarn
		mc.Note = "no successful requests in current run"
		return mc, false, fmt.Sprintf("%s unavailable: no successful requests in current run", r.Label)
	case base == nil:
		mc.Verdict = types.VerdictWarn
		mc.Note = "baseline has no value for this metric"
		return mc, false, fmt.Sprintf("%s not compared: baseline has no value", r.Label)
	}

	delta, defined := relativeDelta(*cur, *base)
	if defined {
		mc.RelativeDelta = types.Float(delta)
	}

	var measured float64
	switch r.Mode {
	case Level:
		measured = *cur
	case Increase:
		measured = *cur - *base
	case Ratio:
		measured = ratio(*cur, *base)
	default:
		if !defined {
			return r.zeroBaseline(mc)
		}
		measured = delta
		if r.HigherIsBetter {
			measured = -delta
		}
		if r.Mode == Magnitude {
			measured = math.Abs(delta)
		}
	}

	switch {
	case r.Fail > 0 && measured > r.Fail:
		mc.Verdict = types.VerdictFail
	case r.Warn > 0 && measured > r.Warn:
		mc.Verdict = types.VerdictWarn
	default:
		return mc, false, ""
	}
	return mc, true, r.message(mc, *cur, *base, delta)
}

// zeroBaseline handles a relative rule whose baseline is zero and whose current
// value is not. The change is unbounded, so it is flagged instead of scored.
func (r Rule) zeroBaseline(mc types.MetricComparison) (types.MetricComparison, bool, string) {
	mc.Note = "baseline is zero; relative change undefined"
	if r.HigherIsBetter {
		return mc, false, ""
	}
	mc.Verdict = types.VerdictWarn
	return mc, false, fmt.Sprintf("%s changed from a zero baseline to %s; relative change undefined", r.Label, r.format(*mc.Current))
}

// skipped reports a row made redundant by an earlier violation.
func (r Rule) skipped(current, baseline types.Summary) types.MetricComparison {
	mc := types.MetricComparison{
		Metric:        r.Metric,
		Baseline:      r.value(baseline),
		Current:       r.value(current),
		Verdict:       types.VerdictOK,
		Gating:        r.Gating,
		Informational: r.Informational,
		Note:          "covered by " + r.SkipIfViolated,
	}
	if mc.Current != nil && mc.Baseline != nil {
		if d, ok := relativeDelta(*mc.Current, *mc.Baseline); ok {
			mc.RelativeDelta = types.Float(d)
		}
	}
	return mc
}

func ratio(cur, base float64) float64 {
	switch {
	case cur == 0:
		return 0
	case base == 0:
		return math.Inf(1)
	}
	return cur / base
}

func relativeDelta(cur, base float64) (float64, bool) {
	if base == 0 {
		if cur == 0 {
			return 0, true
		}
		return 0, false
	}
	return (cur - base) / base, true
}

func (r Rule) message(mc types.MetricComparison, cur, base, delta float64) string {
	vs := fmt.Sprintf("%s vs %s baseline", r.format(cur), r.format(base))
	switch r.Mode {
	case Level:
		return fmt.Sprintf("%s exceeds %s: %s (baseline: %s)", r.Label, r.threshold(), r.format(cur), r.format(base))
	case Increase:
		return fmt.Sprintf("%s increased: %s (threshold: %s)", r.Label, vs, r.threshold())
	case Magnitude:
		return fmt.Sprintf("%s changed by %+.1f%%: %s", r.Label, delta*100, vs)
	case Ratio:
		return fmt.Sprintf("%s increased significantly: %s (baseline: %s)", r.Label, r.format(cur), r.format(base))
	}
	if r.HigherIsBetter {
		return fmt.Sprintf("%s dropped by %.1f%%: %s", r.Label, -delta*100, vs)
	}
	if mc.Verdict == types.VerdictFail {
		return fmt.Sprintf("%s regressed by %.1f%%: %s (threshold: %s)", r.Label, delta*100, vs, r.threshold())
	}
	return fmt.Sprintf("%s increased by %.1f%%: %s", r.Label, delta*100, vs)
}
