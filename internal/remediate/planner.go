// Package remediate turns threshold violations into an ordered action plan and
// renders the plan as a shell script.
package remediate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

type violationSet map[string]types.Violation

func (vs violationSet) has(metric string, sev types.Severity) bool {
	v, ok := vs[metric]
	return ok && v.Severity == sev
}

func (vs violationSet) criticals() []types.Violation {
	var out []types.Violation
	for _, v := range vs {
		if v.Severity == types.SeverityCritical {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}

type claim struct {
	metric   string
	severity types.Severity
}

// rule is one row of the planner table. Rules are scanned in declaration order;
// a matching rule claims the violations it covers.
type rule struct {
	name     string
	claims   func(violationSet) []claim
	action   func(violationSet, Targets) types.RemediationAction
	suppress []types.ActionType
}

func single(metric string, sev types.Severity) func(violationSet) []claim {
	return func(vs violationSet) []claim {
		if vs.has(metric, sev) {
			return []claim{{metric, sev}}
		}
		return nil
	}
}

var rules = []rule{
	{
		name:   "p95 critical",
		claims: single(types.MetricP95, types.SeverityCritical),
		action: func(vs violationSet, t Targets) types.RemediationAction {
			v := vs[types.MetricP95]
			return types.RemediationAction{
				Priority:    types.PriorityImmediate,
				ActionType:  types.ActionScaleGateway,
				Description: fmt.Sprintf("Scale gateway to %d replicas", t.ScaleReplicas),
				Rationale:   fmt.Sprintf("P95 latency (%.2fms) exceeds critical threshold (%.2fms)", v.Observed, v.Limit),
				Command:     t.scale(t.GatewayDeployment, t.ScaleReplicas),
			}
		},
	},
	{
		name:   "p99 critical",
		claims: single(types.MetricP99, types.SeverityCritical),
		action: func(vs violationSet, t Targets) types.RemediationAction {
			v := vs[types.MetricP99]
			return types.RemediationAction{
				Priority:    types.PriorityImmediate,
				ActionType:  types.ActionScaleBackend,
				Description: fmt.Sprintf("Scale backend to %d replicas", t.ScaleReplicas),
				Rationale:   fmt.Sprintf("P99 latency (%.2fms) exceeds critical threshold (%.2fms)", v.Observed, v.Limit),
				Command:     t.scale(t.BackendDeployment, t.ScaleReplicas),
			}
		},
	},
	{
		name:   "error rate warning",
		claims: single(types.MetricErrorRate, types.SeverityWarning),
		action: func(vs violationSet, t Targets) types.RemediationAction {
			v := vs[types.MetricErrorRate]
			return types.RemediationAction{
				Priority:    types.PriorityHigh,
				ActionType:  types.ActionReduceLoad,
				Description: fmt.Sprintf("Reduce max_tokens to %d to decrease load", t.ReducedMaxTokens),
				Rationale:   fmt.Sprintf("Error rate (%.2f%%) exceeds warning threshold (%.2f%%)", v.Observed*100, v.Limit*100),
				Command:     fmt.Sprintf(`kubectl patch configmap %s -p '{"data":{"MAX_TOKENS":"%d"}}'`, t.ConfigMap, t.ReducedMaxTokens),
			}
		},
	},
	{
		name:   "error rate critical",
		claims: single(types.MetricErrorRate, types.SeverityCritical),
		action: func(vs violationSet, t Targets) types.RemediationAction {
			v := vs[types.MetricErrorRate]
			return types.RemediationAction{
				Priority:    types.PriorityImmediate,
				ActionType:  types.ActionRollback,
				Description: "Roll back to the previous stable version",
				Rationale:   fmt.Sprintf("Error rate (%.2f%%) exceeds critical threshold (%.2f%%)", v.Observed*100, v.Limit*100),
				Command:     t.undo(t.GatewayDeployment) + " && " + t.undo(t.BackendDeployment),
			}
		},
	},
	{
		name:   "throughput critical",
		claims: single(types.MetricThroughput, types.SeverityCritical),
		action: func(vs violationSet, t Targets) types.RemediationAction {
			v := vs[types.MetricThroughput]
			return types.RemediationAction{
				Priority:    types.PriorityImmediate,
				ActionType:  types.ActionScaleGateway,
				Description: fmt.Sprintf("Emergency scale gateway to %d replicas", t.EmergencyReplicas),
				Rationale:   fmt.Sprintf("Throughput (%.2f req/s) below critical threshold (%.2f req/s)", v.Observed, v.Limit),
				Command:     t.scale(t.GatewayDeployment, t.EmergencyReplicas),
			}
		},
	},
	{
		name: "combined criticals",
		claims: func(vs violationSet) []claim {
			crit := vs.criticals()
			if len(crit) < 2 {
				return nil
			}
			out := make([]claim, 0, len(crit))
			for _, v := range crit {
				out = append(out, claim{v.Metric, v.Severity})
			}
			return out
		},
		action: func(vs violationSet, t Targets) types.RemediationAction {
			crit := vs.criticals()
			metrics := make([]string, 0, len(crit))
			for _, v := range crit {
				metrics = append(metrics, v.Metric)
			}
			return types.RemediationAction{
				Priority:    types.PriorityImmediate,
				ActionType:  types.ActionCombined,
				Description: "Scale gateway and roll back",
				Rationale:   fmt.Sprintf("Multiple critical violations: %v", metrics),
				Command:     t.scale(t.GatewayDeployment, t.CombinedReplicas) + " && " + t.undo(t.GatewayDeployment),
			}
		},
		suppress: []types.ActionType{types.ActionScaleGateway, types.ActionRollback},
	},
}

// Plan maps a violation set to a deduplicated action list ordered by priority,
// with ties kept in rule order. Violations no rule claims are folded into a
// single investigate action. The empty set yields an empty plan.
func Plan(violations []types.Violation, t Targets) []types.RemediationAction {
	vs := make(violationSet, len(violations))
	for _, v := range violations {
		if cur, ok := vs[v.Metric]; ok && cur.Severity == types.SeverityCritical {
			continue
		}
		vs[v.Metric] = v
	}

	claimed := map[claim]bool{}
	suppressed := map[types.ActionType]bool{}
	var actions []types.RemediationAction
	for _, r := range rules {
		cs := r.claims(vs)
		if len(cs) == 0 {
			continue
		}
		for _, c := range cs {
			claimed[c] = true
		}
		for _, s := range r.suppress {
			suppressed[s] = true
		}
		actions = append(actions, r.action(vs, t))
	}

	out := make([]types.RemediationAction, 0, len(actions)+len(violations))
	seen := map[string]bool{}
	for _, a := range actions {
		if suppressed[a.ActionType] {
			continue
		}
		key := string(a.ActionType) + "\x00" + a.Command
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}

	var unclaimed []types.Violation
	for _, v := range violations {
		kept := vs[v.Metric]
		c := claim{kept.Metric, kept.Severity}
		if claimed[c] {
			continue
		}
		claimed[c] = true
		unclaimed = append(unclaimed, kept)
	}
	if len(unclaimed) > 0 {
		out = append(out, investigate(unclaimed, t))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func investigate(vs []types.Violation, t Targets) types.RemediationAction {
	names := make([]string, 0, len(vs))
	reasons := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, fmt.Sprintf("%s %s", v.Metric, v.Severity))
		reasons = append(reasons, fmt.Sprintf("%s=%g crossed %s threshold %g", v.Metric, v.Observed, v.Severity, v.Limit))
	}
	return types.RemediationAction{
		Priority:    types.PriorityLow,
		ActionType:  types.ActionInvestigate,
		Description: "Investigate " + strings.Join(names, ", "),
		Rationale:   strings.Join(reasons, "; ") + "; no automatic remediation applies",
		Command:     fmt.Sprintf("kubectl logs -l %s --tail=%d", t.GatewaySelector, t.LogTail),
	}
}
