package types

type Verdict string

const (
	VerdictOK   Verdict = "ok"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)

// Rank orders verdicts by severity so the worst one can be picked with a comparison.
func (v Verdict) Rank() int {
	switch v {
	case VerdictFail:
		return 2
	case VerdictWarn:
		return 1
	default:
		return 0
	}
}

// Tracked metric names shared by the comparator and the threshold evaluator.
const (
	MetricP50             = "p50_ms"
	MetricP95             = "p95_ms"
	MetricP99             = "p99_ms"
	MetricThroughput      = "throughput_rps"
	MetricErrorRate       = "error_rate"
	MetricFailedRequests  = "failed_requests"
	// MetricErrorRateGrowth is the error rate relative to the baseline error rate.
	MetricErrorRateGrowth = "error_rate_growth"
)

type MetricComparison struct {
	Metric        string   `json:"metric"`
	Baseline      *float64 `json:"baseline"`
	Current       *float64 `json:"current"`
	RelativeDelta *float64 `json:"relative_delta"`
	Verdict       Verdict  `json:"verdict"`
	Gating        bool     `json:"gating,omitempty"`
	Informational bool     `json:"informational,omitempty"`
	Note          string   `json:"note,omitempty"`
}

// RegressionReport carries no wall-clock data, so equal inputs always marshal identically.
type RegressionReport struct {
	BaselineSourceID   string             `json:"baseline_source_id"`
	BaselineCapturedAt string             `json:"baseline_captured_at,omitempty"`
	Metrics            []MetricComparison `json:"metrics"`
	Overall            Verdict            `json:"overall"`
	GateFailed         bool               `json:"gate_failed"`
	Issues             []string           `json:"issues"`
}
