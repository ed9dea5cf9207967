package types

// Summary is the aggregate of one load run. It is also the on-disk results file.
type Summary struct {
	RunID           string          `json:"run_id,omitempty"`
	Timestamp       string          `json:"timestamp"`
	BaseURL         string          `json:"base_url"`
	TotalRequests   int             `json:"total_requests"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	Concurrency     int             `json:"concurrency"`
	DurationSeconds float64         `json:"duration_seconds"`
	ThroughputRPS   float64         `json:"throughput_rps"`
	ErrorRate       float64         `json:"error_rate"`
	Latency         LatencyStats    `json:"latency_stats"`
	AvgTokensPerSec *float64        `json:"avg_tokens_per_sec"`
	Outcomes        map[Outcome]int `json:"outcomes,omitempty"`
	Errors          []RequestError  `json:"errors,omitempty"`
}

// LatencyStats fields are nil when the run had no successful requests.
type LatencyStats struct {
	MinMS    *float64 `json:"min_ms"`
	MeanMS   *float64 `json:"mean_ms"`
	P50MS    *float64 `json:"p50_ms"`
	P95MS    *float64 `json:"p95_ms"`
	P99MS    *float64 `json:"p99_ms"`
	MaxMS    *float64 `json:"max_ms"`
	StdDevMS *float64 `json:"stddev_ms"`
}

func (l LatencyStats) Empty() bool {
	return l.P50MS == nil
}

type RequestError struct {
	Index   uint64  `json:"index"`
	Outcome Outcome `json:"outcome"`
	Status  int     `json:"status,omitempty"`
	Error   string  `json:"error"`
}

// Baseline is a Summary promoted to the reference point for later comparisons.
type Baseline struct {
	Summary
	SourceID   string `json:"source_id"`
	CapturedAt string `json:"captured_at,omitempty"`
}

// Float returns a pointer to v. Handy for optional metric fields.
func Float(v float64) *float64 {
	return &v
}
