package types

import "time"

// Outcome classifies how a single request ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeHTTPError    Outcome = "http_error"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeTimeout      Outcome = "timeout"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeHTTPError, OutcomeNetworkError, OutcomeTimeout}

// RequestResult is the record of one dispatched (or abandoned) request.
// Index is the dispatch sequence number and never changes after assignment.
type RequestResult struct {
	Index        uint64        `json:"index"`
	Latency      time.Duration `json:"latency_ns"`
	Outcome      Outcome       `json:"outcome"`
	HTTPStatus   *int          `json:"http_status,omitempty"`
	TokensPerSec *float64      `json:"tokens_per_sec,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func (r RequestResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// LatencyMS reports the latency in fractional milliseconds.
func (r RequestResult) LatencyMS() float64 {
	return float64(r.Latency) / float64(time.Millisecond)
}
