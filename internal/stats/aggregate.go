// Package stats reduces per-request results into a run summary.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"gonum.org/v1/gonum/stat"
)

// Summarize is pure: equal inputs produce equal summaries. Timestamp, base URL
// and run id are left for the caller to stamp.
func Summarize(results []types.RequestResult, concurrency int, duration time.Duration) types.Summary {
	s := types.Summary{
		TotalRequests: len(results),
		Concurrency:   concurrency,
		Outcomes:      make(map[types.Outcome]int, len(types.Outcomes)),
	}

	latencies := make([]float64, 0, len(results))
	tokens := make([]float64, 0, len(results))
	for _, r := range results {
		s.Outcomes[r.Outcome]++
		if !r.Succeeded() {
			s.Failed++
			re := types.RequestError{Index: r.Index, Outcome: r.Outcome, Error: r.Error}
			if r.HTTPStatus != nil {
				re.Status = *r.HTTPStatus
			}
			s.Errors = append(s.Errors, re)
			continue
		}
		s.Successful++
		latencies = append(latencies, r.LatencyMS())
		if r.TokensPerSec != nil {
			tokens = append(tokens, *r.TokensPerSec)
		}
	}

	s.DurationSeconds = duration.Seconds()
	if s.DurationSeconds > 0 {
		s.ThroughputRPS = float64(s.Successful) / s.DurationSeconds
	}
	if s.TotalRequests > 0 {
		s.ErrorRate = float64(s.Failed) / float64(s.TotalRequests)
	}
	if len(tokens) > 0 {
		s.AvgTokensPerSec = types.Float(stat.Mean(tokens, nil))
	}
	s.Latency = Latency(latencies)
	return s
}

// Latency computes latency statistics over the given samples in milliseconds.
// An empty input yields all-nil fields.
func Latency(samples []float64) types.LatencyStats {
	if len(samples) == 0 {
		return types.LatencyStats{}
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	return types.LatencyStats{
		MinMS:    types.Float(sorted[0]),
		MeanMS:   types.Float(mean),
		P50MS:    types.Float(Percentile(sorted, 0.50)),
		P95MS:    types.Float(Percentile(sorted, 0.95)),
		P99MS:    types.Float(Percentile(sorted, 0.99)),
		MaxMS:    types.Float(sorted[len(sorted)-1]),
		StdDevMS: types.Float(math.Sqrt(variance)),
	}
}

// Percentile returns the f-quantile (0 <= f <= 1) of an ascending slice using
// linear interpolation between the closest ranks at index f*(n-1).
func Percentile(sorted []float64, f float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || f <= 0 {
		return sorted[0]
	}
	if f >= 1 {
		return sorted[n-1]
	}
	idx := f * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
