package stats

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func success(i uint64, latencyMS, tps float64) types.RequestResult {
	status := 200
	return types.RequestResult{
		Index:        i,
		Latency:      ms(latencyMS),
		Outcome:      types.OutcomeSuccess,
		HTTPStatus:   &status,
		TokensPerSec: types.Float(tps),
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	assert.InDelta(t, 30.0, Percentile(sorted, 0.50), 1e-9)
	assert.InDelta(t, 48.0, Percentile(sorted, 0.95), 1e-9)
	assert.InDelta(t, 49.6, Percentile(sorted, 0.99), 1e-9)
	assert.Equal(t, 10.0, Percentile(sorted, 0))
	assert.Equal(t, 50.0, Percentile(sorted, 1))
}

func TestPercentileEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.95))
	assert.InDelta(t, 15.0, Percentile([]float64{10, 20}, 0.5), 1e-9)
}

func TestLatencyFiveSamples(t *testing.T) {
	l := Latency([]float64{50, 10, 40, 20, 30})

	require.NotNil(t, l.P50MS)
	assert.InDelta(t, 10.0, *l.MinMS, 1e-9)
	assert.InDelta(t, 50.0, *l.MaxMS, 1e-9)
	assert.InDelta(t, 30.0, *l.MeanMS, 1e-9)
	assert.InDelta(t, 30.0, *l.P50MS, 1e-9)
	assert.InDelta(t, 48.0, *l.P95MS, 1e-9)
	// population stddev of 10..50 step 10
	assert.InDelta(t, math.Sqrt(200), *l.StdDevMS, 1e-9)
}

func TestLatencySingleSampleHasZeroSpread(t *testing.T) {
	l := Latency([]float64{12.5})
	require.NotNil(t, l.StdDevMS)
	assert.Equal(t, 0.0, *l.StdDevMS)
	assert.Equal(t, 12.5, *l.P99MS)
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	status := 503
	results := []types.RequestResult{
		success(0, 10, 40),
		success(1, 20, 60),
		{Index: 2, Latency: ms(5), Outcome: types.OutcomeHTTPError, HTTPStatus: &status, Error: "HTTP 503"},
		success(3, 30, 50),
		{Index: 4, Latency: ms(1000), Outcome: types.OutcomeTimeout, Error: "request timeout"},
	}

	s := Summarize(results, 2, 2*time.Second)

	assert.Equal(t, 5, s.TotalRequests)
	assert.Equal(t, 3, s.Successful)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 2, s.Concurrency)
	assert.InDelta(t, 0.4, s.ErrorRate, 1e-12)
	assert.InDelta(t, 1.5, s.ThroughputRPS, 1e-12)
	require.NotNil(t, s.AvgTokensPerSec)
	assert.InDelta(t, 50.0, *s.AvgTokensPerSec, 1e-9)

	// failed requests are excluded from latency
	assert.InDelta(t, 30.0, *s.Latency.MaxMS, 1e-9)
	assert.InDelta(t, 20.0, *s.Latency.P50MS, 1e-9)

	assert.Equal(t, 1, s.Outcomes[types.OutcomeHTTPError])
	assert.Equal(t, 1, s.Outcomes[types.OutcomeTimeout])
	require.Len(t, s.Errors, 2)
	assert.Equal(t, uint64(2), s.Errors[0].Index)
	assert.Equal(t, 503, s.Errors[0].Status)
	assert.Equal(t, types.OutcomeTimeout, s.Errors[1].Outcome)
}

func TestSummarizeAllFailed(t *testing.T) {
	results := make([]types.RequestResult, 4)
	for i := range results {
		results[i] = types.RequestResult{Index: uint64(i), Outcome: types.OutcomeNetworkError, Error: "connection refused"}
	}

	s := Summarize(results, 1, time.Second)

	assert.Equal(t, 1.0, s.ErrorRate)
	assert.Equal(t, 0, s.Successful)
	assert.True(t, s.Latency.Empty())
	assert.Nil(t, s.Latency.MinMS)
	assert.Nil(t, s.Latency.P95MS)
	assert.Nil(t, s.Latency.StdDevMS)
	assert.Nil(t, s.AvgTokensPerSec)
	assert.Equal(t, 0.0, s.ThroughputRPS)
}

func TestSummarizeZeroDuration(t *testing.T) {
	s := Summarize([]types.RequestResult{success(0, 1, 1)}, 1, 0)
	assert.Equal(t, 0.0, s.ThroughputRPS)
}

func TestSummarizeInvariants_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("successful + failed = total and error rate in [0,1]", prop.ForAll(
		func(latencies []float64, failEvery int) bool {
			results := make([]types.RequestResult, len(latencies))
			for i, l := range latencies {
				if failEvery > 0 && i%failEvery == 0 {
					results[i] = types.RequestResult{Index: uint64(i), Outcome: types.OutcomeHTTPError}
					continue
				}
				results[i] = success(uint64(i), l, 10)
			}
			s := Summarize(results, 4, time.Second)
			if s.Successful+s.Failed != s.TotalRequests {
				return false
			}
			if s.ErrorRate < 0 || s.ErrorRate > 1 {
				return false
			}
			return (s.Successful == 0) == s.Latency.Empty()
		},
		gen.SliceOf(gen.Float64Range(0.1, 5000)),
		gen.IntRange(0, 5),
	))

	properties.Property("percentiles are bounded and monotone", prop.ForAll(
		func(samples []float64) bool {
			sort.Float64s(samples)
			p50 := Percentile(samples, 0.50)
			p95 := Percentile(samples, 0.95)
			p99 := Percentile(samples, 0.99)
			lo, hi := samples[0], samples[len(samples)-1]
			const eps = 1e-9
			return lo-eps <= p50 && p50 <= p95+eps && p95 <= p99+eps && p99 <= hi+eps
		},
		gen.SliceOfN(25, gen.Float64Range(0, 10000)),
	))

	properties.TestingRun(t)
}
