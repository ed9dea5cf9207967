package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testPrompts = []Prompt{{Prompt: "hello", MaxTokens: 10, Temperature: 0.1}}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"text":"hi","tokens_per_sec":42.5}`))
}

func sleepOrDone(r *http.Request, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

type countingObserver struct {
	n atomic.Int64
}

func (c *countingObserver) Observe(types.RequestResult) { c.n.Add(1) }

func requireCompleteArena(t *testing.T, results []types.RequestResult, n int) {
	t.Helper()
	require.Len(t, results, n)
	for i, r := range results {
		require.Equal(t, uint64(i), r.Index, "slot %d holds index %d", i, r.Index)
		require.NotEmpty(t, r.Outcome, "slot %d has no outcome", i)
	}
}

func TestRunAllSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(okHandler))
	defer srv.Close()

	obs := &countingObserver{}
	rep, err := Run(context.Background(), Options{
		Endpoint:    srv.URL + "/generate",
		Requests:    25,
		Concurrency: 4,
		Prompts:     testPrompts,
		Observer:    obs,
	})
	require.NoError(t, err)
	requireCompleteArena(t, rep.Results, 25)
	for _, r := range rep.Results {
		assert.Equal(t, types.OutcomeSuccess, r.Outcome)
		require.NotNil(t, r.TokensPerSec)
		assert.Equal(t, 42.5, *r.TokensPerSec)
		require.NotNil(t, r.HTTPStatus)
		assert.Equal(t, 200, *r.HTTPStatus)
	}
	assert.Equal(t, int64(25), obs.n.Load())
	assert.Greater(t, rep.Duration, time.Duration(0))
}

func TestRunStressFlakyTarget(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch {
		case n%7 == 0:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("overloaded"))
		case n%11 == 0:
			_, _ = w.Write([]byte(`not json`))
		case n%13 == 0:
			if !sleepOrDone(r, 500*time.Millisecond) {
				return
			}
			okHandler(w, r)
		default:
			if !sleepOrDone(r, time.Duration(n%5)*time.Millisecond) {
				return
			}
			okHandler(w, r)
		}
	}))
	defer srv.Close()

	const n = 400
	rep, err := Run(context.Background(), Options{
		Endpoint:       srv.URL + "/generate",
		Requests:       n,
		Concurrency:    64,
		Prompts:        []Prompt{{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"}},
		RequestTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	requireCompleteArena(t, rep.Results, n)

	counts := map[types.Outcome]int{}
	for _, r := range rep.Results {
		counts[r.Outcome]++
	}
	assert.Equal(t, n, counts[types.OutcomeSuccess]+counts[types.OutcomeHTTPError]+counts[types.OutcomeTimeout]+counts[types.OutcomeNetworkError])
	assert.Positive(t, counts[types.OutcomeHTTPError])
	assert.Positive(t, counts[types.OutcomeTimeout])
	assert.Positive(t, counts[types.OutcomeSuccess])
	assert.LessOrEqual(t, hits.Load(), int64(n), "no index may be dispatched twice")
}

func TestRunArenaProperty(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%3 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		okHandler(w, r)
	}))
	defer srv.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("N results with indices 0..N-1 for any N and C", prop.ForAll(
		func(n, c int) bool {
			rep, err := Run(context.Background(), Options{
				Endpoint:    srv.URL,
				Requests:    n,
				Concurrency: c,
				Prompts:     testPrompts,
			})
			if err != nil || len(rep.Results) != n {
				return false
			}
			for i, r := range rep.Results {
				if r.Index != uint64(i) || r.Outcome == "" {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 60),
		gen.IntRange(1, 24),
	))

	properties.TestingRun(t)
}

func TestRunRoundRobinPrompts(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body generateRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen = append(seen, body.Prompt)
		mu.Unlock()
		okHandler(w, r)
	}))
	defer srv.Close()

	_, err := Run(context.Background(), Options{
		Endpoint:    srv.URL,
		Requests:    5,
		Concurrency: 1,
		Prompts:     []Prompt{{Prompt: "a"}, {Prompt: "b"}},
	})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, seen)
}

func TestRunSendsPromptParameters(t *testing.T) {
	var mu sync.Mutex
	var got generateRequest
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		requestID = r.Header.Get("X-Request-Id")
		mu.Unlock()
		okHandler(w, r)
	}))
	defer srv.Close()

	_, err := Run(context.Background(), Options{
		Endpoint:    srv.URL,
		Requests:    1,
		Concurrency: 1,
		Prompts:     []Prompt{{Prompt: "explain", MaxTokens: 64, Temperature: 0.2}},
	})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, generateRequest{Prompt: "explain", MaxTokens: 64, Temperature: 0.2}, got)
	assert.NotEmpty(t, requestID)
}

func TestRunClassifiesOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    types.Outcome
		errLike string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			},
			want:    types.OutcomeHTTPError,
			errLike: "HTTP 502: upstream down",
		},
		{
			name: "unparseable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			want:    types.OutcomeHTTPError,
			errLike: ErrSchema.Error(),
		},
		{
			name: "missing tokens_per_sec",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"text":"hi"}`))
			},
			want:    types.OutcomeHTTPError,
			errLike: "tokens_per_sec missing",
		},
		{
			name: "non numeric tokens_per_sec",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"tokens_per_sec":"fast"}`))
			},
			want:    types.OutcomeHTTPError,
			errLike: ErrSchema.Error(),
		},
		{
			name: "slow response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if sleepOrDone(r, time.Second) {
					okHandler(w, r)
				}
			},
			want:    types.OutcomeTimeout,
			errLike: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			rep, err := Run(context.Background(), Options{
				Endpoint:       srv.URL,
				Requests:       2,
				Concurrency:    2,
				Prompts:        testPrompts,
				RequestTimeout: 50 * time.Millisecond,
			})
			require.NoError(t, err)
			for _, r := range rep.Results {
				assert.Equal(t, tt.want, r.Outcome)
				assert.Contains(t, r.Error, tt.errLike)
				assert.Nil(t, r.TokensPerSec)
			}
		})
	}
}

func TestRunUnreachableTargetIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(okHandler))
	endpoint := srv.URL
	srv.Close()

	rep, err := Run(context.Background(), Options{
		Endpoint:    endpoint,
		Requests:    3,
		Concurrency: 2,
		Prompts:     testPrompts,
	})
	require.NoError(t, err)
	requireCompleteArena(t, rep.Results, 3)
	for _, r := range rep.Results {
		assert.Equal(t, types.OutcomeNetworkError, r.Outcome)
		assert.Nil(t, r.HTTPStatus)
	}
}

func TestRunDeadlineMarksRemainingAsTimeout(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if sleepOrDone(r, 2*time.Second) {
			okHandler(w, r)
		}
	}))
	defer srv.Close()

	rep, err := Run(context.Background(), Options{
		Endpoint:       srv.URL,
		Requests:       30,
		Concurrency:    3,
		Prompts:        testPrompts,
		RequestTimeout: 5 * time.Second,
		RunDeadline:    100 * time.Millisecond,
	})
	require.NoError(t, err)
	requireCompleteArena(t, rep.Results, 30)
	for _, r := range rep.Results {
		assert.Equal(t, types.OutcomeTimeout, r.Outcome)
	}
	assert.LessOrEqual(t, hits.Load(), int64(3), "no request may be dispatched after the deadline")
	assert.Less(t, rep.Duration, 2*time.Second)
}

func TestRunRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(okHandler))
	defer srv.Close()

	rep, err := Run(context.Background(), Options{
		Endpoint:    srv.URL,
		Requests:    6,
		Concurrency: 6,
		Prompts:     testPrompts,
		RateLimit:   50,
	})
	require.NoError(t, err)
	requireCompleteArena(t, rep.Results, 6)
	// burst of one, then 20ms per token
	assert.GreaterOrEqual(t, rep.Duration, 80*time.Millisecond)
}

func TestRunRejectsInvalidConfigBeforeDispatch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		okHandler(w, r)
	}))
	defer srv.Close()

	base := Options{Endpoint: srv.URL, Requests: 1, Concurrency: 1, Prompts: testPrompts}
	tests := map[string]func(o *Options){
		"zero requests":    func(o *Options) { o.Requests = 0 },
		"zero concurrency": func(o *Options) { o.Concurrency = 0 },
		"no prompts":       func(o *Options) { o.Prompts = nil },
		"empty endpoint":   func(o *Options) { o.Endpoint = "" },
		"relative url":     func(o *Options) { o.Endpoint = "/generate" },
		"negative rate":    func(o *Options) { o.RateLimit = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := base
			mutate(&o)
			_, err := Run(context.Background(), o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
		})
	}
	assert.Zero(t, hits.Load())
}

func TestClassifyTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, _ := classifyTransport(ctx, errors.New("boom"))
	assert.Equal(t, types.OutcomeTimeout, outcome)

	outcome, msg := classifyTransport(context.Background(), fmt.Errorf("dial: %w", errors.New("connection refused")))
	assert.Equal(t, types.OutcomeNetworkError, outcome)
	assert.Contains(t, msg, "connection refused")
}

func TestRunLogsCarryRunTraceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(okHandler))
	defer srv.Close()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	core, logs := observer.New(zap.InfoLevel)

	_, err := Run(context.Background(), Options{
		Endpoint:       srv.URL,
		Requests:       2,
		Concurrency:    1,
		Prompts:        testPrompts,
		Logger:         zap.New(core),
		TracerProvider: tp,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("load run starting").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["trace_id"])
	assert.NotEmpty(t, fields["span_id"])
}

func TestValidateMakesNoNetworkCalls(t *testing.T) {
	err := Options{Endpoint: "http://127.0.0.1:1/generate", Requests: 0, Concurrency: 1, Prompts: testPrompts}.Validate()
	assert.ErrorIs(t, err, ErrConfig)
	err = Options{Endpoint: "http://127.0.0.1:1/generate", Requests: 1, Concurrency: 0, Prompts: testPrompts}.Validate()
	assert.ErrorIs(t, err, ErrConfig)
	assert.NoError(t, Options{Endpoint: "http://127.0.0.1:1/generate", Requests: 1, Concurrency: 1, Prompts: testPrompts}.Validate())
}
