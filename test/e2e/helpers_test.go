//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/loadgen"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/stats"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// startTarget serves a generation endpoint that sleeps for delay and answers
// with status. Non-200 statuses carry a plain-text body.
func startTarget(t *testing.T, delay time.Duration, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		if status != http.StatusOK {
			http.Error(w, "upstream failure", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ok","tokens_per_sec":50}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func prompts() []loadgen.Prompt {
	return []loadgen.Prompt{
		{Prompt: "What is tail latency?", MaxTokens: 64, Temperature: 0.7},
		{Prompt: "Name one scaling strategy.", MaxTokens: 32, Temperature: 0.2},
	}
}

// loadRun drives n requests through c workers and summarizes the result.
func loadRun(t *testing.T, baseURL string, n, c int) types.Summary {
	t.Helper()
	rep, err := loadgen.Run(context.Background(), loadgen.Options{
		Endpoint:       loadgen.Endpoint(baseURL, "/generate"),
		Requests:       n,
		Concurrency:    c,
		Prompts:        prompts(),
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	if len(rep.Results) != n {
		t.Fatalf("results = %d, want %d", len(rep.Results), n)
	}
	s := stats.Summarize(rep.Results, c, rep.Duration)
	s.Timestamp = rep.StartedAt.Format(time.RFC3339)
	s.BaseURL = baseURL
	return s
}
