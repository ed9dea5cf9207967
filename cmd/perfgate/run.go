package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/config"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/exitcode"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/hash"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/loadgen"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/report"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/stats"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/telemetry"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const pushJob = "perfgate_run"

func newRunCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive concurrent load against an inference endpoint and write a results file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runLoad(cmd.Context(), cmd.OutOrStdout(), log, config.LoadRun(v))
		},
	}
	f := cmd.Flags()
	f.String("url", "http://localhost:8000", "base URL of the target")
	f.String("path", "/generate", "generation endpoint path")
	f.String("health-path", "/healthz", "health probe path")
	f.Bool("skip-health", false, "skip the health probe")
	f.IntP("num-requests", "n", 100, "number of requests")
	f.IntP("concurrency", "c", 1, "number of concurrent workers")
	f.String("prompts", "prompts.jsonl", "prompt set (JSONL)")
	f.StringP("output", "o", "bench_results.json", "results file")
	f.Duration("timeout", loadgen.DefaultRequestTimeout, "per-request timeout")
	f.Duration("deadline", 0, "overall run deadline (0 = none)")
	f.Float64("rate", 0, "max requests per second across workers (0 = unlimited)")
	f.Float64("max-error-rate", 0.05, "exit 1 when the error rate exceeds this")
	f.String("metrics-textfile", "", "write Prometheus metrics to this textfile")
	f.String("pushgateway", "", "push metrics to this Pushgateway URL")
	f.String("trace-out", "", "write OpenTelemetry spans as JSON to this file")
	return cmd
}

func runLoad(ctx context.Context, out io.Writer, log *zap.Logger, cfg config.Run) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxErrorRate < 0 || cfg.MaxErrorRate > 1 {
		return fmt.Errorf("%w: --max-error-rate must be within [0,1]", exitcode.ErrUsage)
	}

	prompts, err := loadgen.LoadPrompts(cfg.Prompts)
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidDocument, err)
	}
	if digest, _, err := hash.DigestFile(cfg.Prompts); err == nil {
		log.Info("prompts loaded", zap.String("path", cfg.Prompts), zap.Int("count", len(prompts)), zap.String("digest", digest))
	}

	recorder := telemetry.NewRecorder()
	runID := uuid.NewString()
	runLog := log.With(zap.String("run_id", runID))
	opts := loadgen.Options{
		Endpoint:       loadgen.Endpoint(cfg.URL, cfg.Path),
		Requests:       cfg.Requests,
		Concurrency:    cfg.Concurrency,
		Prompts:        prompts,
		RequestTimeout: cfg.Timeout,
		RunDeadline:    cfg.Deadline,
		RateLimit:      cfg.Rate,
		Observer:       recorder,
		Logger:         runLog,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	if cfg.TraceOut != "" {
		tf, err := os.Create(cfg.TraceOut)
		if err != nil {
			return err
		}
		defer tf.Close()
		shutdown, err := telemetry.SetupTracing(tf)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("trace flush failed", zap.Error(err))
			}
		}()
	}

	opts.Client = loadgen.NewHTTPClient(cfg.Concurrency)
	if !cfg.SkipHealth {
		status, err := loadgen.CheckHealth(ctx, opts.Client, cfg.URL, cfg.HealthPath)
		if err != nil {
			return err
		}
		if status < 200 || status > 299 {
			log.Warn("health check returned non-2xx status", zap.Int("status", status), zap.String("url", cfg.URL))
		}
	}

	rep, err := loadgen.Run(ctx, opts)
	if err != nil {
		return err
	}

	summary := stats.Summarize(rep.Results, cfg.Concurrency, rep.Duration)
	summary.RunID = runID
	summary.Timestamp = rep.StartedAt.Format(time.RFC3339)
	summary.BaseURL = cfg.URL
	recorder.RecordSummary(summary)

	report.WriteSummaryText(out, summary)
	if err := report.WriteJSON(cfg.Output, summary); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Output)

	if cfg.MetricsTextfile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return err
		}
	}
	if cfg.Pushgateway != "" {
		// A failed push does not invalidate the run.
		if err := recorder.Push(ctx, cfg.Pushgateway, pushJob); err != nil {
			runLog.Warn("metrics push failed", zap.Error(err))
		}
	}

	runLog.Info("run summarized",
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Float64("error_rate", summary.ErrorRate),
		zap.Float64("throughput_rps", summary.ThroughputRPS),
	)
	if summary.ErrorRate > cfg.MaxErrorRate {
		return gateFailed("error rate %.2f%% exceeds %.2f%%", summary.ErrorRate*100, cfg.MaxErrorRate*100)
	}
	return nil
}
