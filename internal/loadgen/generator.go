package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/logging"
	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	tracerName      = "github.com/ogulcanaydogan/llm-perf-gate/internal/loadgen"
	maxResponseBody = 1 << 20
	errorSnippetLen = 100
)

// Report is the raw outcome of a run: exactly one result per request, in index order.
type Report struct {
	Results   []types.RequestResult
	StartedAt time.Time
	Duration  time.Duration
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	TokensPerSec *float64 `json:"tokens_per_sec"`
}

type runner struct {
	opts    Options
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// Run drives Options.Requests requests through exactly Options.Concurrency
// workers. Each worker claims the next unclaimed index and writes only that
// slot of a preallocated arena, so every index is dispatched at most once and
// recorded exactly once. Per-request failures are recorded as outcomes; the
// only errors returned are configuration errors raised before any network call.
func Run(ctx context.Context, opts Options) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	opts = opts.withDefaults()

	tracer := opts.TracerProvider.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "loadgen.run", trace.WithAttributes(
		attribute.String("endpoint", opts.Endpoint),
		attribute.Int("requests", opts.Requests),
		attribute.Int("concurrency", opts.Concurrency),
	))
	defer span.End()
	opts.Logger = logging.WithContext(ctx, opts.Logger)

	r := &runner{opts: opts, tracer: tracer}
	if opts.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	runCtx := ctx
	if opts.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.RunDeadline)
		defer cancel()
	}

	results := make([]types.RequestResult, opts.Requests)
	total := uint64(opts.Requests)
	var next atomic.Uint64

	opts.Logger.Info("load run starting",
		zap.String("endpoint", opts.Endpoint),
		zap.Int("requests", opts.Requests),
		zap.Int("concurrency", opts.Concurrency),
		zap.Int("prompts", len(opts.Prompts)),
	)

	started := time.Now()
	var g errgroup.Group
	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for {
				i := next.Add(1) - 1
				if i >= total {
					return nil
				}
				res := r.dispatch(runCtx, i)
				results[i] = res
				if opts.Observer != nil {
					opts.Observer.Observe(res)
				}
			}
		})
	}
	_ = g.Wait()
	elapsed := time.Since(started)

	for i := range results {
		if results[i].Outcome == "" {
			err := fmt.Errorf("result slot %d was never written", i)
			span.SetStatus(codes.Error, err.Error())
			return Report{}, err
		}
	}

	opts.Logger.Info("load run finished", zap.Duration("duration", elapsed))
	return Report{Results: results, StartedAt: started.UTC(), Duration: elapsed}, nil
}

func (r *runner) dispatch(ctx context.Context, index uint64) types.RequestResult {
	res := types.RequestResult{Index: index}
	if err := ctx.Err(); err != nil {
		res.Outcome = types.OutcomeTimeout
		res.Error = "run deadline reached before dispatch"
		return res
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			res.Outcome = types.OutcomeTimeout
			res.Error = "run deadline reached while rate limited"
			return res
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()
	reqCtx, span := r.tracer.Start(reqCtx, "loadgen.request", trace.WithAttributes(
		attribute.Int64("request.index", int64(index)),
	))
	defer span.End()

	res = r.send(reqCtx, index)
	span.SetAttributes(attribute.String("request.outcome", string(res.Outcome)))
	if !res.Succeeded() {
		span.SetStatus(codes.Error, res.Error)
		r.opts.Logger.Debug("request failed",
			zap.Uint64("index", index),
			zap.String("outcome", string(res.Outcome)),
			zap.String("error", res.Error),
		)
	}
	return res
}

func (r *runner) send(ctx context.Context, index uint64) types.RequestResult {
	res := types.RequestResult{Index: index}
	p := r.opts.Prompts[index%uint64(len(r.opts.Prompts))]
	body, err := json.Marshal(generateRequest{Prompt: p.Prompt, MaxTokens: p.MaxTokens, Temperature: p.Temperature})
	if err != nil {
		res.Outcome = types.OutcomeNetworkError
		res.Error = fmt.Sprintf("encode request: %v", err)
		return res
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		res.Outcome = types.OutcomeNetworkError
		res.Error = fmt.Sprintf("build request: %v", err)
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := r.opts.Client.Do(req)
	if err != nil {
		res.Latency = time.Since(start)
		res.Outcome, res.Error = classifyTransport(ctx, err)
		return res
	}
	defer resp.Body.Close()
	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	res.Latency = time.Since(start)
	status := resp.StatusCode
	res.HTTPStatus = &status
	if readErr != nil {
		res.Outcome, res.Error = classifyTransport(ctx, readErr)
		return res
	}

	if status < 200 || status > 299 {
		res.Outcome = types.OutcomeHTTPError
		res.Error = fmt.Sprintf("HTTP %d: %s", status, snippet(payload))
		return res
	}
	tps, err := decodeTokensPerSec(payload)
	if err != nil {
		res.Outcome = types.OutcomeHTTPError
		res.Error = err.Error()
		return res
	}
	res.Outcome = types.OutcomeSuccess
	res.TokensPerSec = &tps
	return res
}

func decodeTokensPerSec(payload []byte) (float64, error) {
	var body generateResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if body.TokensPerSec == nil {
		return 0, fmt.Errorf("%w: tokens_per_sec missing", ErrSchema)
	}
	return *body.TokensPerSec, nil
}

// classifyTransport separates deadline and cancellation failures from other
// transport errors. Run cancellation counts as a timeout.
func classifyTransport(ctx context.Context, err error) (types.Outcome, string) {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.OutcomeTimeout, "request timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return types.OutcomeTimeout, "request timeout"
	}
	return types.OutcomeNetworkError, err.Error()
}

func snippet(b []byte) string {
	if len(b) > errorSnippetLen {
		b = b[:errorSnippetLen]
	}
	return string(bytes.TrimSpace(b))
}
