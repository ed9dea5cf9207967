package loadgen

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrConfig marks run parameters that can never produce a valid run.
	ErrConfig = errors.New("invalid load configuration")
	// ErrTargetUnavailable is returned when the target cannot be reached before a run.
	ErrTargetUnavailable = errors.New("target unavailable")
	// ErrSchema marks a 2xx response whose body is not a generation result.
	ErrSchema = errors.New("response schema mismatch")
)

const (
	DefaultMaxTokens      = 100
	DefaultTemperature    = 0.7
	DefaultRequestTimeout = 30 * time.Second
)

// Prompt is one entry of the prompt set. Requests cycle through prompts in order.
type Prompt struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Observer receives every result as soon as its slot is written. Implementations
// must be safe for concurrent use.
type Observer interface {
	Observe(types.RequestResult)
}

type Options struct {
	// Endpoint is the full URL requests are POSTed to.
	Endpoint       string
	Requests       int
	Concurrency    int
	Prompts        []Prompt
	RequestTimeout time.Duration
	// RunDeadline bounds the whole run. Zero means unbounded.
	RunDeadline time.Duration
	// RateLimit caps dispatches per second across all workers. Zero disables it.
	RateLimit float64

	Client   *http.Client
	Observer Observer
	// Logger gains trace_id and span_id of the run span.
	Logger *zap.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Validate reports settings that can never produce a valid run. It makes no
// network calls, so callers can check a configuration before probing the target.
func (o Options) Validate() error {
	if o.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrConfig)
	}
	u, err := url.Parse(o.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: endpoint %q is not an absolute URL", ErrConfig, o.Endpoint)
	}
	if o.Requests < 1 {
		return fmt.Errorf("%w: request count must be >= 1, got %d", ErrConfig, o.Requests)
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrConfig, o.Concurrency)
	}
	if len(o.Prompts) == 0 {
		return fmt.Errorf("%w: prompt set is empty", ErrConfig)
	}
	if o.RequestTimeout < 0 || o.RunDeadline < 0 || o.RateLimit < 0 {
		return fmt.Errorf("%w: timeouts and rate limit must not be negative", ErrConfig)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Client == nil {
		o.Client = NewHTTPClient(o.Concurrency)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	return o
}
