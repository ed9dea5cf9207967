package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write default perfgate.yaml, thresholds.yaml and prompts.jsonl",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range []struct{ path, body string }{
				{"perfgate.yaml", defaultConfigYAML},
				{"thresholds.yaml", defaultThresholdsYAML},
				{"prompts.jsonl", defaultPromptsJSONL},
			} {
				if fileExists(f.path) {
					continue
				}
				if err := os.WriteFile(f.path, []byte(f.body), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "initialized perfgate config, thresholds and prompts")
			return nil
		},
	}
}

const defaultConfigYAML = `# Flag defaults. Flags and PERFGATE_* environment variables override these.
url: http://localhost:8000
path: /generate
health-path: /healthz
num-requests: 100
concurrency: 4
prompts: prompts.jsonl
output: bench_results.json
timeout: 30s
max-error-rate: 0.05

current: bench_results.json
baseline: baseline.json
format: text

results: bench_results.json
thresholds: thresholds.yaml
`

const defaultThresholdsYAML = `thresholds:
  p95_ms:
    warning: 100
    critical: 150
  p99_ms:
    critical: 200
  error_rate:
    warning: 0.01
    critical: 0.05
  throughput_rps:
    warning: 15
    critical: 10

remediation:
  gateway_deployment: llm-gateway
  backend_deployment: llm-backend
  config_map: llm-config
  gateway_selector: app=gateway
  scale_replicas: 5
  combined_replicas: 6
  emergency_replicas: 10
  reduced_max_tokens: 50
  log_tail: 100
`

const defaultPromptsJSONL = `{"prompt": "Explain the difference between latency and throughput.", "max_tokens": 100}
{"prompt": "Summarize the benefits of horizontal scaling in two sentences.", "max_tokens": 80}
{"prompt": "Write a haiku about load balancers.", "max_tokens": 40, "temperature": 0.9}
{"prompt": "List three causes of tail latency in inference services.", "max_tokens": 120}
`
