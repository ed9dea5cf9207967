package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/compare"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/config"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/exitcode"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/hash"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/report"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openStore is swapped in tests.
var openStore = store.Open

func newCompareCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a results file against the baseline, or promote it to the baseline",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, log, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			cfg := config.LoadCompare(v)
			if cfg.SetBaseline {
				return setBaseline(cmd.Context(), cmd.OutOrStdout(), log, cfg)
			}
			return runCompare(cmd.Context(), cmd.OutOrStdout(), log, cfg)
		},
	}
	f := cmd.Flags()
	f.String("current", "bench_results.json", "current results file")
	f.String("baseline", "baseline.json", "baseline location: a file path or oci://<ref>")
	f.Bool("set-baseline", false, "store the current results as the new baseline")
	f.String("source-id", "", "baseline provenance id (default: git HEAD, else \"local\")")
	f.Bool("quiet", false, "print the text report only when the gate fails")
	f.String("format", "text", "output format: text, json or md")
	f.String("out", "", "write the report to this file instead of stdout")
	return cmd
}

func setBaseline(ctx context.Context, out io.Writer, log *zap.Logger, cfg config.Compare) error {
	current, err := report.ReadSummary(cfg.Current)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Baseline)
	if err != nil {
		return fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	}
	sourceID := cfg.SourceID
	if sourceID == "" {
		sourceID = readGitSHA()
	}
	if sourceID == "" {
		sourceID = "local"
	}
	b, err := st.Save(ctx, current, sourceID)
	if err != nil {
		return err
	}
	digest, err := hash.Digest(b)
	if err != nil {
		return err
	}
	log.Info("baseline stored", zap.String("location", st.Location()), zap.String("source_id", sourceID), zap.String("digest", digest))

	fmt.Fprintf(out, "Baseline set from %s to %s\n", cfg.Current, st.Location())
	if p95 := current.Latency.P95MS; p95 != nil {
		fmt.Fprintf(out, "   P95 latency: %.2f ms\n", *p95)
	} else {
		fmt.Fprintln(out, "   P95 latency: n/a")
	}
	fmt.Fprintf(out, "   Error rate:  %.2f%%\n", current.ErrorRate*100)
	fmt.Fprintf(out, "   Source:      %s\n", sourceID)
	fmt.Fprintf(out, "   Digest:      %s\n", digest)
	return nil
}

func runCompare(ctx context.Context, out io.Writer, log *zap.Logger, cfg config.Compare) error {
	if err := oneOf("format", cfg.Format, "text", "json", "md"); err != nil {
		return err
	}
	current, err := report.ReadSummary(cfg.Current)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Baseline)
	if err != nil {
		return fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	}
	baseline, err := st.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrBaselineUnavailable) {
			return fmt.Errorf("%w (run with --set-baseline to create one from current results)", err)
		}
		return err
	}

	rep := compare.Compare(current, baseline)
	log.Info("comparison finished",
		zap.String("baseline", st.Location()),
		zap.String("overall", string(rep.Overall)),
		zap.Bool("gate_failed", rep.GateFailed),
		zap.Int("issues", len(rep.Issues)),
	)

	var buf bytes.Buffer
	switch cfg.Format {
	case "json":
		raw, err := report.EncodeJSON(rep)
		if err != nil {
			return err
		}
		buf.Write(raw)
	case "md":
		buf.WriteString(report.BuildComparisonMarkdown(rep))
	default:
		if !cfg.Quiet || rep.GateFailed {
			report.WriteComparisonText(&buf, rep, current, baseline)
		}
	}
	if err := emit(out, cfg.Out, buf.Bytes()); err != nil {
		return err
	}

	if rep.GateFailed {
		return gateFailed("performance regression detected against baseline %s", baseline.SourceID)
	}
	return nil
}

// emit writes a rendered report to path, or to out when path is empty.
func emit(out io.Writer, path string, body []byte) error {
	if path == "" {
		_, err := out.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
