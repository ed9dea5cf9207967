package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ogulcanaydogan/llm-perf-gate/internal/config"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/exitcode"
	"github.com/ogulcanaydogan/llm-perf-gate/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }
func (e cliError) Unwrap() error { return e.err }

func gateFailed(format string, args ...any) error {
	return cliError{code: exitcode.GateFailed, err: fmt.Errorf(format, args...)}
}

// codeFor resolves the process exit code of a command error.
func codeFor(err error) int {
	var ce cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitcode.For(err)
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "perfgate:", err)
		os.Exit(codeFor(err))
	}
}

type globals struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "perfgate",
		Short:         "Load, regression gate and remediation planning for LLM inference endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default ./perfgate.yaml if present)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "json", "log format: json or console")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	})

	root.AddCommand(newInitCommand())
	root.AddCommand(newRunCommand(g))
	root.AddCommand(newCompareCommand(g))
	root.AddCommand(newRemediateCommand(g))
	return root
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", exitcode.ErrUsage, args)
	}
	return nil
}

// setup resolves the command's settings and builds its logger.
func (g *globals) setup(cmd *cobra.Command) (*viper.Viper, *zap.Logger, error) {
	v, err := config.New(cmd.Flags(), g.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	}
	lc := config.LoadLogging(v)
	log, err := logging.New(logging.Config{Level: lc.Level, Format: lc.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	}
	return v, log.With(zap.String("command", cmd.Name())), nil
}

func oneOf(flag, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: --%s must be one of %s, got %q", exitcode.ErrUsage, flag, strings.Join(allowed, "|"), value)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readGitSHA returns the checked-out commit, or "" outside a git work tree.
func readGitSHA() string {
	out, err := exec.Command("git", "rev-parse", "--verify", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
