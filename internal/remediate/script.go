package remediate

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
)

// ErrInvalidAction is returned when an action cannot be rendered as a script step.
var ErrInvalidAction = errors.New("invalid remediation action")

type ScriptOptions struct {
	// SettleDelay is slept after each action. Zero omits the sleep.
	SettleDelay time.Duration
	// StatusCommand runs once after every action has completed.
	StatusCommand string
	// Comments are extra header lines, written as shell comments.
	Comments []string
}

func DefaultScriptOptions() ScriptOptions {
	return ScriptOptions{SettleDelay: 2 * time.Second, StatusCommand: "kubectl get pods"}
}

// Emit renders actions, in the order given, as a bash script that stops at the
// first failing command. Every action is validated before anything is
// rendered, so a bad action never yields a partial script.
func Emit(actions []types.RemediationAction, opts ScriptOptions) (string, error) {
	for i, a := range actions {
		if err := validate(a); err != nil {
			return "", fmt.Errorf("%w: action %d (%s): %v", ErrInvalidAction, i+1, a.ActionType, err)
		}
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Auto-generated remediation script\n")
	for _, c := range opts.Comments {
		b.WriteString("# " + oneLine(c) + "\n")
	}
	b.WriteString(fmt.Sprintf("# Actions: %d\n\n", len(actions)))
	b.WriteString("set -e\n\n")
	b.WriteString("echo " + shellQuote("Starting auto-remediation...") + "\n\n")

	for i, a := range actions {
		desc := oneLine(a.Description)
		b.WriteString(fmt.Sprintf("# Action %d: %s\n", i+1, desc))
		b.WriteString("echo " + shellQuote("Executing: "+desc) + "\n")
		b.WriteString(strings.TrimSpace(a.Command) + "\n")
		if opts.SettleDelay > 0 {
			b.WriteString(fmt.Sprintf("sleep %s\n", seconds(opts.SettleDelay)))
		}
		b.WriteString("\n")
	}

	b.WriteString("echo " + shellQuote("Remediation complete") + "\n")
	if status := strings.TrimSpace(opts.StatusCommand); status != "" {
		b.WriteString(status + "\n")
	}
	return b.String(), nil
}

// WriteScript writes an emitted script with the executable bit set.
func WriteScript(path, script string) error {
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return err
	}
	return os.Chmod(path, 0o755)
}

func validate(a types.RemediationAction) error {
	cmd := strings.TrimSpace(a.Command)
	if cmd == "" {
		return errors.New("command is empty")
	}
	if strings.ContainsAny(cmd, "\n\r") {
		return errors.New("command spans multiple lines")
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func seconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d", d/time.Second)
	}
	return fmt.Sprintf("%g", d.Seconds())
}
