// Command tzval-gate runs the repository's verification gates in order and
// stops at the first failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/pflag"
)

type gateStep struct {
	label string
	args  []string
	race  bool
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var gateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}},
	{label: "unit tests", args: []string{"test", "./...", "-count=1"}},
	{label: "race tests", args: []string{"test", "./sampler", "./entrycache", "./metrics", "-race", "-count=1"}, race: true},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-v"}},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, realRunner{}))
}

func run(args []string, stdout, stderr io.Writer, runner commandRunner) int {
	var (
		skipRace bool
		list     bool
		timeout  time.Duration
	)
	fs := pflag.NewFlagSet("tzval-gate", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&skipRace, "skip-race", false, "skip the race detector step")
	fs.BoolVar(&list, "list", false, "print the gate steps and exit")
	fs.DurationVar(&timeout, "timeout", 30*time.Minute, "overall deadline for all steps")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		if err := writef(stderr, "error: unexpected argument %q\n", fs.Arg(0)); err != nil {
			return 1
		}
		return 2
	}

	steps := selectSteps(skipRace)
	if list {
		for _, step := range steps {
			if err := writef(stdout, "%s: go %v\n", step.label, step.args); err != nil {
				return 1
			}
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			if writeErr := writef(stderr, "gate failed: %s: %v\n", step.label, err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func selectSteps(skipRace bool) []gateStep {
	steps := make([]gateStep, 0, len(gateSteps))
	for _, step := range gateSteps {
		if skipRace && step.race {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
