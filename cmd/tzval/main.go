// Command tzval generates and compares time zone validation documents.
//
// Commands:
//
//	tzval generate [--profile file] [options] [--output file|-]
//	    Sample every listed zone through an oracle source and write a
//	    validation document (canonical JSON, zstd when the name ends in .zst).
//
//	tzval diff --observed file --expected file [--report file]
//	    Compare two documents. Diagnostics go to stdout, one per line.
//
//	tzval flatten [file|-]
//	    Print a document as a fixed-width listing.
//
//	tzval subset --start year --until year [--zone name]... [file|-]
//	    Restrict a document to a year range and zone list.
//
//	tzval canonicalize [--output file|-] [file|-]
//	    Validate a document and rewrite it in canonical form.
//
// Exit codes:
//
//	0  success, or documents equivalent
//	1  documents differ, or comparison precondition failed
//	2  usage error, invalid configuration, or malformed document
//	10 internal error
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

const usage = "usage: tzval <generate|diff|flatten|subset|canonicalize> [options]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		if err := writeLine(stderr, usage); err != nil {
			return tzverr.ExitInternal
		}
		return tzverr.ExitInvalid
	}

	switch args[0] {
	case "generate":
		return cmdGenerate(args[1:], stdin, stdout, stderr)
	case "diff":
		return cmdDiff(args[1:], stdin, stdout, stderr)
	case "flatten":
		return cmdFlatten(args[1:], stdin, stdout, stderr)
	case "subset":
		return cmdSubset(args[1:], stdin, stdout, stderr)
	case "canonicalize":
		return cmdCanonicalize(args[1:], stdin, stdout, stderr)
	case "help", "--help", "-h":
		if err := writeLine(stderr, usage); err != nil {
			return tzverr.ExitInternal
		}
		return tzverr.ExitSuccess
	default:
		if err := writef(stderr, "unknown command: %s\n", args[0]); err != nil {
			return tzverr.ExitInternal
		}
		if err := writeLine(stderr, usage); err != nil {
			return tzverr.ExitInternal
		}
		return tzverr.ExitInvalid
	}
}

// logFlags are shared by every command.
type logFlags struct {
	verbose bool
	quiet   bool
}

func (l *logFlags) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&l.verbose, "verbose", "v", false, "log debug detail to stderr")
	fs.BoolVarP(&l.quiet, "quiet", "q", false, "log warnings and errors only")
}

func (l *logFlags) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case l.quiet:
		level = slog.LevelWarn
	case l.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("tzval "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

// parse parses args and reports whether the command should continue. The
// returned exit code applies when it should not.
func parse(fs *pflag.FlagSet, args []string) (int, bool) {
	err := fs.Parse(args)
	if err == nil {
		return 0, true
	}
	if errors.Is(err, pflag.ErrHelp) {
		return tzverr.ExitSuccess, false
	}
	return tzverr.ExitInvalid, false
}

// inputPath returns the single positional argument, "-" when there is none.
func inputPath(fs *pflag.FlagSet) (string, error) {
	switch fs.NArg() {
	case 0:
		return "-", nil
	case 1:
		return fs.Arg(0), nil
	}
	return "", tzverr.New(tzverr.CLIUsage, "multiple input files specified")
}

// loadDocument reads a document from path, or from stdin for "-".
func loadDocument(path string, stdin io.Reader) (*valdata.ValidationData, error) {
	if path == "-" {
		d, err := valdata.Decode(stdin)
		if err != nil {
			return nil, fmt.Errorf("load stdin: %w", err)
		}
		return d, nil
	}
	return valdata.Load(path)
}

// storeDocument writes d to path, or to stdout for "-" or "".
func storeDocument(path string, d *valdata.ValidationData, stdout io.Writer) error {
	if path == "" || path == "-" {
		return valdata.Write(stdout, d)
	}
	return valdata.WriteFile(path, d)
}

func writeClassifiedError(stderr io.Writer, err error) int {
	class := tzverr.ClassOf(err)
	msg := err.Error()
	if !strings.Contains(msg, "tzverr: ") {
		msg = fmt.Sprintf("%s: %s", class, msg)
	}
	if werr := writef(stderr, "error: %s\n", msg); werr != nil {
		return tzverr.ExitInternal
	}
	return class.ExitCode()
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
