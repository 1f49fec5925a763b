package main

import (
	"io"

	"github.com/lattice-substrate/tz-validation/compare"
	"github.com/lattice-substrate/tz-validation/metrics"
	"github.com/lattice-substrate/tz-validation/tzverr"
)

func cmdDiff(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var (
		lf          logFlags
		observed    string
		expected    string
		reportPath  string
		metricsPath string
	)
	fs := newFlagSet("diff", stderr)
	fs.StringVar(&observed, "observed", "", "document under test")
	fs.StringVar(&expected, "expected", "", "baseline document (complete scope)")
	fs.StringVar(&reportPath, "report", "", "write the JSON report to this path")
	fs.StringVar(&metricsPath, "metrics", "", "write Prometheus textfile metrics to this path")
	lf.register(fs)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if observed == "" || expected == "" || fs.NArg() > 0 {
		return writeClassifiedError(stderr, tzverr.New(tzverr.CLIUsage, "diff requires --observed and --expected and no arguments"))
	}
	if observed == "-" && expected == "-" {
		return writeClassifiedError(stderr, tzverr.New(tzverr.CLIUsage, "only one document can be read from stdin"))
	}
	logger := lf.logger(stderr)

	logger.Info("reading", "observed", observed)
	obs, err := loadDocument(observed, stdin)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	logger.Info("reading", "expected", expected)
	exp, err := loadDocument(expected, stdin)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	report := compare.Compare(obs, exp)
	if !report.Checks.Abbrev && report.Fatal == nil {
		logger.Info("disabling validation for abbrev")
	}
	if !report.Checks.Dst && report.Fatal == nil {
		logger.Info("disabling validation for DST offset")
	}

	for _, d := range report.Diagnostics {
		if err := writeLine(stdout, d.String()); err != nil {
			return tzverr.ExitInternal
		}
	}
	if err := writeLine(stdout, report.Summary()); err != nil {
		return tzverr.ExitInternal
	}

	if reportPath != "" {
		if err := report.WriteJSON(reportPath); err != nil {
			return writeClassifiedError(stderr, err)
		}
		logger.Info("report written", "path", reportPath, "id", report.ID)
	}
	if metricsPath != "" {
		m := metrics.New()
		m.ObserveComparison(report.Valid, report.Categories())
		writeMetrics(logger, m, metricsPath)
	}

	if err := report.Err(); err != nil {
		logger.Warn("validation failed", "class", tzverr.ClassOf(err), "zones_failed", len(report.Failed))
		return tzverr.ClassOf(err).ExitCode()
	}
	return tzverr.ExitSuccess
}
