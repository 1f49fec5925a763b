package main

import (
	"io"

	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

func cmdFlatten(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := newFlagSet("flatten", stderr)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	path, err := inputPath(fs)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	d, err := loadDocument(path, stdin)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if err := valdata.Flatten(stdout, d); err != nil {
		return writeClassifiedError(stderr, tzverr.Wrap(tzverr.InternalIO, "write listing", err))
	}
	return tzverr.ExitSuccess
}

func cmdSubset(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var (
		start, until int
		zones        []string
		output       string
	)
	fs := newFlagSet("subset", stderr)
	fs.IntVar(&start, "start", 0, "first year kept")
	fs.IntVar(&until, "until", 0, "year the subset stops before")
	fs.StringSliceVar(&zones, "zone", nil, "zone kept (repeatable, default all)")
	fs.StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	path, err := inputPath(fs)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	d, err := loadDocument(path, stdin)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if !fs.Changed("start") {
		start = d.StartYear
	}
	if !fs.Changed("until") {
		until = d.UntilYear
	}
	sub, err := valdata.Subset(d, start, until, zones)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if err := storeDocument(output, sub, stdout); err != nil {
		return writeClassifiedError(stderr, err)
	}
	return tzverr.ExitSuccess
}

func cmdCanonicalize(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var output string
	fs := newFlagSet("canonicalize", stderr)
	fs.StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	path, err := inputPath(fs)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	d, err := loadDocument(path, stdin)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if err := storeDocument(output, d, stdout); err != nil {
		return writeClassifiedError(stderr, err)
	}
	return tzverr.ExitSuccess
}
