package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/lattice-substrate/tz-validation/entrycache"
	"github.com/lattice-substrate/tz-validation/metrics"
	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/oracle/gotime"
	"github.com/lattice-substrate/tz-validation/oracle/table"
	"github.com/lattice-substrate/tz-validation/profile"
	"github.com/lattice-substrate/tz-validation/sampler"
	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

type generateFlags struct {
	logFlags
	profile     string
	output      string
	metricsPath string
	overrides   profile.Profile
}

func (g *generateFlags) register(fs *pflag.FlagSet) {
	def := profile.Default()
	o := &g.overrides
	fs.StringVar(&g.profile, "profile", "", "generation profile (YAML or JSON)")
	fs.IntVar(&o.StartYear, "start", def.StartYear, "first year sampled")
	fs.IntVar(&o.UntilYear, "until", def.UntilYear, "year sampling stops before")
	fs.IntVar(&o.EpochYear, "epoch-year", def.EpochYear, "year of the reference epoch")
	fs.IntVar(&o.SamplingInterval, "interval", def.SamplingInterval, "transition search step in hours")
	fs.BoolVar(&o.DetectDST, "detect-dst", def.DetectDST, "treat DST-only changes as transitions")
	fs.BoolVar(&o.CheckOverlap, "check-overlap", def.CheckOverlap, "avoid sample times that occur twice")
	fs.BoolVar(&o.YearEnd, "year-end", def.YearEnd, "add a Dec 31 23:00 sample per year")
	fs.StringVar(&o.Resolution, "resolution", def.Resolution, "transition resolution: second or minute")
	fs.StringVar(&o.Source, "source", def.Source, "oracle source: gotime or replay")
	fs.StringVar(&o.ReplayFile, "replay", "", "document replayed by the replay source")
	fs.StringVar(&o.Scope, "scope", def.Scope, "scope written to the document header")
	fs.StringSliceVar(&o.Zones, "zone", nil, "zone to sample (repeatable)")
	fs.StringVar(&o.ZonesFile, "zones-file", "", "file listing zones, one per line")
	fs.IntVar(&o.Workers, "workers", 0, "zones sampled in parallel (0 = GOMAXPROCS)")
	fs.StringVar(&o.CacheDir, "cache-dir", "", "directory of the persistent entry cache")
	fs.StringVarP(&g.output, "output", "o", "-", "output file, - for stdout")
	fs.StringVar(&g.metricsPath, "metrics", "", "write Prometheus textfile metrics to this path")
	g.logFlags.register(fs)
}

// resolve loads the profile, if any, and applies every flag set explicitly.
func (g *generateFlags) resolve(fs *pflag.FlagSet) (*profile.Profile, error) {
	p := profile.Default()
	if g.profile != "" {
		loaded, err := profile.Load(g.profile)
		if err != nil {
			return nil, err
		}
		p = *loaded
	}
	o := &g.overrides
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"start", func() { p.StartYear = o.StartYear }},
		{"until", func() { p.UntilYear = o.UntilYear }},
		{"epoch-year", func() { p.EpochYear = o.EpochYear }},
		{"interval", func() { p.SamplingInterval = o.SamplingInterval }},
		{"detect-dst", func() { p.DetectDST = o.DetectDST }},
		{"check-overlap", func() { p.CheckOverlap = o.CheckOverlap }},
		{"year-end", func() { p.YearEnd = o.YearEnd }},
		{"resolution", func() { p.Resolution = o.Resolution }},
		{"source", func() { p.Source = o.Source }},
		{"replay", func() { p.ReplayFile = o.ReplayFile }},
		{"scope", func() { p.Scope = o.Scope }},
		{"zone", func() { p.Zones = append(p.Zones, o.Zones...) }},
		{"zones-file", func() { p.ZonesFile = o.ZonesFile }},
		{"workers", func() { p.Workers = o.Workers }},
		{"cache-dir", func() { p.CacheDir = o.CacheDir }},
	}
	for _, ov := range overrides {
		if fs.Changed(ov.flag) {
			ov.apply()
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func cmdGenerate(args []string, _ io.Reader, stdout io.Writer, stderr io.Writer) int {
	var fl generateFlags
	fs := newFlagSet("generate", stderr)
	fl.register(fs)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() > 0 {
		return writeClassifiedError(stderr, tzverr.Newf(tzverr.CLIUsage, "unexpected argument %q", fs.Arg(0)))
	}
	logger := fl.logger(stderr)

	p, err := fl.resolve(fs)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	cfg, err := p.SamplerConfig()
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	s, err := sampler.New(cfg)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	provider, replayed, err := openProvider(p)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	zones, err := p.ZoneList()
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if len(zones) == 0 && replayed != nil {
		zones = replayed.ZoneNames()
	}
	if len(zones) == 0 {
		return writeClassifiedError(stderr, tzverr.New(tzverr.CLIUsage, "no zones given; use --zone, --zones-file or a profile"))
	}

	var cache sampler.Cache
	if p.CacheDir != "" {
		c, err := entrycache.Open(p.CacheDir)
		if err != nil {
			return writeClassifiedError(stderr, tzverr.Wrap(tzverr.InternalIO, "open cache", err))
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("close cache", "error", err)
			}
		}()
		cache = c
	}

	var m *metrics.Metrics
	if fl.metricsPath != "" {
		m = metrics.New()
	}

	info := provider.Info()
	logger.Info("generating",
		"source", info.Source,
		"version", info.Version,
		"zones", len(zones),
		"start_year", p.StartYear,
		"until_year", p.UntilYear,
		"epoch_year", p.EpochYear,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	gen := sampler.NewGenerator(provider, s, sampler.GeneratorOptions{
		Logger:  logger,
		Workers: p.Workers,
		Cache:   cache,
		Metrics: m,
		Scope:   p.Scope,
	})
	doc, err := gen.Generate(ctx, zones)
	if err != nil {
		return writeClassifiedError(stderr, tzverr.Wrap(tzverr.InternalError, "generate", err))
	}

	if err := storeDocument(fl.output, doc, stdout); err != nil {
		return writeClassifiedError(stderr, err)
	}
	writeMetrics(logger, m, fl.metricsPath)
	logger.Info("generated", "zones", len(doc.TestData), "skipped", len(zones)-len(doc.TestData), "output", fl.output)
	return tzverr.ExitSuccess
}

// openProvider returns the oracle provider named by the profile. For the
// replay source the replayed document is returned too.
func openProvider(p *profile.Profile) (oracle.Provider, *valdata.ValidationData, error) {
	switch p.Source {
	case profile.SourceReplay:
		d, err := valdata.Load(p.ReplayFile)
		if err != nil {
			return nil, nil, err
		}
		provider, err := table.Replay(d)
		if err != nil {
			return nil, nil, tzverr.Wrap(tzverr.InvalidDocument, "replay "+p.ReplayFile, err)
		}
		return provider, d, nil
	default:
		return gotime.NewProvider(), nil, nil
	}
}

func writeMetrics(logger *slog.Logger, m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Warn("metrics not written", "error", err)
	}
}
