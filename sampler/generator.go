package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lattice-substrate/tz-validation/metrics"
	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// Cache stores finished entries between runs. Keys identify the oracle
// source, its version, the sampler settings, the digest of the zone's data and
// the zone.
type Cache interface {
	Get(key string) (valdata.TestEntry, bool, error)
	Put(key string, entry valdata.TestEntry) error
}

// GeneratorOptions are the optional collaborators of a Generator.
type GeneratorOptions struct {
	Logger  *slog.Logger
	Workers int
	Cache   Cache
	Metrics *metrics.Metrics
	// Scope is written to the document header; empty means complete.
	Scope string
}

// Generator runs a Sampler over a list of zones and assembles the document.
type Generator struct {
	provider oracle.Provider
	sampler  *Sampler
	logger   *slog.Logger
	workers  int
	cache    Cache
	metrics  *metrics.Metrics
	scope    string
}

// NewGenerator returns a Generator reading zones from provider.
func NewGenerator(provider oracle.Provider, s *Sampler, opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scope := opts.Scope
	if scope == "" {
		scope = valdata.ScopeComplete
	}
	return &Generator{
		provider: provider,
		sampler:  s,
		logger:   logger,
		workers:  workers,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		scope:    scope,
	}
}

// Generate samples every zone and returns the resulting document. Zones the
// provider does not know, and zones whose oracle fails, are logged and left
// out. Only cancellation of ctx fails the run.
func (g *Generator) Generate(ctx context.Context, zones []string) (*valdata.ValidationData, error) {
	info := g.provider.Info()
	cfg := g.sampler.Config()

	var mu sync.Mutex
	entries := make(map[string]valdata.TestEntry, len(zones))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, zone := range zones {
		if gctx.Err() != nil {
			break
		}
		i, zone := i, zone
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, ok := g.zone(info, i, zone)
			if !ok {
				return nil
			}
			mu.Lock()
			entries[zone] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &valdata.ValidationData{
		StartYear:         cfg.StartYear,
		UntilYear:         cfg.UntilYear,
		EpochYear:         cfg.Epoch.Year(),
		Scope:             g.scope,
		Source:            info.Source,
		Version:           info.Version,
		TzVersion:         info.TzVersion,
		HasValidAbbrev:    info.HasValidAbbrev,
		HasValidDst:       info.HasValidDst,
		OffsetGranularity: info.OffsetGranularity,
		TestData:          entries,
	}, nil
}

// zone produces the entry of one zone, consulting the cache first.
func (g *Generator) zone(info oracle.SourceInfo, index int, zone string) (valdata.TestEntry, bool) {
	start := time.Now()
	key, cacheable := g.cacheKey(info, zone)

	if cacheable {
		entry, ok, err := g.cache.Get(key)
		if err != nil {
			g.logger.Warn("cache read failed", "zone", zone, "error", err)
		} else if ok {
			g.metrics.ObserveZone(metrics.ZoneCached, time.Since(start))
			g.logger.Debug("zone cached", "zone", zone, "index", index)
			return entry, true
		}
	}

	o, err := g.provider.Open(zone)
	if err != nil {
		g.metrics.ObserveZone(metrics.ZoneSkipped, 0)
		if errors.Is(err, oracle.ErrUnknownZone) {
			g.logger.Warn("zone not supported", "zone", zone, "source", info.Source)
		} else {
			g.logger.Warn("zone open failed", "zone", zone, "error", err)
		}
		return valdata.TestEntry{}, false
	}

	entry, found, err := g.sampler.build(o)
	if err != nil {
		g.metrics.ObserveZone(metrics.ZoneSkipped, 0)
		g.logger.Warn("zone sampling failed", "zone", zone, "error", err)
		return valdata.TestEntry{}, false
	}
	for _, t := range found {
		g.metrics.ObserveBisection(t.Iterations)
	}
	g.metrics.AddItems("transition", len(entry.Transitions))
	g.metrics.AddItems("sample", len(entry.Samples))
	g.metrics.ObserveZone(metrics.ZoneGenerated, time.Since(start))
	g.logger.Info("zone sampled",
		"zone", zone,
		"index", index,
		"transitions", len(entry.Transitions),
		"samples", len(entry.Samples),
	)

	if cacheable {
		if err := g.cache.Put(key, entry); err != nil {
			g.logger.Warn("cache write failed", "zone", zone, "error", err)
		}
	}
	return entry, true
}

// cacheKey reports false when there is no cache or the provider cannot
// identify the zone's data.
func (g *Generator) cacheKey(info oracle.SourceInfo, zone string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	d, ok := g.provider.(oracle.ContentDigester)
	if !ok {
		return "", false
	}
	digest, err := d.ContentDigest(zone)
	if err != nil {
		g.logger.Warn("zone digest failed, not caching", "zone", zone, "error", err)
		return "", false
	}
	if digest == "" {
		return "", false
	}
	return strings.Join([]string{
		info.Source, info.Version, info.TzVersion, g.sampler.Config().Fingerprint(), digest, zone,
	}, "|"), true
}
