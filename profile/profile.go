// Package profile loads generation profiles: the year range, sampling
// settings, oracle source and zone list of one generator run.
//
// Profiles are YAML (.yaml, .yml) or JSON (any other extension). Unknown
// fields are rejected in both formats.
package profile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/tz-validation/locator"
	"github.com/lattice-substrate/tz-validation/sampler"
	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// Oracle sources.
const (
	SourceGoTime = "gotime"
	SourceReplay = "replay"
)

// Profile is one generator run configuration.
type Profile struct {
	StartYear        int      `yaml:"start_year" json:"start_year"`
	UntilYear        int      `yaml:"until_year" json:"until_year"`
	EpochYear        int      `yaml:"epoch_year" json:"epoch_year"`
	SamplingInterval int      `yaml:"sampling_interval" json:"sampling_interval"`
	DetectDST        bool     `yaml:"detect_dst" json:"detect_dst"`
	CheckOverlap     bool     `yaml:"check_overlap" json:"check_overlap"`
	YearEnd          bool     `yaml:"year_end" json:"year_end"`
	Resolution       string   `yaml:"resolution" json:"resolution"`
	Source           string   `yaml:"source" json:"source"`
	ReplayFile       string   `yaml:"replay_file" json:"replay_file"`
	Scope            string   `yaml:"scope" json:"scope"`
	Zones            []string `yaml:"zones" json:"zones"`
	ZonesFile        string   `yaml:"zones_file" json:"zones_file"`
	Workers          int      `yaml:"workers" json:"workers"`
	CacheDir         string   `yaml:"cache_dir" json:"cache_dir"`
}

// Default returns the profile used when no file is given.
func Default() Profile {
	return Profile{
		StartYear:        2000,
		UntilYear:        2100,
		EpochYear:        valdata.DefaultEpochYear,
		SamplingInterval: locator.DefaultSamplingInterval,
		DetectDST:        true,
		CheckOverlap:     true,
		Resolution:       locator.Second.String(),
		Source:           SourceGoTime,
		Scope:            valdata.ScopeComplete,
	}
}

// Load reads path over the defaults and validates the result. Relative
// zones_file and replay_file paths resolve against the profile's directory.
//
//nolint:gosec // profile path is explicit operator input.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidConfig, "read profile", err)
	}
	p := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &p)
	default:
		err = decodeJSON(data, &p)
	}
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidConfig, fmt.Sprintf("decode profile %s", path), err)
	}
	dir := filepath.Dir(path)
	p.ZonesFile = resolve(dir, p.ZonesFile)
	p.ReplayFile = resolve(dir, p.ReplayFile)
	p.CacheDir = resolve(dir, p.CacheDir)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeYAML(data []byte, p *Profile) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected trailing yaml document")
		}
		return err
	}
	return nil
}

func decodeJSON(data []byte, p *Profile) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return errors.New("unexpected trailing json content")
		}
		return fmt.Errorf("decode trailing json token: %w", err)
	}
	return nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate checks profile semantics.
func (p *Profile) Validate() error {
	if p == nil {
		return tzverr.New(tzverr.InvalidConfig, "profile is nil")
	}
	if _, err := p.SamplerConfig(); err != nil {
		return err
	}
	if p.EpochYear == 0 {
		return tzverr.New(tzverr.InvalidConfig, "epoch_year is required")
	}
	switch p.Source {
	case SourceGoTime:
	case SourceReplay:
		if p.ReplayFile == "" {
			return tzverr.New(tzverr.InvalidConfig, "source replay requires replay_file")
		}
	default:
		return tzverr.Newf(tzverr.InvalidConfig, "unknown source %q", p.Source)
	}
	if p.Workers < 0 {
		return tzverr.New(tzverr.InvalidConfig, "workers cannot be negative")
	}
	return nil
}

// SamplerConfig converts the sampling settings.
func (p *Profile) SamplerConfig() (sampler.Config, error) {
	res, err := locator.ParseResolution(p.Resolution)
	if err != nil {
		return sampler.Config{}, err
	}
	cfg := sampler.Config{
		StartYear:        p.StartYear,
		UntilYear:        p.UntilYear,
		Epoch:            valdata.NewEpoch(p.EpochYear),
		SamplingInterval: p.SamplingInterval,
		DetectDST:        p.DetectDST,
		Resolution:       res,
		CheckOverlap:     p.CheckOverlap,
		YearEnd:          p.YearEnd,
	}
	if err := cfg.Locator().Validate(); err != nil {
		return sampler.Config{}, err
	}
	return cfg, nil
}

// ZoneList returns the inline zones followed by those of ZonesFile, without
// duplicates.
func (p *Profile) ZoneList() ([]string, error) {
	zones := append([]string(nil), p.Zones...)
	if p.ZonesFile != "" {
		more, err := ReadZonesFile(p.ZonesFile)
		if err != nil {
			return nil, err
		}
		zones = append(zones, more...)
	}
	seen := make(map[string]struct{}, len(zones))
	out := zones[:0]
	for _, z := range zones {
		if _, ok := seen[z]; ok {
			continue
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	return out, nil
}

// ReadZonesFile reads a zone list file.
//
//nolint:gosec // zone list path is explicit operator input.
func ReadZonesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidConfig, "open zones file", err)
	}
	defer f.Close()
	zones, err := ReadZones(f)
	if err != nil {
		return nil, tzverr.Wrap(tzverr.InvalidConfig, fmt.Sprintf("read zones file %s", path), err)
	}
	return zones, nil
}

// ReadZones reads one zone name per line. Blank lines and lines starting
// with '#' are skipped.
func ReadZones(r io.Reader) ([]string, error) {
	var zones []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		zones = append(zones, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}
