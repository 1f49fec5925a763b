package table

import (
	"fmt"

	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// Provider serves a fixed set of table zones.
type Provider struct {
	info  oracle.SourceInfo
	zones map[string]*Zone
}

// NewProvider returns a provider over zones, described by info.
func NewProvider(info oracle.SourceInfo, zones ...*Zone) *Provider {
	p := &Provider{info: info, zones: make(map[string]*Zone, len(zones))}
	for _, z := range zones {
		p.zones[z.Zone()] = z
	}
	return p
}

// Replay returns a provider whose zones are rebuilt from the transitions of d.
// Zones with no items are left out and report oracle.ErrUnknownZone.
func Replay(d *valdata.ValidationData) (*Provider, error) {
	p := &Provider{
		info: oracle.SourceInfo{
			Source:            "replay:" + d.Source,
			Version:           d.Version,
			TzVersion:         d.TzVersion,
			HasValidAbbrev:    d.HasValidAbbrev,
			HasValidDst:       d.HasValidDst,
			OffsetGranularity: d.Granularity(),
		},
		zones: make(map[string]*Zone, len(d.TestData)),
	}
	epoch := d.Epoch()
	for _, name := range d.ZoneNames() {
		entry := d.TestData[name]
		if entry.Empty() {
			continue
		}
		z, err := FromEntry(name, entry, epoch)
		if err != nil {
			return nil, err
		}
		p.zones[name] = z
	}
	return p, nil
}

// Open implements oracle.Provider.
func (p *Provider) Open(zone string) (oracle.Oracle, error) {
	z, ok := p.zones[zone]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", zone, oracle.ErrUnknownZone)
	}
	return z, nil
}

// ContentDigest implements oracle.ContentDigester. Unknown zones have an
// empty digest.
func (p *Provider) ContentDigest(zone string) (string, error) {
	z, ok := p.zones[zone]
	if !ok {
		return "", nil
	}
	return z.Digest(), nil
}

// Info implements oracle.Provider.
func (p *Provider) Info() oracle.SourceInfo {
	return p.info
}
