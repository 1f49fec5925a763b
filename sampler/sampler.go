// Package sampler turns a zone oracle into the test items of a validation
// document: the items bracketing each located transition and one periodic
// sample per month.
package sampler

import (
	"fmt"

	"github.com/lattice-substrate/tz-validation/locator"
	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

const (
	sampleDay     = 2
	lastSampleDay = 28
)

// Config controls which items are produced for a zone.
type Config struct {
	StartYear        int
	UntilYear        int
	Epoch            valdata.Epoch
	SamplingInterval int
	DetectDST        bool
	Resolution       locator.Resolution
	// CheckOverlap rejects sample wall times that occur twice.
	CheckOverlap bool
	// YearEnd adds a Y item at Dec 31 23:00 local of every year.
	YearEnd bool
}

// Locator returns the transition search config for c.
func (c Config) Locator() locator.Config {
	return locator.Config{
		StartYear:        c.StartYear,
		UntilYear:        c.UntilYear,
		SamplingInterval: c.SamplingInterval,
		DetectDST:        c.DetectDST,
		Resolution:       c.Resolution,
	}.Normalize()
}

// Fingerprint identifies every setting that affects the items of an entry.
func (c Config) Fingerprint() string {
	l := c.Locator()
	return fmt.Sprintf("y%d-%d/e%d/i%d/r%d/dst=%t/overlap=%t/ye=%t",
		c.StartYear, c.UntilYear, c.Epoch.Year(), l.SamplingInterval, int(l.Resolution),
		c.DetectDST, c.CheckOverlap, c.YearEnd)
}

// Sampler produces test items for one zone at a time. It holds no state
// between zones and is safe for concurrent use.
type Sampler struct {
	cfg Config
}

// New validates cfg and returns a Sampler.
func New(cfg Config) (*Sampler, error) {
	if err := cfg.Locator().Validate(); err != nil {
		return nil, err
	}
	if cfg.Epoch.Year() == 0 {
		return nil, tzverr.New(tzverr.InvalidConfig, "epoch year not set")
	}
	l := cfg.Locator()
	cfg.SamplingInterval, cfg.Resolution = l.SamplingInterval, l.Resolution
	return &Sampler{cfg: cfg}, nil
}

// Config returns the normalized configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Entry builds the complete TestEntry for o. Samples that land on the
// instant of a transition item are dropped.
func (s *Sampler) Entry(o oracle.Oracle) (valdata.TestEntry, error) {
	entry, _, err := s.build(o)
	return entry, err
}

func (s *Sampler) build(o oracle.Oracle) (valdata.TestEntry, []locator.Transition, error) {
	found, err := locator.Find(o, s.cfg.Locator())
	if err != nil {
		return valdata.TestEntry{}, nil, err
	}
	samples, err := s.Samples(o)
	if err != nil {
		return valdata.TestEntry{}, nil, err
	}
	transitions := s.TransitionItems(found)
	return valdata.TestEntry{
		Transitions: transitions,
		Samples:     valdata.DropShadowed(transitions, samples),
	}, found, nil
}

// Transitions locates the transitions of o and returns their items.
func (s *Sampler) Transitions(o oracle.Oracle) ([]valdata.TestItem, error) {
	found, err := locator.Find(o, s.cfg.Locator())
	if err != nil {
		return nil, err
	}
	return s.TransitionItems(found), nil
}

// TransitionItems returns an A and a B item for every transition, or a and b
// for silent ones.
func (s *Sampler) TransitionItems(found []locator.Transition) []valdata.TestItem {
	items := make([]valdata.TestItem, 0, 2*len(found))
	for _, t := range found {
		before, after := valdata.TypeBefore, valdata.TypeAfter
		if t.Silent {
			before, after = valdata.TypeSilentBefore, valdata.TypeSilentAfter
		}
		items = append(items,
			s.item(t.Left, t.Before, before),
			s.item(t.Right, t.After, after),
		)
	}
	return items
}

// Samples returns one item per month at 00:00 on day 2, moved to the first
// later day whose midnight is unambiguous. Months with no such day up to the
// 28th are left out.
func (s *Sampler) Samples(o oracle.Oracle) ([]valdata.TestItem, error) {
	var items []valdata.TestItem
	for year := s.cfg.StartYear; year < s.cfg.UntilYear; year++ {
		for month := 1; month <= 12; month++ {
			it, ok, err := s.monthly(o, year, month)
			if err != nil {
				return nil, err
			}
			if ok {
				items = append(items, it)
			}
		}
		if s.cfg.YearEnd {
			it, err := s.yearEnd(o, year)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *Sampler) monthly(o oracle.Oracle, year, month int) (valdata.TestItem, bool, error) {
	for day := sampleDay; day <= lastSampleDay; day++ {
		c := oracle.Civil{Year: year, Month: month, Day: day}
		unix, off, ok, err := s.simple(o, c)
		if err != nil {
			return valdata.TestItem{}, false, err
		}
		if !ok {
			continue
		}
		typ := valdata.TypeSample
		if day != sampleDay {
			typ = valdata.TypeShifted
		}
		return s.item(unix, off, typ), true, nil
	}
	return valdata.TestItem{}, false, nil
}

func (s *Sampler) yearEnd(o oracle.Oracle, year int) (valdata.TestItem, error) {
	c := oracle.Civil{Year: year, Month: 12, Day: 31, Hour: 23}
	unix, err := oracle.Localize(o, c, 0)
	if err != nil {
		return valdata.TestItem{}, s.oracleError(o, err)
	}
	off, err := o.OffsetAt(unix)
	if err != nil {
		return valdata.TestItem{}, s.oracleError(o, err)
	}
	return s.item(unix, off, valdata.TypeYearEnd), nil
}

// simple resolves c and reports whether it names exactly one instant: the
// instant must map back to the same wall clock, and with CheckOverlap the
// second occurrence must coincide with the first.
func (s *Sampler) simple(o oracle.Oracle, c oracle.Civil) (int64, oracle.Offset, bool, error) {
	first, err := oracle.Localize(o, c, 0)
	if err != nil {
		return 0, oracle.Offset{}, false, s.oracleError(o, err)
	}
	off, err := o.OffsetAt(first)
	if err != nil {
		return 0, oracle.Offset{}, false, s.oracleError(o, err)
	}
	if oracle.CivilAt(first, off.Total) != c {
		return 0, oracle.Offset{}, false, nil
	}
	if s.cfg.CheckOverlap {
		second, err := oracle.Localize(o, c, 1)
		if err != nil {
			return 0, oracle.Offset{}, false, s.oracleError(o, err)
		}
		if second != first {
			return 0, oracle.Offset{}, false, nil
		}
	}
	return first, off, true, nil
}

func (s *Sampler) item(unix int64, off oracle.Offset, typ valdata.ItemType) valdata.TestItem {
	c := oracle.CivilAt(unix, off.Total)
	it := valdata.TestItem{
		Epoch:       s.cfg.Epoch.FromUnix(unix),
		TotalOffset: off.Total,
		DstOffset:   off.DST,
		Year:        c.Year,
		Month:       c.Month,
		Day:         c.Day,
		Hour:        c.Hour,
		Minute:      c.Minute,
		Second:      c.Second,
		Type:        typ,
	}
	if off.Abbrev != "" {
		it.Abbrev = valdata.Abbrev(off.Abbrev)
	}
	return it
}

func (s *Sampler) oracleError(o oracle.Oracle, err error) error {
	return tzverr.Wrap(tzverr.OracleFailure, "localize", err).ForZone(o.Zone())
}
