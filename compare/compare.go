// Package compare checks an observed validation document against an expected
// one and reports every disagreement.
//
// The expected document must have complete coverage. An observed document
// with a narrower scope is compared in subset mode: its year range may be
// nested inside the expected range, it may omit zones, and it may omit items
// that the expected document carries.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lattice-substrate/tz-validation/tzverr"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// Diagnostic categories besides the item list labels.
const (
	CategoryScope       = "scope"
	CategoryHeader      = "header"
	CategoryZones       = "zones"
	CategoryTransitions = "transitions"
	CategorySamples     = "samples"
)

// Checks records which item fields take part in the comparison.
type Checks struct {
	Dst         bool `json:"dst"`
	Abbrev      bool `json:"abbrev"`
	Granularity int  `json:"granularity"`
}

// Truncate rounds x toward zero to a multiple of g. A g below 2 returns x.
func Truncate(x, g int) int {
	if g <= 1 {
		return x
	}
	return x / g * g
}

// Compare runs every check of observed against expected. It never fails:
// malformed or incompatible input ends the comparison early with
// Report.Fatal set.
func Compare(observed, expected *valdata.ValidationData) *Report {
	r := &Report{}
	if observed == nil || expected == nil {
		r.fatal(tzverr.New(tzverr.InvalidDocument, "missing document"), CategoryHeader)
		return r.finish()
	}
	r.ID = reportID(observed, expected)

	if !expected.IsComplete() {
		r.fatal(tzverr.Newf(tzverr.Precondition, "expected document has scope %q, want %q",
			expected.Scope, valdata.ScopeComplete), CategoryScope)
		return r.finish()
	}
	r.Subset = !observed.IsComplete()

	c := &comparer{
		observed: observed,
		expected: expected,
		report:   r,
		subset:   r.Subset,
		checks: Checks{
			Dst:         observed.HasValidDst && expected.HasValidDst,
			Abbrev:      observed.HasValidAbbrev && expected.HasValidAbbrev,
			Granularity: max(observed.Granularity(), expected.Granularity()),
		},
	}
	r.Checks = c.checks

	if err := c.header(); err != nil {
		r.fatal(err, CategoryHeader)
		return r.finish()
	}
	if err := c.zones(); err != nil {
		r.fatal(err, CategoryZones)
		return r.finish()
	}
	for _, zone := range observed.ZoneNames() {
		c.zone(zone)
	}
	return r.finish()
}

type comparer struct {
	observed *valdata.ValidationData
	expected *valdata.ValidationData
	report   *Report
	subset   bool
	checks   Checks
}

func (c *comparer) header() *tzverr.Error {
	obs, exp := c.observed, c.expected
	if obs.StartYear >= obs.UntilYear {
		return tzverr.Newf(tzverr.InvalidDocument, "observed years inverted: [%d, %d)", obs.StartYear, obs.UntilYear)
	}
	if exp.StartYear >= exp.UntilYear {
		return tzverr.Newf(tzverr.InvalidDocument, "expected years inverted: [%d, %d)", exp.StartYear, exp.UntilYear)
	}
	if obs.EpochYear != exp.EpochYear {
		return tzverr.Newf(tzverr.HeaderMismatch, "epoch_year: observed %d, expected %d", obs.EpochYear, exp.EpochYear)
	}
	if c.subset {
		if obs.StartYear < exp.StartYear || obs.UntilYear > exp.UntilYear {
			return tzverr.Newf(tzverr.HeaderMismatch, "observed years [%d, %d) not within expected [%d, %d)",
				obs.StartYear, obs.UntilYear, exp.StartYear, exp.UntilYear)
		}
		return nil
	}
	if obs.StartYear != exp.StartYear {
		return tzverr.Newf(tzverr.HeaderMismatch, "start_year: observed %d, expected %d", obs.StartYear, exp.StartYear)
	}
	if obs.UntilYear != exp.UntilYear {
		return tzverr.Newf(tzverr.HeaderMismatch, "until_year: observed %d, expected %d", obs.UntilYear, exp.UntilYear)
	}
	return nil
}

// zones fails on observed zones the expected document lacks. In full mode
// each expected zone missing from observed is recorded as a failure.
func (c *comparer) zones() *tzverr.Error {
	var extra []string
	for _, zone := range c.observed.ZoneNames() {
		if _, ok := c.expected.TestData[zone]; !ok {
			extra = append(extra, zone)
		}
	}
	if len(extra) > 0 {
		return tzverr.Newf(tzverr.ZoneMismatch, "zones missing from expected: %s", strings.Join(extra, ", "))
	}
	if c.subset {
		return nil
	}
	for _, zone := range c.expected.ZoneNames() {
		if _, ok := c.observed.TestData[zone]; ok {
			continue
		}
		c.report.add(Diagnostic{
			Zone:          zone,
			Category:      CategoryZones,
			ObservedIndex: -1,
			ExpectedIndex: -1,
			Message:       "zone missing from observed",
		})
		c.report.Failed = append(c.report.Failed, zone)
	}
	return nil
}

func (c *comparer) zone(zone string) {
	obs := c.observed.TestData[zone]
	if obs.Empty() {
		c.report.Skipped = append(c.report.Skipped, zone)
		return
	}
	exp := c.expected.TestData[zone]
	c.report.ZonesCompared++

	ok := c.items(zone, CategoryTransitions, obs.Transitions, exp.Transitions)
	if !c.items(zone, CategorySamples, obs.Samples, exp.Samples) {
		ok = false
	}
	if !ok {
		c.report.Failed = append(c.report.Failed, zone)
	}
}

// items walks both lists with one cursor each and reports whether they
// agree.
func (c *comparer) items(zone, category string, obs, exp []valdata.TestItem) bool {
	before := len(c.report.Diagnostics)
	diag := func(i, j int, field, format string, args ...any) {
		c.report.add(Diagnostic{
			Zone:          zone,
			Category:      category,
			Field:         field,
			ObservedIndex: i,
			ExpectedIndex: j,
			Message:       fmt.Sprintf(format, args...),
		})
	}

	i, j := 0, 0
	if c.subset {
		if first := c.skip(obs, 0); first < len(obs) {
			for j < len(exp) && exp[j].Year < obs[first].Year {
				j++
			}
		}
	}

	for {
		i, j = c.skip(obs, i), c.skip(exp, j)
		if i >= len(obs) || j >= len(exp) {
			break
		}
		o, e := &obs[i], &exp[j]
		if o.Epoch != e.Epoch {
			switch {
			case e.Epoch < o.Epoch && (c.subset || e.Type == valdata.TypeYearEnd):
				j++
			case o.Epoch < e.Epoch && o.Type == valdata.TypeYearEnd:
				i++
			case o.Epoch < e.Epoch:
				diag(i, j, "epoch", "observed %d (%s) has no expected counterpart, next expected %d (%s)",
					o.Epoch, o.Type, e.Epoch, e.Type)
				i++
			default:
				diag(i, j, "epoch", "expected %d (%s) missing from observed, next observed %d (%s)",
					e.Epoch, e.Type, o.Epoch, o.Type)
				j++
			}
			continue
		}
		c.fields(o, e, func(field string, ov, ev any) {
			diag(i, j, field, "observed %v, expected %v", ov, ev)
		})
		i++
		j++
	}

	for i = c.skip(obs, i); i < len(obs); i = c.skip(obs, i+1) {
		if obs[i].Type == valdata.TypeYearEnd {
			continue
		}
		diag(i, -1, "epoch", "observed %d (%s) beyond end of expected", obs[i].Epoch, obs[i].Type)
	}
	if !c.subset {
		trailing := 0
		first := -1
		for j = c.skip(exp, j); j < len(exp); j = c.skip(exp, j+1) {
			if exp[j].Type == valdata.TypeYearEnd {
				continue
			}
			if first < 0 {
				first = j
			}
			trailing++
		}
		if trailing > 0 {
			diag(-1, first, "epoch", "%d expected items not consumed, first at epoch %d", trailing, exp[first].Epoch)
		}
	}

	c.counts(obs, exp, diag)
	return len(c.report.Diagnostics) == before
}

// skip returns the first index at or after i holding an item the comparison
// takes into account. Silent transition items are ignored unless both
// documents carry valid DST offsets.
func (c *comparer) skip(items []valdata.TestItem, i int) int {
	if c.checks.Dst {
		return i
	}
	for i < len(items) && items[i].Type.IsSilent() {
		i++
	}
	return i
}

func (c *comparer) fields(o, e *valdata.TestItem, mismatch func(field string, ov, ev any)) {
	g := c.checks.Granularity
	if Truncate(o.TotalOffset, g) != Truncate(e.TotalOffset, g) {
		mismatch("total_offset", o.TotalOffset, e.TotalOffset)
	}
	if c.checks.Dst && o.DstOffset != e.DstOffset {
		mismatch("dst_offset", o.DstOffset, e.DstOffset)
	}
	for _, f := range []struct {
		name   string
		ov, ev int
	}{
		{"y", o.Year, e.Year},
		{"M", o.Month, e.Month},
		{"d", o.Day, e.Day},
		{"h", o.Hour, e.Hour},
		{"m", o.Minute, e.Minute},
		{"s", o.Second, e.Second},
	} {
		if f.ov != f.ev {
			mismatch(f.name, f.ov, f.ev)
		}
	}
	if c.checks.Abbrev && !sameAbbrev(o.Abbrev, e.Abbrev) {
		mismatch("abbrev", abbrevLabel(o.Abbrev), abbrevLabel(e.Abbrev))
	}
}

// counts compares the number of substantive items inside the observed year
// range.
func (c *comparer) counts(obs, exp []valdata.TestItem, diag func(i, j int, field, format string, args ...any)) {
	no := c.substantive(obs)
	ne := c.substantive(exp)
	switch {
	case c.subset && no > ne:
		diag(-1, -1, "count", "observed %d substantive items, more than expected %d", no, ne)
	case !c.subset && no != ne:
		diag(-1, -1, "count", "observed %d substantive items, expected %d", no, ne)
	}
}

func (c *comparer) substantive(items []valdata.TestItem) int {
	n := 0
	for i := range items {
		it := &items[i]
		if it.Type.IsSubstantive() && it.Year >= c.observed.StartYear && it.Year < c.observed.UntilYear {
			n++
		}
	}
	return n
}

func sameAbbrev(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func abbrevLabel(a *string) string {
	if a == nil {
		return "null"
	}
	return fmt.Sprintf("%q", *a)
}

// Categories returns the category of every diagnostic, sorted.
func (r *Report) Categories() []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Category)
	}
	sort.Strings(out)
	return out
}
