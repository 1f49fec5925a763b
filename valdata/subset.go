package valdata

import (
	"github.com/lattice-substrate/tz-validation/tzverr"
)

// Subset returns a partial-scope copy of d restricted to the local years
// [startYear, untilYear) and, when zones is non-empty, to the named zones.
// The range must lie within d's own range.
func Subset(d *ValidationData, startYear, untilYear int, zones []string) (*ValidationData, error) {
	if startYear >= untilYear {
		return nil, tzverr.Newf(tzverr.InvalidConfig,
			"subset start year %d must be before until year %d", startYear, untilYear)
	}
	if startYear < d.StartYear || untilYear > d.UntilYear {
		return nil, tzverr.Newf(tzverr.InvalidConfig,
			"subset [%d, %d) is outside document range [%d, %d)",
			startYear, untilYear, d.StartYear, d.UntilYear)
	}

	names := zones
	if len(names) == 0 {
		names = d.ZoneNames()
	}

	out := *d
	out.StartYear = startYear
	out.UntilYear = untilYear
	out.Scope = ScopePartial
	out.TestData = make(map[string]TestEntry, len(names))
	for _, zone := range names {
		entry, ok := d.TestData[zone]
		if !ok {
			return nil, tzverr.New(tzverr.UnknownZone, "zone not present in document").ForZone(zone)
		}
		out.TestData[zone] = TestEntry{
			Transitions: filterYears(entry.Transitions, startYear, untilYear),
			Samples:     filterYears(entry.Samples, startYear, untilYear),
		}
	}
	return &out, nil
}

func filterYears(items []TestItem, startYear, untilYear int) []TestItem {
	kept := make([]TestItem, 0, len(items))
	for _, it := range items {
		if it.Year >= startYear && it.Year < untilYear {
			kept = append(kept, it)
		}
	}
	return kept
}
