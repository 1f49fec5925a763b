package valdata

import (
	"bufio"
	"fmt"
	"io"
)

// Flatten writes a human-readable listing of d: a header block followed by a
// TRANSITIONS and a SAMPLES table for each zone, zones in sorted order.
func Flatten(w io.Writer, d *ValidationData) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "HEADER")
	fmt.Fprintln(bw, "start_year", d.StartYear)
	fmt.Fprintln(bw, "until_year", d.UntilYear)
	fmt.Fprintln(bw, "epoch_year", d.EpochYear)
	fmt.Fprintln(bw, "scope", scopeLabel(d))
	fmt.Fprintln(bw, "source", d.Source)
	fmt.Fprintln(bw, "version", d.Version)
	fmt.Fprintln(bw, "has_valid_abbrev", d.HasValidAbbrev)
	fmt.Fprintln(bw, "has_valid_dst", d.HasValidDst)
	fmt.Fprintln(bw, "offset_granularity", d.Granularity())
	fmt.Fprintln(bw)

	for _, zone := range d.ZoneNames() {
		entry := d.TestData[zone]
		fmt.Fprintln(bw, "ZONE", zone)
		fmt.Fprintln(bw, "TRANSITIONS", len(entry.Transitions))
		flattenItems(bw, entry.Transitions)
		fmt.Fprintln(bw, "SAMPLES", len(entry.Samples))
		flattenItems(bw, entry.Samples)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func flattenItems(w io.Writer, items []TestItem) {
	if len(items) != 0 {
		fmt.Fprintln(w, "# line       epoch    utc    dst    y  m  d  h  m  s  abbrev type")
	}
	for i := range items {
		it := &items[i]
		abbrev := it.AbbrevString()
		if abbrev == "" {
			abbrev = "-"
		}
		fmt.Fprintf(w, "%6d %11d %6d %6d %4d %2d %2d %2d %2d %2d %7s %4s\n",
			i, it.Epoch, it.TotalOffset, it.DstOffset,
			it.Year, it.Month, it.Day, it.Hour, it.Minute, it.Second,
			abbrev, it.Type)
	}
}

func scopeLabel(d *ValidationData) string {
	if d.Scope == "" {
		return ScopeComplete
	}
	return d.Scope
}
