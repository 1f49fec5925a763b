package valdata

import (
	"fmt"

	"github.com/lattice-substrate/tz-validation/tzverr"
)

// Validate checks the header and the per-zone ordering invariants. Violations
// are reported as tzverr.InvalidDocument.
func (d *ValidationData) Validate() error {
	if d == nil {
		return tzverr.New(tzverr.InvalidDocument, "document is nil")
	}
	if d.StartYear >= d.UntilYear {
		return tzverr.Newf(tzverr.InvalidDocument,
			"start_year %d must be before until_year %d", d.StartYear, d.UntilYear)
	}
	if d.EpochYear == 0 {
		return tzverr.New(tzverr.InvalidDocument, "epoch_year is required")
	}
	if d.OffsetGranularity < 0 {
		return tzverr.Newf(tzverr.InvalidDocument,
			"offset_granularity cannot be negative, got %d", d.OffsetGranularity)
	}
	for _, zone := range d.ZoneNames() {
		entry := d.TestData[zone]
		if err := ValidateItems(entry.Transitions); err != nil {
			return tzverr.Wrap(tzverr.InvalidDocument, "transitions", err).ForZone(zone)
		}
		if err := ValidateItems(entry.Samples); err != nil {
			return tzverr.Wrap(tzverr.InvalidDocument, "samples", err).ForZone(zone)
		}
	}
	return nil
}

// ValidateItems checks that items are strictly ascending by epoch and carry
// known types.
func ValidateItems(items []TestItem) error {
	for i := range items {
		if !items[i].Type.Valid() {
			return fmt.Errorf("item[%d] has unknown type %q", i, items[i].Type)
		}
		if i > 0 && items[i].Epoch <= items[i-1].Epoch {
			return fmt.Errorf("item[%d] epoch %d not after item[%d] epoch %d",
				i, items[i].Epoch, i-1, items[i-1].Epoch)
		}
	}
	return nil
}
