// Package valdata defines the validation data document exchanged between
// generators and the comparator.
//
// A ValidationData document maps zone names to a TestEntry, which holds two
// epoch-ordered lists of TestItem: the items bracketing each offset transition
// and the periodic samples. Documents are persisted as RFC 8785 canonical
// JSON, optionally zstd-compressed.
package valdata

import "sort"

// ItemType classifies why a TestItem was sampled.
type ItemType string

const (
	TypeBefore       ItemType = "A"
	TypeAfter        ItemType = "B"
	TypeSilentBefore ItemType = "a"
	TypeSilentAfter  ItemType = "b"
	TypeSample       ItemType = "S"
	TypeShifted      ItemType = "T"
	TypeYearEnd      ItemType = "Y"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeBefore, TypeAfter, TypeSilentBefore, TypeSilentAfter, TypeSample, TypeShifted, TypeYearEnd:
		return true
	}
	return false
}

// IsSilent reports whether t marks a transition that changed only the DST
// component of the offset.
func (t ItemType) IsSilent() bool {
	return t == TypeSilentBefore || t == TypeSilentAfter
}

// IsTransition reports whether t brackets a transition, silent or not.
func (t ItemType) IsTransition() bool {
	return t == TypeBefore || t == TypeAfter || t.IsSilent()
}

// IsSubstantive reports whether t counts toward per-zone item totals.
func (t ItemType) IsSubstantive() bool {
	switch t {
	case TypeBefore, TypeAfter, TypeSample, TypeShifted:
		return true
	}
	return false
}

// Scope values.
const (
	ScopeComplete = "complete"
	ScopePartial  = "partial"
)

// TestItem is one observation of a zone at an instant.
type TestItem struct {
	Epoch       int64    `json:"epoch"`
	TotalOffset int      `json:"total_offset"`
	DstOffset   int      `json:"dst_offset"`
	Year        int      `json:"y"`
	Month       int      `json:"M"`
	Day         int      `json:"d"`
	Hour        int      `json:"h"`
	Minute      int      `json:"m"`
	Second      int      `json:"s"`
	Abbrev      *string  `json:"abbrev"`
	Type        ItemType `json:"type"`
}

// AbbrevString returns the abbreviation, or "" when it is absent.
func (it *TestItem) AbbrevString() string {
	if it.Abbrev == nil {
		return ""
	}
	return *it.Abbrev
}

// Abbrev returns a pointer to a copy of s, for use in TestItem literals.
func Abbrev(s string) *string {
	return &s
}

// TestEntry holds the transition and sample items of one zone.
type TestEntry struct {
	Transitions []TestItem `json:"transitions"`
	Samples     []TestItem `json:"samples"`
}

// Empty reports whether the entry carries no items at all.
func (e *TestEntry) Empty() bool {
	return len(e.Transitions) == 0 && len(e.Samples) == 0
}

// ValidationData is the complete document produced by one generator pass.
type ValidationData struct {
	StartYear         int                  `json:"start_year"`
	UntilYear         int                  `json:"until_year"`
	EpochYear         int                  `json:"epoch_year"`
	Scope             string               `json:"scope,omitempty"`
	Source            string               `json:"source"`
	Version           string               `json:"version"`
	TzVersion         string               `json:"tz_version,omitempty"`
	HasValidAbbrev    bool                 `json:"has_valid_abbrev"`
	HasValidDst       bool                 `json:"has_valid_dst"`
	OffsetGranularity int                  `json:"offset_granularity,omitempty"`
	TestData          map[string]TestEntry `json:"test_data"`
}

// IsComplete reports whether the document claims complete coverage. Documents
// that predate the scope field are complete.
func (d *ValidationData) IsComplete() bool {
	return d.Scope == "" || d.Scope == ScopeComplete
}

// Granularity returns the offset granularity in seconds, defaulting to 1.
func (d *ValidationData) Granularity() int {
	if d.OffsetGranularity <= 0 {
		return 1
	}
	return d.OffsetGranularity
}

// ZoneNames returns the document's zone names in sorted order.
func (d *ValidationData) ZoneNames() []string {
	names := make([]string, 0, len(d.TestData))
	for name := range d.TestData {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Epoch returns the epoch converter for the document's epoch year.
func (d *ValidationData) Epoch() Epoch {
	return NewEpoch(d.EpochYear)
}
