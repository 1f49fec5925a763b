// Package oracle defines the zone oracle capability consumed by the transition
// locator and the periodic sampler.
//
// An Oracle answers one question for one zone: which UTC offset, DST offset
// and abbreviation apply at a given instant. Adapters for concrete time-zone
// libraries live in subpackages and stay thin; the search and sampling
// algorithms are written once against this interface.
package oracle

import (
	"errors"
	"time"
)

// ErrUnknownZone is returned by Provider.Open for unrecognized zone names.
var ErrUnknownZone = errors.New("oracle: unknown zone")

// Offset is what an oracle reports for one instant. Total and DST are in
// seconds east of UTC.
type Offset struct {
	Total  int
	DST    int
	Abbrev string
}

// Oracle maps instants (Unix seconds) to offsets for one zone.
type Oracle interface {
	Zone() string
	OffsetAt(unix int64) (Offset, error)
}

// Localizer is implemented by oracles that resolve civil wall-clock times
// natively. fold selects the first (0) or second (1) occurrence of a
// repeated wall time; a wall time inside a gap resolves to some instant whose
// wall clock differs from c.
type Localizer interface {
	Localize(c Civil, fold int) (int64, error)
}

// ContentDigester is implemented by providers that can identify the data
// behind a zone. Zones with equal digests answer every query identically. An
// empty digest means the data cannot be identified.
type ContentDigester interface {
	ContentDigest(zone string) (string, error)
}

// SourceInfo describes the library behind a Provider.
type SourceInfo struct {
	Source            string
	Version           string
	TzVersion         string
	HasValidAbbrev    bool
	HasValidDst       bool
	OffsetGranularity int
}

// Provider opens oracles by zone name.
type Provider interface {
	Open(zone string) (Oracle, error)
	Info() SourceInfo
}

// Civil is a wall-clock date and time without a zone.
type Civil struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// CivilAt returns the wall clock at unix for a zone whose total UTC offset at
// that instant is totalOffset seconds.
func CivilAt(unix int64, totalOffset int) Civil {
	t := time.Unix(unix+int64(totalOffset), 0).UTC()
	return Civil{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// WallSeconds returns c interpreted as if it were UTC, in Unix seconds.
func (c Civil) WallSeconds() int64 {
	return time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, c.Second, 0, time.UTC).Unix()
}
