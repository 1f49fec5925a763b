package valdata

import "time"

// DefaultEpochYear is the epoch year used when none is configured.
const DefaultEpochYear = 2050

// Epoch converts between Unix seconds and seconds since midnight UTC on
// January 1 of a configurable epoch year. The zero value is the Unix epoch.
type Epoch struct {
	year       int
	unixOffset int64
}

// NewEpoch returns the Epoch anchored at January 1 00:00:00 UTC of year.
func NewEpoch(year int) Epoch {
	return Epoch{
		year:       year,
		unixOffset: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}
}

// Year returns the epoch year.
func (e Epoch) Year() int {
	return e.year
}

// FromUnix converts Unix seconds to epoch seconds.
func (e Epoch) FromUnix(unix int64) int64 {
	return unix - e.unixOffset
}

// ToUnix converts epoch seconds to Unix seconds.
func (e Epoch) ToUnix(seconds int64) int64 {
	return seconds + e.unixOffset
}
