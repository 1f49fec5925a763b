// Package locator finds the instants at which a zone's UTC offset changes,
// given only an oracle that reports the offset in effect at an instant.
//
// The search walks the configured year range in fixed steps and compares the
// offsets at both ends of each step. A step whose ends disagree is bisected
// down to the configured resolution. At most one transition is reported per
// step, so two changes closer together than the sampling interval are not
// both found.
package locator

import (
	"fmt"
	"strings"
	"time"

	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/tzverr"
)

// DefaultSamplingInterval is the step length in hours. It is shorter than a
// day so that steps drift across the clock and do not always straddle the
// same local hour.
const DefaultSamplingInterval = 22

// Resolution is the bracket width, in seconds, at which bisection stops.
type Resolution int

const (
	Second Resolution = 1
	Minute Resolution = 60
)

// ParseResolution accepts "second", "minute" and the empty string (second).
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(s) {
	case "", "second", "s":
		return Second, nil
	case "minute", "m":
		return Minute, nil
	}
	return 0, tzverr.Newf(tzverr.InvalidConfig, "unknown resolution %q", s)
}

func (r Resolution) String() string {
	switch r {
	case Second:
		return "second"
	case Minute:
		return "minute"
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

// Config bounds and tunes a search. The range is [StartYear, UntilYear) in
// UTC years.
type Config struct {
	StartYear        int
	UntilYear        int
	SamplingInterval int
	DetectDST        bool
	Resolution       Resolution
}

// Normalize fills unset fields with their defaults.
func (c Config) Normalize() Config {
	if c.SamplingInterval == 0 {
		c.SamplingInterval = DefaultSamplingInterval
	}
	if c.Resolution == 0 {
		c.Resolution = Second
	}
	return c
}

// Validate checks a normalized config.
func (c Config) Validate() error {
	if c.StartYear >= c.UntilYear {
		return tzverr.Newf(tzverr.InvalidConfig, "start year %d not before until year %d", c.StartYear, c.UntilYear)
	}
	if c.SamplingInterval < 1 || c.SamplingInterval > 24 {
		return tzverr.Newf(tzverr.InvalidConfig, "sampling interval %dh outside [1, 24]", c.SamplingInterval)
	}
	if c.Resolution != Second && c.Resolution != Minute {
		return tzverr.Newf(tzverr.InvalidConfig, "unsupported resolution %d", int(c.Resolution))
	}
	return nil
}

// Transition brackets one offset change. Left is the last instant found with
// the old offset and Right the first with the new one; Right-Left is one
// resolution unit.
type Transition struct {
	Left       int64
	Right      int64
	Before     oracle.Offset
	After      oracle.Offset
	Silent     bool
	Iterations int
}

// Find returns the transitions of o in the configured range, in ascending
// order.
func Find(o oracle.Oracle, cfg Config) ([]Transition, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	step := int64(cfg.SamplingInterval) * 3600
	left := yearStart(cfg.StartYear)
	until := yearStart(cfg.UntilYear)

	before, err := o.OffsetAt(left)
	if err != nil {
		return nil, oracleError(o, left, err)
	}

	var found []Transition
	for {
		right := left + step
		if right >= until {
			break
		}
		after, err := o.OffsetAt(right)
		if err != nil {
			return nil, oracleError(o, right, err)
		}
		if changed(before, after, cfg.DetectDST) {
			t, err := bisect(o, cfg, left, right, before)
			if err != nil {
				return nil, err
			}
			found = append(found, t)
		}
		left, before = right, after
	}
	return found, nil
}

// bisect narrows [left, right] until it is one resolution unit wide. A
// midpoint that still agrees with the offset at left becomes the new left.
func bisect(o oracle.Oracle, cfg Config, left, right int64, before oracle.Offset) (Transition, error) {
	unit := int64(cfg.Resolution)
	iterations := 0
	for {
		half := (right - left) / unit / 2
		if half == 0 {
			break
		}
		mid := left + half*unit
		off, err := o.OffsetAt(mid)
		if err != nil {
			return Transition{}, oracleError(o, mid, err)
		}
		iterations++
		if changed(before, off, cfg.DetectDST) {
			right = mid
		} else {
			left = mid
		}
	}

	leftOff, err := o.OffsetAt(left)
	if err != nil {
		return Transition{}, oracleError(o, left, err)
	}
	rightOff, err := o.OffsetAt(right)
	if err != nil {
		return Transition{}, oracleError(o, right, err)
	}
	return Transition{
		Left:       left,
		Right:      right,
		Before:     leftOff,
		After:      rightOff,
		Silent:     cfg.DetectDST && leftOff.Total == rightOff.Total && leftOff.DST != rightOff.DST,
		Iterations: iterations,
	}, nil
}

func changed(a, b oracle.Offset, detectDST bool) bool {
	if a.Total != b.Total {
		return true
	}
	return detectDST && a.DST != b.DST
}

func yearStart(year int) int64 {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
}

func oracleError(o oracle.Oracle, at int64, err error) error {
	return tzverr.Wrap(tzverr.OracleFailure, fmt.Sprintf("offset at %d", at), err).ForZone(o.Zone())
}
