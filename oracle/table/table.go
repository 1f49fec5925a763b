// Package table implements zone oracles backed by an explicit list of offset
// transitions. It serves synthetic zones in tests and replays the transitions
// recorded in an existing validation document.
package table

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/lattice-substrate/tz-validation/oracle"
	"github.com/lattice-substrate/tz-validation/valdata"
)

// Transition switches the zone to Offset starting at At (Unix seconds).
type Transition struct {
	At     int64
	Offset oracle.Offset
}

// Zone is an oracle.Oracle and oracle.Localizer over a fixed transition list.
type Zone struct {
	name        string
	initial     oracle.Offset
	transitions []Transition
}

// New returns a zone that reports initial before the first transition.
// Transitions must be strictly ascending by At.
func New(name string, initial oracle.Offset, transitions []Transition) (*Zone, error) {
	for i := 1; i < len(transitions); i++ {
		if transitions[i].At <= transitions[i-1].At {
			return nil, fmt.Errorf("table %s: transition[%d] at %d not after transition[%d] at %d",
				name, i, transitions[i].At, i-1, transitions[i-1].At)
		}
	}
	return &Zone{
		name:        name,
		initial:     initial,
		transitions: append([]Transition(nil), transitions...),
	}, nil
}

// Fixed returns a zone with a single offset for all time.
func Fixed(name string, offset oracle.Offset) *Zone {
	return &Zone{name: name, initial: offset}
}

// Digest identifies the zone's offset data. Zones with equal digests answer
// every query identically, whatever their names.
func (z *Zone) Digest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d %d %d %q\n", int64(math.MinInt64), z.initial.Total, z.initial.DST, z.initial.Abbrev)
	for _, t := range z.transitions {
		fmt.Fprintf(h, "%d %d %d %q\n", t.At, t.Offset.Total, t.Offset.DST, t.Offset.Abbrev)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Zone implements oracle.Oracle.
func (z *Zone) Zone() string {
	return z.name
}

// OffsetAt implements oracle.Oracle.
func (z *Zone) OffsetAt(unix int64) (oracle.Offset, error) {
	i := z.index(unix)
	if i < 0 {
		return z.initial, nil
	}
	return z.transitions[i].Offset, nil
}

// index returns the index of the transition in effect at unix, or -1.
func (z *Zone) index(unix int64) int {
	return sort.Search(len(z.transitions), func(i int) bool {
		return z.transitions[i].At > unix
	}) - 1
}

// Localize implements oracle.Localizer by testing every offset period for an
// instant that falls inside it. A gap resolves with the offset of the period
// before it.
func (z *Zone) Localize(c oracle.Civil, fold int) (int64, error) {
	wall := c.WallSeconds()
	var hits []int64
	for i := -1; i < len(z.transitions); i++ {
		off, start, end := z.period(i)
		candidate := wall - int64(off.Total)
		if candidate >= start && candidate < end {
			hits = append(hits, candidate)
		}
	}
	switch {
	case len(hits) == 0:
		off, err := z.OffsetAt(wall - 86400)
		if err != nil {
			return 0, err
		}
		return wall - int64(off.Total), nil
	case fold > 0:
		return hits[len(hits)-1], nil
	default:
		return hits[0], nil
	}
}

// period returns the offset and [start, end) bounds of period i, where -1 is
// the period before the first transition.
func (z *Zone) period(i int) (oracle.Offset, int64, int64) {
	const (
		minInstant = -1 << 62
		maxInstant = 1 << 62
	)
	start, end := int64(minInstant), int64(maxInstant)
	off := z.initial
	if i >= 0 {
		off = z.transitions[i].Offset
		start = z.transitions[i].At
	}
	if i+1 < len(z.transitions) {
		end = z.transitions[i+1].At
	}
	return off, start, end
}

// FromEntry rebuilds a zone from the items of a validation document entry.
// The earliest item supplies the initial offset and every post-transition item
// (B or b) starts a new period. Abbreviations are carried when present.
func FromEntry(name string, entry valdata.TestEntry, epoch valdata.Epoch) (*Zone, error) {
	items := valdata.Merge(entry.Transitions, entry.Samples)
	if len(items) == 0 {
		return nil, fmt.Errorf("table %s: entry has no items", name)
	}
	initial := offsetOf(items[0])
	var transitions []Transition
	prev := initial
	for _, it := range items {
		if it.Type != valdata.TypeAfter && it.Type != valdata.TypeSilentAfter {
			continue
		}
		off := offsetOf(it)
		if off == prev {
			continue
		}
		transitions = append(transitions, Transition{At: epoch.ToUnix(it.Epoch), Offset: off})
		prev = off
	}
	return New(name, initial, transitions)
}

func offsetOf(it valdata.TestItem) oracle.Offset {
	return oracle.Offset{Total: it.TotalOffset, DST: it.DstOffset, Abbrev: it.AbbrevString()}
}
