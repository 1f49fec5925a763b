package oracle

import (
	"fmt"
	"sort"
)

// searchWindow bounds how far from a wall time the generic resolver looks for
// candidate offsets. Zones never change offset twice within it.
const searchWindow = 86400

// Localize resolves c to an instant using o. Oracles implementing Localizer
// resolve natively; others go through the generic candidate-offset search.
func Localize(o Oracle, c Civil, fold int) (int64, error) {
	if l, ok := o.(Localizer); ok {
		return l.Localize(c, fold)
	}
	return LocalizeByOffsets(o, c, fold)
}

// LocalizeByOffsets resolves c using only OffsetAt. The offsets in effect one
// day before and one day after the wall time are the candidates; a candidate
// is valid when the oracle agrees with it at the instant it implies. Two valid
// instants mean an overlap and fold picks one of them. No valid instant means
// a gap, resolved with the earlier offset, which lands after the gap.
func LocalizeByOffsets(o Oracle, c Civil, fold int) (int64, error) {
	wall := c.WallSeconds()
	before, err := o.OffsetAt(wall - searchWindow)
	if err != nil {
		return 0, fmt.Errorf("localize %s: %w", o.Zone(), err)
	}
	after, err := o.OffsetAt(wall + searchWindow)
	if err != nil {
		return 0, fmt.Errorf("localize %s: %w", o.Zone(), err)
	}

	var instants []int64
	for _, total := range uniqueOffsets(before.Total, after.Total) {
		candidate := wall - int64(total)
		got, err := o.OffsetAt(candidate)
		if err != nil {
			return 0, fmt.Errorf("localize %s: %w", o.Zone(), err)
		}
		if got.Total == total {
			instants = append(instants, candidate)
		}
	}

	switch len(instants) {
	case 0:
		return wall - int64(before.Total), nil
	case 1:
		return instants[0], nil
	default:
		sort.Slice(instants, func(i, j int) bool { return instants[i] < instants[j] })
		if fold > 0 {
			return instants[len(instants)-1], nil
		}
		return instants[0], nil
	}
}

func uniqueOffsets(a, b int) []int {
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}
