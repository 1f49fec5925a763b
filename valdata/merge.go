package valdata

import "sort"

// DropShadowed returns the samples whose epochs do not coincide with any
// transition item. A transition item always takes precedence over a periodic
// sample taken at the same instant.
func DropShadowed(transitions, samples []TestItem) []TestItem {
	if len(transitions) == 0 {
		return samples
	}
	taken := make(map[int64]struct{}, len(transitions))
	for i := range transitions {
		taken[transitions[i].Epoch] = struct{}{}
	}
	kept := make([]TestItem, 0, len(samples))
	for _, s := range samples {
		if _, ok := taken[s.Epoch]; ok {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Merge combines item lists into one list ordered by epoch with one item per
// epoch. When several items share an epoch, a transition item wins over a
// sample; otherwise the first one seen wins.
func Merge(lists ...[]TestItem) []TestItem {
	byEpoch := make(map[int64]TestItem)
	for _, list := range lists {
		for _, it := range list {
			cur, ok := byEpoch[it.Epoch]
			if !ok || (it.Type.IsTransition() && !cur.Type.IsTransition()) {
				byEpoch[it.Epoch] = it
			}
		}
	}
	merged := make([]TestItem, 0, len(byEpoch))
	for _, it := range byEpoch {
		merged = append(merged, it)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Epoch < merged[j].Epoch
	})
	return merged
}
