package inventory

import "sort"

// Change is a port whose module or speed differs between two snapshots.
type Change struct {
	Before Module
	After  Module
}

// Delta compares two snapshots port by port.
type Delta struct {
	Added   []Module
	Removed []Module
	Changed []Change
}

// Empty reports no differences.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares prev and cur, keyed by switch serial and port. Results are
// sorted by key.
func Diff(prev, cur []Module) Delta {
	before := make(map[string]Module, len(prev))
	for _, m := range prev {
		before[m.Key()] = m
	}

	var d Delta
	seen := make(map[string]bool, len(cur))
	for _, m := range cur {
		seen[m.Key()] = true
		old, ok := before[m.Key()]
		switch {
		case !ok:
			d.Added = append(d.Added, m)
		case old.ModuleType != m.ModuleType || old.Speed != m.Speed:
			d.Changed = append(d.Changed, Change{Before: old, After: m})
		}
	}
	for _, m := range prev {
		if !seen[m.Key()] {
			d.Removed = append(d.Removed, m)
		}
	}

	sortModules(d.Added)
	sortModules(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].After.Key() < d.Changed[j].After.Key() })
	return d
}

func sortModules(mods []Module) {
	sort.Slice(mods, func(i, j int) bool { return mods[i].Key() < mods[j].Key() })
}
