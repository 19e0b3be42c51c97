package domain

import "sort"

// Diff compares two snapshots of a keyed collection and returns the ids of
// entries in cur that the predicate considers newly interesting. The old
// entry passed to the predicate is nil when the id was not previously seen.
// Pure and deterministic: ids come back sorted, and identical inputs always
// produce identical output.
func Diff[Item any](old, cur map[string]Item, interesting func(old *Item, cur Item) bool) []string {
	var ids []string
	for id, item := range cur {
		var prev *Item
		if p, ok := old[id]; ok {
			prev = &p
		}
		if interesting(prev, item) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
