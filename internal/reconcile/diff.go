// Package reconcile brings the destination entity sets of one tenant group in
// line with the legacy source: identity diff, per-entity passes, sequence
// repair and the run state machine.
package reconcile

import "slices"

// Set is an unordered set of identifiers.
type Set[K comparable] map[K]struct{}

// NewSet returns a set holding items.
func NewSet[K comparable](items ...K) Set[K] {
	s := make(Set[K], len(items))
	for _, k := range items {
		s[k] = struct{}{}
	}
	return s
}

func (s Set[K]) Add(k K) { s[k] = struct{}{} }

func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

func (s Set[K]) Len() int { return len(s) }

// Diff returns source minus dest and dest minus source. The result depends
// only on the two sets.
func Diff[K comparable](source, dest Set[K]) (toInsert, toDelete Set[K]) {
	toInsert = make(Set[K])
	toDelete = make(Set[K])
	for k := range source {
		if !dest.Has(k) {
			toInsert.Add(k)
		}
	}
	for k := range dest {
		if !source.Has(k) {
			toDelete.Add(k)
		}
	}
	return toInsert, toDelete
}

// Sorted returns the members of s ordered by compare.
func Sorted[K comparable](s Set[K], compare func(a, b K) int) []K {
	out := make([]K, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.SortFunc(out, compare)
	return out
}
