package engine

import "github.com/transitway/raptor/criteria"

// Front is a Pareto front: a set of (payload, criterion) pairs such
// that no two criteria are comparable, and no criterion outside the
// set dominates any criterion inside it. Grounded on the reference
// engine's ParetoFront<Id, PT>: add/remove-dominated is the only
// mutation the round loop needs, and a plain slice is enough since
// fronts stay small (bounded by the criteria dimensionality, not by
// snapshot size).
type Front[T any] struct {
	entries []Entry[T]
}

// Entry is one member of a Front.
type Entry[T any] struct {
	Payload  T
	Criteria criteria.Criteria
}

// NewFront returns an empty front.
func NewFront[T any]() *Front[T] { return &Front[T]{} }

// IsEmpty reports whether the front has no members.
func (f *Front[T]) IsEmpty() bool { return len(f.entries) == 0 }

// Entries returns the front's current members. The slice must not be
// retained past the next mutating call.
func (f *Front[T]) Entries() []Entry[T] { return f.entries }

// Clear empties the front without releasing its backing array, so
// per-worker scratch fronts can be reused across requests (spec §5:
// "clear-without-deallocate to amortize allocation").
func (f *Front[T]) Clear() { f.entries = f.entries[:0] }

// Dominates reports whether some member of f is at least as good as c
// under cmp.
func (f *Front[T]) Dominates(c criteria.Criteria, cmp func(lower, upper criteria.Criteria) bool) bool {
	for _, e := range f.entries {
		if cmp(e.Criteria, c) {
			return true
		}
	}
	return false
}

// RemoveDominatedBy drops every member that c dominates under cmp.
func (f *Front[T]) RemoveDominatedBy(c criteria.Criteria, cmp func(lower, upper criteria.Criteria) bool) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if !cmp(c, e.Criteria) {
			kept = append(kept, e)
		}
	}
	f.entries = kept
}

// AddUnchecked appends a member without checking dominance. Used only
// when the caller already knows the member cannot be dominated by
// anything currently in the front (e.g. merging a scratch front whose
// members were already filtered against it).
func (f *Front[T]) AddUnchecked(payload T, c criteria.Criteria) {
	f.entries = append(f.entries, Entry[T]{Payload: payload, Criteria: c})
}

// Add inserts (payload, c) if it is not dominated by an existing
// member, first evicting every member c dominates. Returns whether it
// was added.
func (f *Front[T]) Add(payload T, c criteria.Criteria, cmp func(lower, upper criteria.Criteria) bool) bool {
	if f.Dominates(c, cmp) {
		return false
	}
	f.RemoveDominatedBy(c, cmp)
	f.AddUnchecked(payload, c)
	return true
}

// MapCriteria rewrites every member's criterion in place via fn. Used
// by the round loop's ride step, which advances every onboard entry's
// criterion by one position uniformly (spec §4.5).
func (f *Front[T]) MapCriteria(fn func(payload T, c criteria.Criteria) criteria.Criteria) {
	for i := range f.entries {
		f.entries[i].Criteria = fn(f.entries[i].Payload, f.entries[i].Criteria)
	}
}

// MergeUnchecked moves every member of other into f via AddUnchecked
// and clears other. Valid only when the caller guarantees other's
// members are all undominated by f, as is the case when committing a
// round's scratch new-waiting front into the persistent waiting
// front (spec §4.5 step 1).
func (f *Front[T]) MergeUnchecked(other *Front[T]) {
	f.entries = append(f.entries, other.entries...)
	other.Clear()
}
