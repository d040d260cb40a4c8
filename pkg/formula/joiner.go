// Package formula provides small ordered string containers used to build
// up propositional-formula fragments before they are handed to the SAT
// adapter. It plays the same role for this module that StringJoiner and
// UniqueStringJoiner play in the original undertaker implementation: a
// deque of clause strings that is joined with a caller-supplied separator,
// silently dropping empty fragments.
package formula

import "strings"

// Joiner is an ordered sequence of non-empty string fragments.
type Joiner struct {
	items []string
}

// New returns an empty Joiner.
func New() *Joiner {
	return &Joiner{}
}

// Append adds a fragment to the end of the sequence. The empty string is
// silently ignored.
func (j *Joiner) Append(fragment string) {
	if fragment == "" {
		return
	}
	j.items = append(j.items, fragment)
}

// Prepend adds a fragment to the front of the sequence. The empty string
// is silently ignored. Mirrors StringJoiner::push_front from the original
// implementation.
func (j *Joiner) Prepend(fragment string) {
	if fragment == "" {
		return
	}
	j.items = append([]string{fragment}, j.items...)
}

// Len returns the number of fragments currently held.
func (j *Joiner) Len() int {
	return len(j.items)
}

// Items returns a copy of the accumulated fragments in order.
func (j *Joiner) Items() []string {
	out := make([]string, len(j.items))
	copy(out, j.items)
	return out
}

// Join concatenates all fragments with sep between them. Join(sep) on an
// empty Joiner returns "".
func (j *Joiner) Join(sep string) string {
	if len(j.items) == 0 {
		return ""
	}
	return strings.Join(j.items, sep)
}

// UniqueJoiner behaves like Joiner but drops duplicate fragments,
// first-occurrence wins, preserving insertion order. It corresponds to
// UniqueStringJoiner in the original implementation.
type UniqueJoiner struct {
	Joiner
	seen   map[string]struct{}
	unique bool
}

// NewUnique returns an empty UniqueJoiner with deduplication enabled.
func NewUnique() *UniqueJoiner {
	return &UniqueJoiner{seen: make(map[string]struct{}), unique: true}
}

// Append adds a fragment to the end of the sequence unless it is empty or
// (while deduplication is enabled) already present.
func (j *UniqueJoiner) Append(fragment string) {
	if fragment == "" {
		return
	}
	if j.unique {
		if _, ok := j.seen[fragment]; ok {
			return
		}
		j.seen[fragment] = struct{}{}
	}
	j.Joiner.Append(fragment)
}

// Prepend adds a fragment to the front of the sequence unless it is empty
// or (while deduplication is enabled) already present.
func (j *UniqueJoiner) Prepend(fragment string) {
	if fragment == "" {
		return
	}
	if j.unique {
		if _, ok := j.seen[fragment]; ok {
			return
		}
		j.seen[fragment] = struct{}{}
	}
	j.Joiner.Prepend(fragment)
}

// DisableUniqueness turns off deduplication for subsequent Append/Prepend
// calls, matching UniqueStringJoiner::disableUniqueness.
func (j *UniqueJoiner) DisableUniqueness() {
	j.unique = false
}
