package chain

import (
	"slices"
	"strings"
)

// TraitSet is a sorted, duplicate-free list of trait symbols.
// The zero value is the empty set.
type TraitSet []string

// NewTraitSet builds a set from arbitrary symbols, dropping unknown markers.
func NewTraitSet(symbols ...string) TraitSet {
	out := make(TraitSet, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || s == unknown {
			continue
		}
		out = append(out, s)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Key is the canonical string form, usable as a map key.
func (s TraitSet) Key() string {
	return strings.Join(s, ",")
}

// ParseKey is the inverse of Key.
func ParseKey(key string) TraitSet {
	if key == "" {
		return TraitSet{}
	}
	return NewTraitSet(strings.Split(key, ",")...)
}

// Len returns the number of traits.
func (s TraitSet) Len() int { return len(s) }

// Contains reports membership.
func (s TraitSet) Contains(trait string) bool {
	_, ok := slices.BinarySearch(s, trait)
	return ok
}

// SubsetOf reports s ⊆ other.
func (s TraitSet) SubsetOf(other TraitSet) bool {
	if len(s) > len(other) {
		return false
	}
	i := 0
	for _, t := range other {
		if i == len(s) {
			break
		}
		if t == s[i] {
			i++
		} else if t > s[i] {
			return false
		}
	}
	return i == len(s)
}

// StrictSubsetOf reports s ⊂ other.
func (s TraitSet) StrictSubsetOf(other TraitSet) bool {
	return len(s) < len(other) && s.SubsetOf(other)
}

// Equal reports set equality.
func (s TraitSet) Equal(other TraitSet) bool {
	return slices.Equal(s, other)
}

// Intersect returns s ∩ other.
func (s TraitSet) Intersect(other TraitSet) TraitSet {
	out := TraitSet{}
	for _, t := range s {
		if other.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// Minus returns s \ other.
func (s TraitSet) Minus(other TraitSet) TraitSet {
	out := TraitSet{}
	for _, t := range s {
		if !other.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// Union returns s ∪ other.
func (s TraitSet) Union(other TraitSet) TraitSet {
	merged := make([]string, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewTraitSet(merged...)
}

// String renders the set for humans.
func (s TraitSet) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}
