// Package types provides shared type definitions used across spotter packages.
// This package exists to break import cycles between chain, solver, spotter and
// store. Types in this package should be foundational data structures with no
// complex dependencies.
package types

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// UnknownTrait marks a hidden slot whose trait has not been revealed.
const UnknownTrait = "?"

// =============================================================================
// CREW ROSTER
// =============================================================================

// Crew is one roster entry as supplied by the host application.
type Crew struct {
	Symbol      string   `json:"symbol" yaml:"symbol"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	ArchetypeID int      `json:"archetype_id,omitempty" yaml:"archetype_id,omitempty"`
	Traits      []string `json:"traits" yaml:"traits"`
	MaxRarity   int      `json:"max_rarity" yaml:"max_rarity"`
	InPortal    bool     `json:"in_portal" yaml:"in_portal"`
}

// DisplayName returns the name, falling back to the symbol.
func (c Crew) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Symbol
}

// =============================================================================
// SPOTTER STATE
// =============================================================================

// Solve is the persisted record of a node's resolved hidden traits.
// len(Traits) always equals the node's hidden slot count.
type Solve struct {
	Node      int       `json:"node"`
	Traits    []string  `json:"traits"`
	Crew      []string  `json:"crew,omitempty"`
	Confirmed bool      `json:"confirmed,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Resolved reports how many slots hold a known trait.
func (s Solve) Resolved() int {
	n := 0
	for _, t := range s.Traits {
		if t != UnknownTrait && t != "" {
			n++
		}
	}
	return n
}

// Complete reports whether every slot is resolved.
func (s Solve) Complete() bool {
	return len(s.Traits) > 0 && s.Resolved() == len(s.Traits)
}

// Mark records the latest local decision about one crew symbol or trait.
// For crew, Count is 1 when attempted and 0 once forgotten. For traits,
// Count is the number of ignored occurrences. Marks let a removal outlive
// a merge with a peer that still lists the entry.
type Mark struct {
	Key   string    `json:"key"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// SpotterState is the per-chain persisted record of solves and tried crew.
// A solve whose slots are all unknown records a reset and is kept so the
// reset survives reconciliation.
type SpotterState struct {
	ChainID       string    `json:"chainId,omitempty"`
	Solves        []Solve   `json:"solves"`
	AttemptedCrew []string  `json:"attemptedCrew"`
	IgnoredTraits []string  `json:"ignoredTraits"`
	CrewMarks     []Mark    `json:"crewMarks,omitempty"`
	TraitMarks    []Mark    `json:"traitMarks,omitempty"`
	PostedAt      time.Time `json:"postedAt,omitempty"`
}

// NewSpotterState returns an empty state for a chain.
func NewSpotterState(chainID string) SpotterState {
	return SpotterState{
		ChainID:       chainID,
		Solves:        []Solve{},
		AttemptedCrew: []string{},
		IgnoredTraits: []string{},
	}
}

// Clone returns a deep copy.
func (s SpotterState) Clone() SpotterState {
	out := SpotterState{
		ChainID:       s.ChainID,
		Solves:        make([]Solve, len(s.Solves)),
		AttemptedCrew: slices.Clone(s.AttemptedCrew),
		IgnoredTraits: slices.Clone(s.IgnoredTraits),
		CrewMarks:     slices.Clone(s.CrewMarks),
		TraitMarks:    slices.Clone(s.TraitMarks),
		PostedAt:      s.PostedAt,
	}
	for i, sv := range s.Solves {
		sv.Traits = slices.Clone(sv.Traits)
		sv.Crew = slices.Clone(sv.Crew)
		out.Solves[i] = sv
	}
	if out.AttemptedCrew == nil {
		out.AttemptedCrew = []string{}
	}
	if out.IgnoredTraits == nil {
		out.IgnoredTraits = []string{}
	}
	return out
}

// SolveFor returns the solve recorded for a node, if any.
func (s SpotterState) SolveFor(node int) (Solve, bool) {
	for _, sv := range s.Solves {
		if sv.Node == node {
			return sv, true
		}
	}
	return Solve{}, false
}

// PutSolve inserts or replaces the solve for sv.Node, keeping Solves sorted.
func (s *SpotterState) PutSolve(sv Solve) {
	for i := range s.Solves {
		if s.Solves[i].Node == sv.Node {
			s.Solves[i] = sv
			return
		}
	}
	s.Solves = append(s.Solves, sv)
	sort.Slice(s.Solves, func(i, j int) bool { return s.Solves[i].Node < s.Solves[j].Node })
}

// DropSolve removes the solve for a node. Returns false if none existed.
func (s *SpotterState) DropSolve(node int) bool {
	for i := range s.Solves {
		if s.Solves[i].Node == node {
			s.Solves = append(s.Solves[:i], s.Solves[i+1:]...)
			return true
		}
	}
	return false
}

// ConfirmedCount is the number of complete, confirmed solves.
func (s SpotterState) ConfirmedCount() int {
	n := 0
	for _, sv := range s.Solves {
		if sv.Confirmed && sv.Complete() {
			n++
		}
	}
	return n
}

// ResolvedCount is the number of solves with at least one known slot.
// All-unknown solves record resets and are not counted.
func (s SpotterState) ResolvedCount() int {
	n := 0
	for _, sv := range s.Solves {
		if sv.Resolved() > 0 {
			n++
		}
	}
	return n
}

// IsAttempted reports whether crew has been tried and rejected.
func (s SpotterState) IsAttempted(symbol string) bool {
	return slices.Contains(s.AttemptedCrew, symbol)
}

// MarkCrew records that symbol was attempted (or forgotten) at the given time.
func (s *SpotterState) MarkCrew(symbol string, attempted bool, at time.Time) {
	n := 0
	if attempted {
		n = 1
	}
	s.CrewMarks = PutMark(s.CrewMarks, Mark{Key: symbol, Count: n, At: at})
}

// MarkTrait records how many times trait is ignored as of the given time.
func (s *SpotterState) MarkTrait(trait string, count int, at time.Time) {
	s.TraitMarks = PutMark(s.TraitMarks, Mark{Key: trait, Count: count, At: at})
}

// PutMark inserts or replaces the mark for m.Key, keeping marks sorted by key.
func PutMark(marks []Mark, m Mark) []Mark {
	i, found := slices.BinarySearchFunc(marks, m.Key, func(x Mark, k string) int {
		return strings.Compare(x.Key, k)
	})
	if found {
		marks[i] = m
		return marks
	}
	return slices.Insert(marks, i, m)
}

// MergeMarks combines two mark sets, keeping the later mark per key.
func MergeMarks(a, b []Mark) []Mark {
	out := slices.Clone(a)
	for _, m := range b {
		i := slices.IndexFunc(out, func(x Mark) bool { return x.Key == m.Key })
		if i >= 0 && !m.At.After(out[i].At) {
			continue
		}
		out = PutMark(out, m)
	}
	return out
}
