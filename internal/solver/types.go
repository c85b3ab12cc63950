// Package solver computes, for every open node of a decoded chain, the crew
// that could still solve it and the hidden-trait combinations they imply.
package solver

import (
	"sort"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/types"
)

// NodeMatch is one candidate's hypothesis space for one open node.
type NodeMatch struct {
	Node          int
	MatchedTraits chain.TraitSet
	Combos        []chain.TraitSet
	Optimal       bool
}

// Candidate is a roster entry that passed the rarity ceiling.
type Candidate struct {
	Crew        types.Crew
	Traits      chain.TraitSet
	Matches     map[int]*NodeMatch
	NodesRarity int

	Alpha   RuleResult
	OneHand RuleResult
}

// Symbol is shorthand for c.Crew.Symbol.
func (c *Candidate) Symbol() string { return c.Crew.Symbol }

// Nodes returns the matched node indexes in ascending order.
func (c *Candidate) Nodes() []int {
	out := make([]int, 0, len(c.Matches))
	for n := range c.Matches {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ComboKey addresses a combo on a particular node.
type ComboKey struct {
	Node int
	Key  string
}

// ComboRef is a combo on a node, as carried in rule exceptions.
type ComboRef struct {
	Node  int
	Combo chain.TraitSet
}

// Key returns the map key for the reference.
func (r ComboRef) Key() ComboKey { return ComboKey{Node: r.Node, Key: r.Combo.Key()} }

// ComboCount aggregates the crew producing a combo on a node.
type ComboCount struct {
	Node    int
	Combo   chain.TraitSet
	Crew    []string
	Portals int
}

// RuleResult is the outcome of one heuristic for one candidate.
// ExceptedNodes lists nodes where no surviving combo complies; Exceptions
// lists every non-compliant combo.
type RuleResult struct {
	CompliantMatches int
	Exceptions       []ComboRef
	ExceptedNodes    []int
}

// Excepted reports whether node is a full exception.
func (r RuleResult) Excepted(node int) bool {
	for _, n := range r.ExceptedNodes {
		if n == node {
			return true
		}
	}
	return false
}

// NodeResult is the per-node view of a snapshot.
type NodeResult struct {
	Node       chain.Node
	Candidates []*Candidate
	Combos     []*ComboCount
	Optimal    []chain.TraitSet
	// NoKnownSolution is set for open nodes left without any candidate.
	NoKnownSolution bool
}

// Solver is an immutable recompute snapshot.
type Solver struct {
	Chain       *chain.Chain
	Mode        Mode
	Candidates  []*Candidate
	Combos      map[ComboKey]*ComboCount
	TraitRarity map[int]map[string]int
	Ignored     IgnoredSet
	KnownWrong  []string
	Optimal     map[int][]chain.TraitSet
	Nodes       []NodeResult
}

// Candidate looks up a surviving candidate by crew symbol.
func (s *Solver) Candidate(symbol string) (*Candidate, bool) {
	for _, c := range s.Candidates {
		if c.Symbol() == symbol {
			return c, true
		}
	}
	return nil, false
}

// IsIgnored reports whether a combo was excluded on node.
func (s *Solver) IsIgnored(node int, combo chain.TraitSet) bool {
	return s.Ignored.has(node, combo)
}
