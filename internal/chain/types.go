// Package chain decodes raw Fleet Boss Battle combo chains into normalized
// nodes and a trait pool that the solver can reason about.
package chain

import (
	"fmt"

	"fleetspotter/internal/types"
)

const unknown = types.UnknownTrait

// =============================================================================
// RAW INPUT
// =============================================================================

// RawNode is one node as delivered by the game.
type RawNode struct {
	OpenTraits              []string `json:"open_traits"`
	HiddenTraits            []string `json:"hidden_traits"`
	UnlockedCrewArchetypeID int      `json:"unlocked_crew_archetype_id,omitempty"`
}

// RawChain is the game's combo chain: ordered nodes plus the shared pool.
type RawChain struct {
	ID           string    `json:"id"`
	DifficultyID int       `json:"difficulty_id"`
	Traits       []string  `json:"traits"`
	Nodes        []RawNode `json:"nodes"`
}

// =============================================================================
// NORMALIZED MODEL
// =============================================================================

// TraitID identifies one occurrence of a trait symbol within a chain.
type TraitID struct {
	Symbol   string
	Instance int
}

func (id TraitID) String() string {
	return fmt.Sprintf("%s#%d", id.Symbol, id.Instance)
}

// Source says where a trait instance came from.
type Source string

const (
	SourcePool Source = "pool"
	SourceOpen Source = "open"
)

// ConsumedByUser marks a pool instance removed through ignored traits.
const ConsumedByUser = -1

// TraitInstance is one tracked occurrence of a trait.
type TraitInstance struct {
	ID         TraitID
	Source     Source
	Node       int // owning node for SourceOpen; -1 for the pool
	Consumed   bool
	ConsumedBy int // node index, or ConsumedByUser
}

// Status is a node's position in the solve lifecycle.
type Status string

const (
	StatusOpen        Status = "open"
	StatusPartial     Status = "partial"
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusInfallible  Status = "infallible"
)

// Terminal reports whether no further forward transition is possible.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusInfallible
}

// Node is one position in the chain after decoding.
type Node struct {
	Index               int
	DifficultyID        int
	OpenTraits          []string
	OpenTraitIDs        []TraitID
	HiddenSlots         []string
	UnlockedArchetypeID int
	SolverCrew          []string

	TraitsKnown TraitSet
	HiddenLeft  int
	AlphaTest   string
	OneHandTest bool
	Status      Status
}

// IsOpen reports whether hidden slots remain.
func (n Node) IsOpen() bool { return n.HiddenLeft > 0 }

// Resolved reports whether every hidden slot is known.
func (n Node) Resolved() bool { return n.HiddenLeft == 0 }

// ResolvedHidden returns the known hidden traits in slot order.
func (n Node) ResolvedHidden() []string {
	out := make([]string, 0, len(n.HiddenSlots))
	for _, t := range n.HiddenSlots {
		if t != unknown {
			out = append(out, t)
		}
	}
	return out
}

// Chain is the decoded chain snapshot.
type Chain struct {
	ID            string
	DifficultyID  int
	Nodes         []Node
	Instances     []TraitInstance // pool instances, in raw order
	OpenInstances []TraitInstance
	RawPoolSize   int
}

// Pool returns the available (unconsumed) pool symbols as a multiset.
func (c *Chain) Pool() []string {
	out := make([]string, 0, len(c.Instances))
	for _, in := range c.Instances {
		if !in.Consumed {
			out = append(out, in.ID.Symbol)
		}
	}
	return out
}

// PoolSet returns the distinct available pool symbols.
func (c *Chain) PoolSet() TraitSet {
	return NewTraitSet(c.Pool()...)
}

// ConsumedCount is the number of pool instances consumed by solves or the user.
func (c *Chain) ConsumedCount() int {
	n := 0
	for _, in := range c.Instances {
		if in.Consumed {
			n++
		}
	}
	return n
}

// OpenNodes returns the nodes that still have hidden slots.
func (c *Chain) OpenNodes() []Node {
	var out []Node
	for _, n := range c.Nodes {
		if n.IsOpen() {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the node at index.
func (c *Chain) Node(index int) (Node, bool) {
	if index < 0 || index >= len(c.Nodes) {
		return Node{}, false
	}
	return c.Nodes[index], true
}

// FullySolved reports whether every node is resolved.
func (c *Chain) FullySolved() bool {
	for _, n := range c.Nodes {
		if n.IsOpen() {
			return false
		}
	}
	return len(c.Nodes) > 0
}

// =============================================================================
// DIFFICULTY
// =============================================================================

var maxRarityByDifficulty = map[int]int{
	1: 2,
	2: 3,
	3: 4,
	4: 4,
	5: 5,
	6: 5,
}

// MaxRarity returns the highest crew rarity that can appear in a chain of the
// given difficulty.
func MaxRarity(difficultyID int) (int, error) {
	r, ok := maxRarityByDifficulty[difficultyID]
	if !ok {
		return 0, fmt.Errorf("%w: unknown difficulty id %d", ErrMalformedChain, difficultyID)
	}
	return r, nil
}

// oneHandApplies is true for the hardest difficulty, and for the second
// hardest on every node but the first.
func oneHandApplies(difficultyID, nodeIndex int) bool {
	return difficultyID == 6 || (difficultyID == 5 && nodeIndex > 0)
}
