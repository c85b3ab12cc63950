package chain

import (
	"fmt"
	"slices"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// Decode normalizes a raw chain against the recorded spotter state.
//
// Solves fill unresolved hidden slots (raw resolved slots always win), open
// traits and pool traits get chain-scoped instance ids, and the pool is
// reduced by every fully resolved node and by the user's ignored traits.
// len(c.Pool()) + c.ConsumedCount() == len(raw.Traits) holds on return.
func Decode(raw RawChain, state types.SpotterState) (*Chain, error) {
	timer := logging.StartTimer(logging.CategoryDecode, "Decode")
	defer timer.Stop()

	if _, err := MaxRarity(raw.DifficultyID); err != nil {
		return nil, err
	}

	solves := make(map[int]types.Solve, len(state.Solves))
	for _, sv := range state.Solves {
		if sv.Node < 0 || sv.Node >= len(raw.Nodes) {
			return nil, fmt.Errorf("%w: solve for node %d but chain has %d nodes", ErrMalformedChain, sv.Node, len(raw.Nodes))
		}
		if len(sv.Traits) != len(raw.Nodes[sv.Node].HiddenTraits) {
			return nil, fmt.Errorf("%w: node %d has %d hidden slots, solve has %d",
				ErrMalformedChain, sv.Node, len(raw.Nodes[sv.Node].HiddenTraits), len(sv.Traits))
		}
		solves[sv.Node] = sv
	}

	c := &Chain{
		ID:           raw.ID,
		DifficultyID: raw.DifficultyID,
		Nodes:        make([]Node, len(raw.Nodes)),
		RawPoolSize:  len(raw.Traits),
	}

	openSeen := make(map[string]int)
	for i, rn := range raw.Nodes {
		node := decodeNode(i, raw.DifficultyID, rn, solves)
		for _, t := range rn.OpenTraits {
			id := TraitID{Symbol: t, Instance: openSeen[t]}
			openSeen[t]++
			node.OpenTraitIDs = append(node.OpenTraitIDs, id)
			c.OpenInstances = append(c.OpenInstances, TraitInstance{
				ID:     id,
				Source: SourceOpen,
				Node:   i,
			})
		}
		c.Nodes[i] = node
	}

	poolSeen := make(map[string]int)
	c.Instances = make([]TraitInstance, len(raw.Traits))
	for i, t := range raw.Traits {
		c.Instances[i] = TraitInstance{
			ID:     TraitID{Symbol: t, Instance: poolSeen[t]},
			Source: SourcePool,
			Node:   -1,
		}
		poolSeen[t]++
	}

	for _, n := range c.Nodes {
		if !n.Resolved() {
			continue
		}
		for _, t := range n.ResolvedHidden() {
			if !c.consume(t, n.Index) {
				logging.Get(logging.CategoryDecode).Warn("node %d resolved trait %s has no pool instance left", n.Index, t)
			}
		}
	}
	for _, t := range state.IgnoredTraits {
		if !c.consume(t, ConsumedByUser) {
			logging.DecodeDebug("ignored trait %s not in remaining pool", t)
		}
	}

	logging.DecodeDebug("decoded chain %s: %d nodes, pool %d/%d available",
		c.ID, len(c.Nodes), len(c.Instances)-c.ConsumedCount(), c.RawPoolSize)
	return c, nil
}

func decodeNode(index, difficultyID int, rn RawNode, solves map[int]types.Solve) Node {
	slots := slices.Clone(rn.HiddenTraits)
	for j := range slots {
		if slots[j] == "" {
			slots[j] = unknown
		}
	}
	rawComplete := !slices.Contains(slots, unknown)

	sv, hasSolve := solves[index]
	if hasSolve && !rawComplete {
		for j := range slots {
			if slots[j] == unknown && sv.Traits[j] != "" {
				slots[j] = sv.Traits[j]
			}
		}
	}

	node := Node{
		Index:               index,
		DifficultyID:        difficultyID,
		OpenTraits:          slices.Clone(rn.OpenTraits),
		HiddenSlots:         slots,
		UnlockedArchetypeID: rn.UnlockedCrewArchetypeID,
		OneHandTest:         oneHandApplies(difficultyID, index),
	}
	if hasSolve {
		node.SolverCrew = slices.Clone(sv.Crew)
	}

	resolved := 0
	for _, t := range slots {
		if t != unknown {
			resolved++
		}
	}
	node.HiddenLeft = len(slots) - resolved
	node.TraitsKnown = NewTraitSet(append(slices.Clone(rn.OpenTraits), slots...)...)
	for _, t := range rn.OpenTraits {
		if t > node.AlphaTest {
			node.AlphaTest = t
		}
	}

	switch {
	case rawComplete:
		node.Status = StatusInfallible
	case resolved == 0:
		node.Status = StatusOpen
	case resolved < len(slots):
		node.Status = StatusPartial
	case hasSolve && sv.Confirmed:
		node.Status = StatusConfirmed
	default:
		node.Status = StatusUnconfirmed
	}
	return node
}

// consume marks the first available pool instance of symbol as consumed.
func (c *Chain) consume(symbol string, by int) bool {
	for i := range c.Instances {
		in := &c.Instances[i]
		if in.Consumed || in.ID.Symbol != symbol {
			continue
		}
		in.Consumed = true
		in.ConsumedBy = by
		return true
	}
	return false
}
