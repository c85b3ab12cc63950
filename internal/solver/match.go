package solver

import (
	"fleetspotter/internal/chain"
)

// Match tests a crew trait set against an open node.
//
// The crew must carry every known trait of the node. Its matched traits are
// the remaining pool (less the known traits) that it also carries; there must
// be at least HiddenLeft of them. Every HiddenLeft-sized subset of the matched
// traits is a combo.
func Match(node chain.Node, pool, crewTraits chain.TraitSet) (*NodeMatch, bool) {
	if !node.IsOpen() {
		return nil, false
	}
	if !node.TraitsKnown.SubsetOf(crewTraits) {
		return nil, false
	}
	matched := pool.Minus(node.TraitsKnown).Intersect(crewTraits)
	if matched.Len() < node.HiddenLeft {
		return nil, false
	}
	return &NodeMatch{
		Node:          node.Index,
		MatchedTraits: matched,
		Combos:        Combinations(matched, node.HiddenLeft),
	}, true
}

// Combinations returns every k-sized subset of set in lexicographic order.
func Combinations(set chain.TraitSet, k int) []chain.TraitSet {
	n := set.Len()
	if k <= 0 || k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out []chain.TraitSet
	for {
		combo := make(chain.TraitSet, k)
		for i, j := range idx {
			combo[i] = set[j]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// matchCandidate runs Match for one candidate against every open node.
func matchCandidate(c *chain.Chain, pool chain.TraitSet, cand *Candidate) {
	cand.Matches = make(map[int]*NodeMatch)
	for _, node := range c.Nodes {
		if m, ok := Match(node, pool, cand.Traits); ok {
			cand.Matches[node.Index] = m
		}
	}
	cand.NodesRarity = len(cand.Matches)
}
