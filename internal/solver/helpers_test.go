package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/types"
)

func set(traits ...string) chain.TraitSet { return chain.NewTraitSet(traits...) }

func crew(symbol string, rarity int, portal bool, traits ...string) types.Crew {
	return types.Crew{Symbol: symbol, MaxRarity: rarity, InPortal: portal, Traits: traits}
}

func decode(t *testing.T, raw chain.RawChain, state types.SpotterState) *chain.Chain {
	t.Helper()
	c, err := chain.Decode(raw, state)
	require.NoError(t, err)
	return c
}

func candidates(c *chain.Chain, roster ...types.Crew) []*Candidate {
	pool := c.PoolSet()
	var out []*Candidate
	for _, cr := range roster {
		cand := &Candidate{Crew: cr, Traits: set(cr.Traits...)}
		matchCandidate(c, pool, cand)
		if cand.NodesRarity > 0 {
			out = append(out, cand)
		}
	}
	return out
}

// exampleChain is the two-node chain used by the pipeline tests.
func exampleChain() chain.RawChain {
	return chain.RawChain{
		ID:           "example",
		DifficultyID: 3,
		Traits:       []string{"BETA", "GAMMA", "EPSILON", "ZETA"},
		Nodes: []chain.RawNode{
			{OpenTraits: []string{"ALPHA"}, HiddenTraits: []string{"?", "?"}},
			{OpenTraits: []string{"DELTA"}, HiddenTraits: []string{"?"}},
		},
	}
}

func exampleRoster() []types.Crew {
	return []types.Crew{
		crew("kirk", 4, true, "ALPHA", "BETA", "GAMMA"),
		crew("spock", 4, true, "ALPHA", "BETA", "GAMMA"),
		crew("data", 4, true, "ALPHA", "BETA", "GAMMA", "EPSILON"),
		crew("worf", 3, true, "DELTA", "ZETA"),
		crew("riker", 3, true, "DELTA", "ZETA"),
		crew("q", 5, true, "ALPHA", "BETA", "GAMMA"),
		crew("odo", 2, false, "DELTA", "EPSILON"),
	}
}

func symbols(cands []*Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Symbol())
	}
	return out
}
