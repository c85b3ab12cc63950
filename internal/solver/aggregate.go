package solver

// Aggregate indexes every (node, candidate, combo) triple by combo and
// accumulates portal-weighted trait rarity per node. Candidates are visited in
// slice order so crew lists are deterministic.
func Aggregate(cands []*Candidate) (map[ComboKey]*ComboCount, map[int]map[string]int) {
	combos := make(map[ComboKey]*ComboCount)
	rarity := make(map[int]map[string]int)

	for _, cand := range cands {
		portal := 0
		if cand.Crew.InPortal {
			portal = 1
		}
		for _, n := range cand.Nodes() {
			m := cand.Matches[n]
			for _, combo := range m.Combos {
				key := ComboKey{Node: n, Key: combo.Key()}
				cc, ok := combos[key]
				if !ok {
					cc = &ComboCount{Node: n, Combo: combo}
					combos[key] = cc
				}
				cc.Crew = append(cc.Crew, cand.Symbol())
				cc.Portals += portal
			}

			tr, ok := rarity[n]
			if !ok {
				tr = make(map[string]int)
				rarity[n] = tr
			}
			for _, t := range m.MatchedTraits {
				tr[t] += portal
			}
		}
	}
	return combos, rarity
}
