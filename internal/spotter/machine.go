// Package spotter tracks per-node solve progress for a chain and keeps the
// solver snapshot in step with it.
package spotter

import (
	"fmt"
	"slices"
	"time"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/solver"
	"fleetspotter/internal/types"
)

const unknown = types.UnknownTrait

// Preferences change how submissions are recorded.
type Preferences struct {
	// ConfirmSolves keeps submitted solves unconfirmed until Confirm is
	// called. When false, complete submissions are confirmed immediately.
	ConfirmSolves bool
}

// Machine applies solve transitions to a SpotterState. It never mutates its
// input; every operation returns a new state.
type Machine struct {
	raw    chain.RawChain
	roster map[string]types.Crew
	prefs  Preferences
	now    func() time.Time
}

// NewMachine binds a machine to a chain and roster.
func NewMachine(raw chain.RawChain, roster []types.Crew, prefs Preferences) *Machine {
	m := &Machine{
		raw:    raw,
		roster: make(map[string]types.Crew, len(roster)),
		prefs:  prefs,
		now:    time.Now,
	}
	for _, c := range roster {
		m.roster[c.Symbol] = c
	}
	return m
}

// Status returns the decoded status of a node under st.
func (m *Machine) Status(st types.SpotterState, node int) (chain.Status, error) {
	_, n, err := m.node(st, node)
	if err != nil {
		return "", err
	}
	return n.Status, nil
}

// SubmitTraits records a trait assignment for every hidden slot of node.
// Empty entries are treated as unknown. Every known entry must come from the
// pool left over by the other nodes; slots the game revealed accept only
// their revealed trait. An all-unknown submission resets the solve.
func (m *Machine) SubmitTraits(st types.SpotterState, node int, traits []string) (types.SpotterState, error) {
	_, n, err := m.editable(st, node)
	if err != nil {
		return st, err
	}
	if len(traits) != len(n.HiddenSlots) {
		return st, fmt.Errorf("%w: node %d has %d slots, got %d", ErrSlotCount, node, len(n.HiddenSlots), len(traits))
	}
	slots := make([]string, len(traits))
	for i, t := range traits {
		if t == "" {
			t = unknown
		}
		slots[i] = t
	}
	if err := m.checkPool(st, node, slots); err != nil {
		return st, err
	}

	next := st.Clone()
	prev, _ := st.SolveFor(node)
	sv := types.Solve{Node: node, Traits: slots, Crew: prev.Crew, UpdatedAt: m.now()}
	if sv.Resolved() == 0 {
		sv.Crew = nil
	}
	sv.Confirmed = !m.prefs.ConfirmSolves && sv.Complete()
	next.PutSolve(sv)
	return next, nil
}

// checkPool validates slots against the pool as it stands without node's
// own solve, so resubmitting an unconfirmed solve is not blocked by itself.
func (m *Machine) checkPool(st types.SpotterState, node int, slots []string) error {
	base := st.Clone()
	base.DropSolve(node)
	c, n, err := m.node(base, node)
	if err != nil {
		return err
	}
	left := make(map[string]int)
	for _, t := range c.Pool() {
		if !n.TraitsKnown.Contains(t) {
			left[t]++
		}
	}
	for i, t := range slots {
		if t == unknown {
			continue
		}
		if revealed := n.HiddenSlots[i]; revealed != unknown {
			if t != revealed {
				return fmt.Errorf("%w: node %d slot %d was revealed as %s, got %s", ErrUnknownTrait, node, i, revealed, t)
			}
			continue
		}
		if left[t] == 0 {
			return fmt.Errorf("%w: %s is not available for node %d", ErrUnknownTrait, t, node)
		}
		left[t]--
	}
	return nil
}

// MarkSolver records crew as the solver of node, filling the node's unknown
// slots from combo. combo may be empty when the crew has a single combo.
func (m *Machine) MarkSolver(st types.SpotterState, node int, symbol string, combo []string) (types.SpotterState, error) {
	c, n, err := m.editable(st, node)
	if err != nil {
		return st, err
	}
	crew, ok := m.roster[symbol]
	if !ok {
		return st, fmt.Errorf("%w: %s", ErrUnknownCrew, symbol)
	}
	match, ok := solver.Match(n, c.PoolSet(), chain.NewTraitSet(crew.Traits...))
	if !ok {
		return st, fmt.Errorf("%w: %s on node %d", ErrCrewMismatch, symbol, node)
	}

	var chosen chain.TraitSet
	switch {
	case len(combo) > 0:
		want := chain.NewTraitSet(combo...)
		if want.Len() != n.HiddenLeft {
			return st, fmt.Errorf("%w: node %d has %d unknown slots, got %d", ErrSlotCount, node, n.HiddenLeft, want.Len())
		}
		for _, cand := range match.Combos {
			if cand.Equal(want) {
				chosen = cand
			}
		}
		if chosen == nil {
			return st, fmt.Errorf("%w: %s cannot produce %s", ErrCrewMismatch, symbol, want)
		}
	case len(match.Combos) == 1:
		chosen = match.Combos[0]
	default:
		return st, fmt.Errorf("%w: %s has %d combos on node %d", ErrAmbiguousSolver, symbol, len(match.Combos), node)
	}

	slots := slices.Clone(n.HiddenSlots)
	next := 0
	for i := range slots {
		if slots[i] == unknown {
			slots[i] = chosen[next]
			next++
		}
	}

	out := st.Clone()
	out.PutSolve(types.Solve{
		Node:      node,
		Traits:    slots,
		Crew:      []string{symbol},
		Confirmed: !m.prefs.ConfirmSolves,
		UpdatedAt: m.now(),
	})
	return out, nil
}

// Confirm accepts an unconfirmed solve.
func (m *Machine) Confirm(st types.SpotterState, node int) (types.SpotterState, error) {
	_, n, err := m.node(st, node)
	if err != nil {
		return st, err
	}
	switch n.Status {
	case chain.StatusInfallible:
		return st, fmt.Errorf("%w: node %d is infallible", ErrNodeLocked, node)
	case chain.StatusConfirmed:
		return st, nil
	case chain.StatusUnconfirmed:
	default:
		return st, fmt.Errorf("%w: node %d is %s", ErrIncomplete, node, n.Status)
	}
	out := st.Clone()
	sv, _ := out.SolveFor(node)
	sv.Confirmed = true
	sv.UpdatedAt = m.now()
	out.PutSolve(sv)
	return out, nil
}

// ResetSlot returns one hidden slot to unknown. Slots revealed by the game
// cannot be reset.
func (m *Machine) ResetSlot(st types.SpotterState, node, slot int) (types.SpotterState, error) {
	_, n, err := m.resettable(st, node)
	if err != nil {
		return st, err
	}
	if slot < 0 || slot >= len(n.HiddenSlots) {
		return st, fmt.Errorf("%w: node %d has no slot %d", ErrSlotCount, node, slot)
	}
	if t := m.raw.Nodes[node].HiddenTraits[slot]; t != unknown && t != "" {
		return st, fmt.Errorf("%w: node %d slot %d was revealed by the game", ErrNodeLocked, node, slot)
	}
	if _, ok := st.SolveFor(node); !ok {
		return st, nil
	}

	out := st.Clone()
	sv, _ := out.SolveFor(node)
	sv.Traits[slot] = unknown
	sv.Confirmed = false
	sv.UpdatedAt = m.now()
	if sv.Resolved() == 0 {
		sv.Crew = nil
	}
	out.PutSolve(sv)
	return out, nil
}

// Reset returns every hidden slot of node to unknown. The all-unknown solve
// is kept with a fresh timestamp so a later merge does not bring the old
// traits back.
func (m *Machine) Reset(st types.SpotterState, node int) (types.SpotterState, error) {
	_, n, err := m.resettable(st, node)
	if err != nil {
		return st, err
	}
	if _, ok := st.SolveFor(node); !ok {
		return st, nil
	}
	slots := make([]string, len(n.HiddenSlots))
	for i := range slots {
		slots[i] = unknown
	}
	out := st.Clone()
	out.PutSolve(types.Solve{Node: node, Traits: slots, UpdatedAt: m.now()})
	return out, nil
}

// AttemptCrew records a crew that was tried and failed.
func (m *Machine) AttemptCrew(st types.SpotterState, symbol string) (types.SpotterState, error) {
	if _, ok := m.roster[symbol]; !ok {
		return st, fmt.Errorf("%w: %s", ErrUnknownCrew, symbol)
	}
	if st.IsAttempted(symbol) {
		return st, nil
	}
	out := st.Clone()
	out.AttemptedCrew = append(out.AttemptedCrew, symbol)
	slices.Sort(out.AttemptedCrew)
	out.MarkCrew(symbol, true, m.now())
	return out, nil
}

// ForgetAttempt removes a crew from the attempted list and records the
// removal so peers that still list the crew do not restore it.
func (m *Machine) ForgetAttempt(st types.SpotterState, symbol string) (types.SpotterState, error) {
	if !st.IsAttempted(symbol) {
		return st, nil
	}
	out := st.Clone()
	out.AttemptedCrew = slices.DeleteFunc(out.AttemptedCrew, func(s string) bool { return s == symbol })
	out.MarkCrew(symbol, false, m.now())
	return out, nil
}

// IgnoreTrait removes one instance of trait from the pool.
func (m *Machine) IgnoreTrait(st types.SpotterState, trait string) (types.SpotterState, error) {
	if !slices.Contains(m.raw.Traits, trait) {
		return st, fmt.Errorf("%w: %s", ErrUnknownTrait, trait)
	}
	out := st.Clone()
	out.IgnoredTraits = append(out.IgnoredTraits, trait)
	out.MarkTrait(trait, countOf(out.IgnoredTraits, trait), m.now())
	return out, nil
}

// RestoreTrait returns one ignored instance of trait to the pool.
func (m *Machine) RestoreTrait(st types.SpotterState, trait string) (types.SpotterState, error) {
	i := slices.Index(st.IgnoredTraits, trait)
	if i < 0 {
		return st, fmt.Errorf("%w: %s is not ignored", ErrUnknownTrait, trait)
	}
	out := st.Clone()
	out.IgnoredTraits = slices.Delete(out.IgnoredTraits, i, i+1)
	out.MarkTrait(trait, countOf(out.IgnoredTraits, trait), m.now())
	return out, nil
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

func (m *Machine) node(st types.SpotterState, node int) (*chain.Chain, chain.Node, error) {
	if node < 0 || node >= len(m.raw.Nodes) {
		return nil, chain.Node{}, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	c, err := chain.Decode(m.raw, st)
	if err != nil {
		return nil, chain.Node{}, err
	}
	return c, c.Nodes[node], nil
}

// editable admits nodes that can take a new solve.
func (m *Machine) editable(st types.SpotterState, node int) (*chain.Chain, chain.Node, error) {
	c, n, err := m.node(st, node)
	if err != nil {
		return nil, n, err
	}
	if n.Status.Terminal() {
		return nil, n, fmt.Errorf("%w: node %d is %s", ErrNodeLocked, node, n.Status)
	}
	return c, n, nil
}

// resettable admits every node the game did not resolve.
func (m *Machine) resettable(st types.SpotterState, node int) (*chain.Chain, chain.Node, error) {
	c, n, err := m.node(st, node)
	if err != nil {
		return nil, n, err
	}
	if n.Status == chain.StatusInfallible {
		return nil, n, fmt.Errorf("%w: node %d is infallible", ErrNodeLocked, node)
	}
	return c, n, nil
}
