package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/solver"
)

// Filter hides rows the user opted out of.
type Filter struct {
	HideAlphaExceptions   bool
	HideOneHandExceptions bool
	HideNonOptimal        bool
}

// comboFlags marks the rule outcomes of one combo on one node.
type comboFlags struct {
	alpha, oneHand, optimal bool
}

// RenderSolver renders a snapshot: the node overview, then per open node its
// combos and candidates.
func RenderSolver(s *solver.Solver, f Filter, styles Styles) string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(fmt.Sprintf("Chain %s (difficulty %d, %s mode)", s.Chain.ID, s.Chain.DifficultyID, s.Mode)))
	sb.WriteString("\n")
	sb.WriteString(styles.Muted.Render(fmt.Sprintf("Pool: %s", strings.Join(s.Chain.Pool(), ", "))))
	sb.WriteString("\n\n")

	overview := NewTable("Nodes", "Node", "Status", "Open", "Hidden", "Solver")
	for _, n := range s.Chain.Nodes {
		overview.AddRow(statusTone(n.Status),
			strconv.Itoa(n.Index),
			string(n.Status),
			strings.Join(n.OpenTraits, ", "),
			strings.Join(n.HiddenSlots, ", "),
			strings.Join(n.SolverCrew, ", "),
		)
	}
	sb.WriteString(overview.View(styles))

	flags := collectFlags(s)
	for _, res := range s.Nodes {
		if !res.Node.IsOpen() {
			continue
		}
		sb.WriteString(renderNode(res, flags, f, styles))
	}

	if len(s.KnownWrong) > 0 {
		sb.WriteString(styles.Muted.Render("Known wrong: " + strings.Join(s.KnownWrong, ", ")))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderNode(res solver.NodeResult, flags map[solver.ComboKey]comboFlags, f Filter, styles Styles) string {
	var sb strings.Builder
	n := res.Node
	header := fmt.Sprintf("Node %d: %s + %d hidden", n.Index, strings.Join(n.OpenTraits, ", "), n.HiddenLeft)
	if n.OneHandTest {
		header += " [one-hand]"
	}

	if res.NoKnownSolution {
		sb.WriteString(styles.Title.Render(header))
		sb.WriteString("\n")
		sb.WriteString(styles.Warning.Render("No known solution"))
		sb.WriteString("\n\n")
		return sb.String()
	}

	combos := NewTable(header, "Combo", "Crew", "Portals", "Notes")
	for _, cc := range res.Combos {
		fl := flags[solver.ComboKey{Node: cc.Node, Key: cc.Combo.Key()}]
		fl.optimal = containsSet(res.Optimal, cc.Combo)
		if hidden(fl, f) {
			continue
		}
		combos.AddRow(fl.tone(),
			strings.Join(cc.Combo, ", "),
			strings.Join(cc.Crew, ", "),
			strconv.Itoa(cc.Portals),
			fl.notes(),
		)
	}
	sb.WriteString(combos.View(styles))

	cands := NewTable("", "Crew", "Matched", "Nodes", "Portal", "Notes")
	for _, c := range res.Candidates {
		m := c.Matches[n.Index]
		fl := comboFlags{
			alpha:   c.Alpha.Excepted(n.Index),
			oneHand: c.OneHand.Excepted(n.Index),
			optimal: m.Optimal,
		}
		if hidden(fl, f) {
			continue
		}
		note := fl.notes()
		if !fl.optimal {
			note = strings.TrimSpace(note + " non-optimal")
		}
		cands.AddRow(fl.tone(),
			c.Crew.DisplayName(),
			strings.Join(m.MatchedTraits, ", "),
			strconv.Itoa(c.NodesRarity),
			portalLabel(c.Crew.InPortal),
			note,
		)
	}
	sb.WriteString(cands.View(styles))
	return sb.String()
}

func collectFlags(s *solver.Solver) map[solver.ComboKey]comboFlags {
	out := make(map[solver.ComboKey]comboFlags)
	for _, c := range s.Candidates {
		for _, ref := range c.Alpha.Exceptions {
			fl := out[ref.Key()]
			fl.alpha = true
			out[ref.Key()] = fl
		}
		for _, ref := range c.OneHand.Exceptions {
			fl := out[ref.Key()]
			fl.oneHand = true
			out[ref.Key()] = fl
		}
	}
	return out
}

func hidden(fl comboFlags, f Filter) bool {
	return (fl.alpha && f.HideAlphaExceptions) ||
		(fl.oneHand && f.HideOneHandExceptions) ||
		(!fl.optimal && f.HideNonOptimal)
}

// tone colours a row: rule exceptions first, then optimal, else faded.
func (fl comboFlags) tone() Tone {
	switch {
	case fl.alpha || fl.oneHand:
		return ToneWarn
	case fl.optimal:
		return ToneGood
	default:
		return ToneFaded
	}
}

func (fl comboFlags) notes() string {
	var out []string
	if fl.optimal {
		out = append(out, "optimal")
	}
	if fl.alpha {
		out = append(out, "alpha")
	}
	if fl.oneHand {
		out = append(out, "one-hand")
	}
	return strings.Join(out, " ")
}

func containsSet(sets []chain.TraitSet, s chain.TraitSet) bool {
	for _, o := range sets {
		if o.Equal(s) {
			return true
		}
	}
	return false
}

func statusTone(st chain.Status) Tone {
	switch st {
	case chain.StatusConfirmed, chain.StatusInfallible:
		return ToneGood
	case chain.StatusUnconfirmed:
		return ToneInfo
	default:
		return ToneDefault
	}
}

func portalLabel(inPortal bool) string {
	if inPortal {
		return "yes"
	}
	return "no"
}

// RenderChains lists stored chains in the order given.
func RenderChains(rows [][]string, styles Styles) string {
	t := NewTable("Stored chains", "Chain", "Solves", "Confirmed", "Updated")
	for _, r := range rows {
		t.AddRow(ToneDefault, r...)
	}
	if out := t.View(styles); out != "" {
		return out
	}
	return styles.Muted.Render("No stored chains.") + "\n"
}
