package solver

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"fleetspotter/internal/chain"
)

// OneHandPortalLimit is the most portal crew a combo may have on a one-hand
// node and still be considered plausible.
const OneHandPortalLimit = 5

// Collator orders trait symbols for the alpha rule.
type Collator interface {
	Compare(a, b string) int
	Name() string
}

// ByteOrder compares symbols bytewise.
type ByteOrder struct{}

func (ByteOrder) Compare(a, b string) int { return strings.Compare(a, b) }
func (ByteOrder) Name() string            { return "byte" }

// LocaleOrder compares symbols with Unicode collation for a language.
type LocaleOrder struct {
	mu  sync.Mutex
	tag language.Tag
	c   *collate.Collator
}

// NewLocaleOrder parses a BCP 47 tag and builds a collator for it.
func NewLocaleOrder(locale string) (*LocaleOrder, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &LocaleOrder{tag: tag, c: collate.New(tag)}, nil
}

// Compare is safe for concurrent use; the underlying collator is not.
func (o *LocaleOrder) Compare(a, b string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.c.CompareString(a, b)
}

func (o *LocaleOrder) Name() string { return "locale:" + o.tag.String() }

// alphaTest returns the greatest open trait under cmp.
func alphaTest(node chain.Node, cmp Collator) string {
	best := ""
	for _, t := range node.OpenTraits {
		if best == "" || cmp.Compare(t, best) > 0 {
			best = t
		}
	}
	return best
}

// AlphaCompliant reports whether every trait of combo sorts strictly after
// the test trait. An empty test trait admits everything.
func AlphaCompliant(combo chain.TraitSet, test string, cmp Collator) bool {
	if test == "" {
		return true
	}
	for _, t := range combo {
		if cmp.Compare(t, test) <= 0 {
			return false
		}
	}
	return true
}

// OneHandCompliant reports whether combo is plausible on node given the
// aggregated portal count. Nodes without the one-hand test always comply.
func OneHandCompliant(node chain.Node, cc *ComboCount) bool {
	if !node.OneHandTest || cc == nil {
		return true
	}
	return cc.Portals <= OneHandPortalLimit
}

// Annotate fills the Alpha and OneHand results of every candidate. Nothing
// is removed.
func Annotate(c *chain.Chain, cands []*Candidate, combos map[ComboKey]*ComboCount, cmp Collator) {
	tests := make(map[int]string, len(c.Nodes))
	for _, n := range c.Nodes {
		tests[n.Index] = alphaTest(n, cmp)
	}

	for _, cand := range cands {
		cand.Alpha = evaluate(cand, func(n int, combo chain.TraitSet) bool {
			return AlphaCompliant(combo, tests[n], cmp)
		})
		cand.OneHand = evaluate(cand, func(n int, combo chain.TraitSet) bool {
			return OneHandCompliant(c.Nodes[n], combos[ComboKey{Node: n, Key: combo.Key()}])
		})
	}
}

func evaluate(cand *Candidate, complies func(node int, combo chain.TraitSet) bool) RuleResult {
	var res RuleResult
	for _, n := range cand.Nodes() {
		ok := 0
		for _, combo := range cand.Matches[n].Combos {
			if complies(n, combo) {
				ok++
			} else {
				res.Exceptions = append(res.Exceptions, ComboRef{Node: n, Combo: combo})
			}
		}
		if ok == 0 {
			res.ExceptedNodes = append(res.ExceptedNodes, n)
		}
	}
	res.CompliantMatches = len(cand.Matches) - len(res.ExceptedNodes)
	return res
}
