package solver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// Mode selects the engine variant.
type Mode string

const (
	// ModeSolo solves from the local spotter state.
	ModeSolo Mode = "solo"
	// ModeCollaboration solves from a reconciled room state.
	ModeCollaboration Mode = "collaboration"
	// ModeCombo is the legacy combo browser: low-support combos are kept.
	ModeCombo Mode = "combo"
)

// ParseMode validates a mode name. Empty means solo.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSolo:
		return ModeSolo, nil
	case ModeCollaboration, ModeCombo:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Options configures an Engine.
type Options struct {
	Mode        Mode
	Collator    Collator
	MaxParallel int
}

// DefaultOptions returns solo mode, byte ordering and eight workers.
func DefaultOptions() Options {
	return Options{Mode: ModeSolo, Collator: ByteOrder{}, MaxParallel: 8}
}

// Input is everything a recompute depends on.
type Input struct {
	Raw    chain.RawChain     `json:"raw"`
	State  types.SpotterState `json:"state"`
	Roster []types.Crew       `json:"roster"`
}

// Engine runs the full pipeline and remembers the last snapshot.
type Engine struct {
	opts Options

	mu      sync.Mutex
	lastKey string
	last    *Solver
}

// NewEngine creates an engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.Collator == nil {
		opts.Collator = def.Collator
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = def.MaxParallel
	}
	return &Engine{opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Recompute produces a fresh snapshot for in. An identical input returns the
// previous snapshot. On error no snapshot is produced.
func (e *Engine) Recompute(ctx context.Context, in Input) (*Solver, error) {
	key, err := e.inputKey(in)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.last != nil && e.lastKey == key {
		s := e.last
		e.mu.Unlock()
		logging.SolverDebug("recompute cache hit for chain %s", in.Raw.ID)
		return s, nil
	}
	e.mu.Unlock()

	start := time.Now()
	s, err := e.run(ctx, in)
	audit := logging.AuditWithChain(in.Raw.ID)
	if err != nil {
		audit.Recompute(time.Since(start), 0, err)
		return nil, err
	}
	audit.Recompute(time.Since(start), len(s.Candidates), nil)

	e.mu.Lock()
	e.lastKey, e.last = key, s
	e.mu.Unlock()
	return s, nil
}

func (e *Engine) run(ctx context.Context, in Input) (*Solver, error) {
	timer := logging.StartTimer(logging.CategorySolver, "Recompute")
	defer timer.Stop()

	c, err := chain.Decode(in.Raw, in.State)
	if err != nil {
		return nil, fmt.Errorf("decode chain %s: %w", in.Raw.ID, err)
	}
	ceiling, err := chain.MaxRarity(c.DifficultyID)
	if err != nil {
		return nil, err
	}
	pool := c.PoolSet()

	cands, err := e.matchAll(ctx, c, pool, in.Roster, ceiling)
	if err != nil {
		return nil, err
	}
	combos, rarity := Aggregate(cands)

	ignored := make(IgnoredSet)
	wrong := KnownWrong(c, in.State, in.Roster)
	IgnoreKnownWrong(ignored, c, pool, wrong)
	if e.opts.Mode != ModeCombo {
		IgnoreLowSupport(ignored, combos)
	}
	before := len(cands)
	cands = Prune(cands, ignored)
	logging.ExclusionDebug("ignored %d combos, %d/%d candidates survive", len(ignored), len(cands), before)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	Annotate(c, cands, combos, e.opts.Collator)
	optimal := Optimize(cands)

	s := &Solver{
		Chain:       c,
		Mode:        e.opts.Mode,
		Candidates:  cands,
		Combos:      combos,
		TraitRarity: rarity,
		Ignored:     ignored,
		Optimal:     optimal,
	}
	for _, w := range wrong {
		s.KnownWrong = append(s.KnownWrong, w.Symbol)
	}
	s.Nodes = buildNodeResults(s)

	logging.SolverDebug("chain %s: %d candidates over %d open nodes", c.ID, len(cands), len(c.OpenNodes()))
	return s, nil
}

// matchAll filters the roster by rarity and matches candidates in parallel.
// Results keep roster order.
func (e *Engine) matchAll(ctx context.Context, c *chain.Chain, pool chain.TraitSet, roster []types.Crew, ceiling int) ([]*Candidate, error) {
	var eligible []*Candidate
	for _, crew := range roster {
		if crew.MaxRarity > ceiling {
			continue
		}
		eligible = append(eligible, &Candidate{Crew: crew, Traits: chain.NewTraitSet(crew.Traits...)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxParallel)
	for _, cand := range eligible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matchCandidate(c, pool, cand)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := eligible[:0]
	for _, cand := range eligible {
		if cand.NodesRarity > 0 {
			out = append(out, cand)
		}
	}
	return out, nil
}

func buildNodeResults(s *Solver) []NodeResult {
	results := make([]NodeResult, len(s.Chain.Nodes))
	for i, node := range s.Chain.Nodes {
		res := NodeResult{Node: node, Optimal: s.Optimal[i]}
		if node.IsOpen() {
			for _, cand := range s.Candidates {
				if _, ok := cand.Matches[i]; ok {
					res.Candidates = append(res.Candidates, cand)
				}
			}
			res.NoKnownSolution = len(res.Candidates) == 0
			if res.NoKnownSolution {
				logging.Solver("chain %s node %d has no known solution", s.Chain.ID, i)
			}
		}
		results[i] = res
	}

	for key, cc := range s.Combos {
		if _, ignored := s.Ignored[key]; ignored {
			continue
		}
		results[key.Node].Combos = append(results[key.Node].Combos, cc)
	}
	for i := range results {
		combos := results[i].Combos
		sort.Slice(combos, func(a, b int) bool {
			if combos[a].Portals != combos[b].Portals {
				return combos[a].Portals > combos[b].Portals
			}
			return combos[a].Combo.Key() < combos[b].Combo.Key()
		})
	}
	return results
}

func (e *Engine) inputKey(in Input) (string, error) {
	payload := struct {
		Input
		Mode     Mode   `json:"mode"`
		Collator string `json:"collator"`
	}{in, e.opts.Mode, e.opts.Collator.Name()}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("hash recompute input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
