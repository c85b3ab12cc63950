package spotter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/logging"
	"fleetspotter/internal/solver"
	"fleetspotter/internal/types"
)

// StateStore persists spotter state per chain.
type StateStore interface {
	SaveState(ctx context.Context, st types.SpotterState) error
	DeleteState(ctx context.Context, chainID string) error
}

// Session owns the spotter state of one chain. Every transition is applied to
// a copy, recomputed and persisted before it becomes visible; a failure at
// any step leaves the previous state and snapshot in place.
type Session struct {
	mu       sync.Mutex
	raw      chain.RawChain
	roster   []types.Crew
	prefs    Preferences
	machine  *Machine
	now      func() time.Time
	engine   *solver.Engine
	store    StateStore
	state    types.SpotterState
	snapshot *solver.Solver
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Raw         chain.RawChain
	Roster      []types.Crew
	State       types.SpotterState
	Engine      *solver.Engine
	Store       StateStore // optional
	Preferences Preferences
	Clock       func() time.Time // optional, stamps solves and marks
}

// NewSession computes the initial snapshot.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.Engine == nil {
		cfg.Engine = solver.NewEngine(solver.DefaultOptions())
	}
	if cfg.State.ChainID == "" {
		cfg.State.ChainID = cfg.Raw.ID
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Session{
		raw:     cfg.Raw,
		roster:  cfg.Roster,
		prefs:   cfg.Preferences,
		machine: NewMachine(cfg.Raw, cfg.Roster, cfg.Preferences),
		now:     cfg.Clock,
		engine:  cfg.Engine,
		store:   cfg.Store,
		state:   cfg.State.Clone(),
	}
	s.machine.now = s.now
	snap, err := s.engine.Recompute(ctx, s.input(s.raw, s.roster, s.state))
	if err != nil {
		return nil, err
	}
	s.snapshot = snap
	logging.Session("session started for chain %s (%d nodes)", cfg.Raw.ID, len(cfg.Raw.Nodes))
	return s, nil
}

// State returns a copy of the committed state.
func (s *Session) State() types.SpotterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Snapshot returns the committed solver snapshot.
func (s *Session) Snapshot() *solver.Solver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Machine exposes the transition rules bound to the session's chain.
func (s *Session) Machine() *Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine
}

// SubmitTraits records traits for node. See Machine.SubmitTraits.
func (s *Session) SubmitTraits(ctx context.Context, node int, traits []string) error {
	return s.apply(ctx, logging.AuditSolveSubmit, node, strings.Join(traits, ","), func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.SubmitTraits(st, node, traits)
	})
}

// MarkSolver records crew as the solver of node.
func (s *Session) MarkSolver(ctx context.Context, node int, crew string, combo []string) error {
	return s.apply(ctx, logging.AuditSolveSubmit, node, crew, func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.MarkSolver(st, node, crew, combo)
	})
}

// Confirm accepts the unconfirmed solve of node.
func (s *Session) Confirm(ctx context.Context, node int) error {
	return s.apply(ctx, logging.AuditSolveConfirm, node, "", func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.Confirm(st, node)
	})
}

// ResetSlot returns one hidden slot of node to unknown.
func (s *Session) ResetSlot(ctx context.Context, node, slot int) error {
	return s.apply(ctx, logging.AuditSolveReset, node, fmt.Sprintf("slot %d", slot), func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.ResetSlot(st, node, slot)
	})
}

// Reset returns every hidden slot of node to unknown.
func (s *Session) Reset(ctx context.Context, node int) error {
	return s.apply(ctx, logging.AuditSolveReset, node, "", func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.Reset(st, node)
	})
}

// AttemptCrew records crew as tried and failed.
func (s *Session) AttemptCrew(ctx context.Context, crew string) error {
	return s.apply(ctx, logging.AuditCrewAttempt, -1, crew, func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.AttemptCrew(st, crew)
	})
}

// ForgetAttempt drops crew from the attempted list.
func (s *Session) ForgetAttempt(ctx context.Context, crew string) error {
	return s.apply(ctx, logging.AuditCrewAttempt, -1, crew, func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.ForgetAttempt(st, crew)
	})
}

// IgnoreTrait removes one instance of trait from the pool.
func (s *Session) IgnoreTrait(ctx context.Context, trait string) error {
	return s.apply(ctx, logging.AuditTraitIgnore, -1, trait, func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.IgnoreTrait(st, trait)
	})
}

// RestoreTrait returns one ignored instance of trait to the pool.
func (s *Session) RestoreTrait(ctx context.Context, trait string) error {
	return s.apply(ctx, logging.AuditTraitRestore, -1, trait, func(m *Machine, st types.SpotterState) (types.SpotterState, error) {
		return m.RestoreTrait(st, trait)
	})
}

// Merge reconciles a remote state into the session. On ErrDivergentState
// the local state is kept and the error returned.
func (s *Session) Merge(ctx context.Context, remote types.SpotterState) error {
	return s.apply(ctx, logging.AuditCollabPull, -1, remote.ChainID, func(_ *Machine, st types.SpotterState) (types.SpotterState, error) {
		return Reconcile(st, remote)
	})
}

// Reload swaps the chain or roster (or both) and recomputes. Nil roster or a
// zero chain keeps the current one.
func (s *Session) Reload(ctx context.Context, raw *chain.RawChain, roster []types.Crew) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextRaw, nextRoster := s.raw, s.roster
	if raw != nil {
		if raw.ID != s.raw.ID {
			return fmt.Errorf("reload: chain %s does not match session chain %s", raw.ID, s.raw.ID)
		}
		nextRaw = *raw
	}
	if roster != nil {
		nextRoster = roster
	}
	snap, err := s.engine.Recompute(ctx, s.input(nextRaw, nextRoster, s.state))
	if err != nil {
		logging.Get(logging.CategorySession).Warn("reload of chain %s rejected: %v", s.raw.ID, err)
		return err
	}
	s.raw, s.roster, s.snapshot = nextRaw, nextRoster, snap
	s.machine = NewMachine(nextRaw, nextRoster, s.prefs)
	s.machine.now = s.now
	return nil
}

type transition func(m *Machine, st types.SpotterState) (types.SpotterState, error)

func (s *Session) apply(ctx context.Context, event logging.AuditEventType, node int, target string, fn transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	audit := logging.AuditWithChain(s.raw.ID)
	next, err := fn(s.machine, s.state)
	if err != nil {
		audit.Transition(logging.AuditSolveReject, node, target, err)
		return err
	}
	snap, err := s.engine.Recompute(ctx, s.input(s.raw, s.roster, next))
	if err != nil {
		audit.Transition(logging.AuditSolveReject, node, target, err)
		return fmt.Errorf("recompute after %s: %w", event, err)
	}
	if err := s.persist(ctx, next, snap); err != nil {
		audit.Transition(logging.AuditSolveReject, node, target, err)
		return err
	}

	s.state, s.snapshot = next, snap
	audit.Transition(event, node, target, nil)
	logging.SessionDebug("chain %s: %s applied, %d candidates", s.raw.ID, event, len(snap.Candidates))
	return nil
}

func (s *Session) persist(ctx context.Context, st types.SpotterState, snap *solver.Solver) error {
	if s.store == nil {
		return nil
	}
	if snap.Chain.FullySolved() {
		if err := s.store.DeleteState(ctx, st.ChainID); err != nil {
			return fmt.Errorf("delete state: %w", err)
		}
		logging.AuditWithChain(st.ChainID).Transition(logging.AuditStateDelete, -1, "", nil)
		return nil
	}
	if err := s.store.SaveState(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Session) input(raw chain.RawChain, roster []types.Crew, st types.SpotterState) solver.Input {
	return solver.Input{Raw: raw, State: st, Roster: roster}
}

// IsRejected reports whether err came from a refused transition rather than
// an infrastructure failure.
func IsRejected(err error) bool {
	for _, target := range []error{
		ErrNodeLocked, ErrUnknownNode, ErrSlotCount, ErrUnknownCrew,
		ErrUnknownTrait, ErrCrewMismatch, ErrAmbiguousSolver, ErrIncomplete,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
