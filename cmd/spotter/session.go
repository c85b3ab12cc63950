package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fleetspotter/cmd/spotter/ui"
	"fleetspotter/internal/chain"
	"fleetspotter/internal/collab"
	"fleetspotter/internal/logging"
	"fleetspotter/internal/solver"
	"fleetspotter/internal/spotter"
	"fleetspotter/internal/store"
)

// env is everything a chain command needs: the session over the chain and
// roster files, its store, and the room syncer when collaboration is on.
type env struct {
	sess   *spotter.Session
	store  *store.Store
	syncer *collab.Syncer
}

func openEnv(ctx context.Context) (*env, error) {
	if chainFile == "" {
		return nil, errors.New("--chain is required")
	}
	if rosterFile == "" {
		return nil, errors.New("--roster is required")
	}

	raw, err := chain.LoadRaw(resolvePath(chainFile))
	if err != nil {
		return nil, err
	}
	roster, err := chain.LoadRoster(resolvePath(rosterFile))
	if err != nil {
		return nil, err
	}

	st, err := store.NewStore(resolvePath(cfg.Memory.DatabasePath))
	if err != nil {
		return nil, err
	}
	state, err := st.LoadOrNew(ctx, raw.ID)
	if err != nil {
		st.Close()
		return nil, err
	}

	opts, err := cfg.SolverOptions()
	if err != nil {
		st.Close()
		return nil, err
	}
	sess, err := spotter.NewSession(ctx, spotter.SessionConfig{
		Raw:         raw,
		Roster:      roster,
		State:       state,
		Engine:      solver.NewEngine(opts),
		Store:       st,
		Preferences: cfg.SpotterPreferences(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	e := &env{sess: sess, store: st}
	if cfg.IsCollaborationEnabled() {
		client := collab.NewClient(cfg.Collaboration.BaseURL, cfg.GetCollabTimeout())
		e.syncer = collab.NewSyncer(client, cfg.Collaboration.Room)
	}
	return e, nil
}

// sync merges the room into the session and pushes the result back. Failures
// leave the local state in place.
func (e *env) sync(ctx context.Context) error {
	if e.syncer == nil {
		return nil
	}
	if err := e.syncer.Sync(ctx, e.sess); err != nil {
		logging.Get(logging.CategoryCollab).Warn("room sync failed, continuing with local state: %v", err)
		return err
	}
	return nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		logging.Get(logging.CategoryStore).Error("failed to close store: %v", err)
	}
}

// publish pushes local changes to the room, if any.
func (e *env) publish(ctx context.Context) {
	if e.syncer == nil {
		return
	}
	if _, err := e.syncer.Push(ctx, e.sess.State()); err != nil {
		logging.Get(logging.CategoryCollab).Warn("push to room %s failed: %v", e.syncer.Room(), err)
	}
}

// mutate opens the environment, applies fn, publishes and renders.
func mutate(cmd *cobra.Command, fn func(ctx context.Context, sess *spotter.Session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	_ = e.sync(ctx)

	if err := fn(ctx, e.sess); err != nil {
		if spotter.IsRejected(err) {
			return fmt.Errorf("rejected: %w", err)
		}
		return err
	}
	e.publish(ctx)
	render(cmd, e.sess.Snapshot())
	return nil
}

func styles() ui.Styles {
	if plain {
		return ui.Plain()
	}
	return ui.DefaultStyles()
}

func render(cmd *cobra.Command, snap *solver.Solver) {
	f := ui.Filter{
		HideAlphaExceptions:   cfg.Preferences.HideAlphaExceptions,
		HideOneHandExceptions: cfg.Preferences.HideOneHandExceptions,
		HideNonOptimal:        cfg.Preferences.HideNonOptimal,
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderSolver(snap, f, styles()))
}
