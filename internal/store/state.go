package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// ErrNotFound is returned when no state is stored for a key.
var ErrNotFound = errors.New("not found")

// ChainSummary describes one stored chain.
type ChainSummary struct {
	ChainID   string
	Solves    int
	Confirmed int
	PostedAt  time.Time
	UpdatedAt time.Time
}

// =============================================================================
// SPOTTER STATE
// =============================================================================

// SaveState stores or replaces the state for st.ChainID.
func (s *Store) SaveState(ctx context.Context, st types.SpotterState) error {
	if st.ChainID == "" {
		return errors.New("save state: empty chain id")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO spotter_state (chain_id, state_json, posted_at, updated_at, confirmed_count, solve_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain_id) DO UPDATE SET
			state_json = excluded.state_json,
			posted_at = excluded.posted_at,
			updated_at = excluded.updated_at,
			confirmed_count = excluded.confirmed_count,
			solve_count = excluded.solve_count
	`, st.ChainID, string(data), unixNano(st.PostedAt), time.Now().UnixNano(), st.ConfirmedCount(), st.ResolvedCount())
	if err != nil {
		return fmt.Errorf("failed to save state for %s: %w", st.ChainID, err)
	}
	logging.StoreDebug("saved state for chain %s (%d solves)", st.ChainID, st.ResolvedCount())
	return nil
}

// LoadState returns the stored state for chainID, or ErrNotFound.
func (s *Store) LoadState(ctx context.Context, chainID string) (types.SpotterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM spotter_state WHERE chain_id = ?`, chainID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SpotterState{}, fmt.Errorf("state for %s: %w", chainID, ErrNotFound)
	}
	if err != nil {
		return types.SpotterState{}, fmt.Errorf("failed to load state for %s: %w", chainID, err)
	}
	return decodeState(chainID, data)
}

// LoadOrNew returns the stored state or a fresh one for chainID.
func (s *Store) LoadOrNew(ctx context.Context, chainID string) (types.SpotterState, error) {
	st, err := s.LoadState(ctx, chainID)
	if errors.Is(err, ErrNotFound) {
		return types.NewSpotterState(chainID), nil
	}
	return st, err
}

// DeleteState removes the state for chainID. Deleting a missing chain is not
// an error.
func (s *Store) DeleteState(ctx context.Context, chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM spotter_state WHERE chain_id = ?`, chainID); err != nil {
		return fmt.Errorf("failed to delete state for %s: %w", chainID, err)
	}
	logging.StoreDebug("deleted state for chain %s", chainID)
	return nil
}

// ListChains summarizes every stored chain, most recently updated first.
func (s *Store) ListChains(ctx context.Context) ([]ChainSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT chain_id, solve_count, confirmed_count, posted_at, updated_at
		FROM spotter_state ORDER BY updated_at DESC, chain_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()

	var out []ChainSummary
	for rows.Next() {
		var cs ChainSummary
		var posted, updated int64
		if err := rows.Scan(&cs.ChainID, &cs.Solves, &cs.Confirmed, &posted, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan chain row: %w", err)
		}
		cs.PostedAt = fromUnixNano(posted)
		cs.UpdatedAt = fromUnixNano(updated)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// =============================================================================
// COLLABORATION ROOMS
// =============================================================================

// SaveRoomState stores the shared state of a chain in a room.
func (s *Store) SaveRoomState(ctx context.Context, room string, st types.SpotterState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode room state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collab_rooms (room, chain_id, state_json, posted_at, confirmed_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room, chain_id) DO UPDATE SET
			state_json = excluded.state_json,
			posted_at = excluded.posted_at,
			confirmed_count = excluded.confirmed_count
	`, room, st.ChainID, string(data), unixNano(st.PostedAt), st.ConfirmedCount())
	if err != nil {
		return fmt.Errorf("failed to save room %s chain %s: %w", room, st.ChainID, err)
	}
	return nil
}

// LoadRoomState returns the shared state of a chain in a room, or ErrNotFound.
func (s *Store) LoadRoomState(ctx context.Context, room, chainID string) (types.SpotterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT state_json FROM collab_rooms WHERE room = ? AND chain_id = ?
	`, room, chainID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SpotterState{}, fmt.Errorf("room %s chain %s: %w", room, chainID, ErrNotFound)
	}
	if err != nil {
		return types.SpotterState{}, fmt.Errorf("failed to load room %s chain %s: %w", room, chainID, err)
	}
	return decodeState(chainID, data)
}

func decodeState(chainID, data string) (types.SpotterState, error) {
	st := types.NewSpotterState(chainID)
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return types.SpotterState{}, fmt.Errorf("corrupt state for %s: %w", chainID, err)
	}
	if st.ChainID == "" {
		st.ChainID = chainID
	}
	if st.Solves == nil {
		st.Solves = []types.Solve{}
	}
	if st.AttemptedCrew == nil {
		st.AttemptedCrew = []string{}
	}
	if st.IgnoredTraits == nil {
		st.IgnoredTraits = []string{}
	}
	return st, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
