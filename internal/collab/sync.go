package collab

import (
	"context"
	"fmt"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/spotter"
	"fleetspotter/internal/types"
)

// Syncer keeps one chain's local state in step with a room.
type Syncer struct {
	client *Client
	room   string
}

// NewSyncer binds a client to a room.
func NewSyncer(client *Client, room string) *Syncer {
	return &Syncer{client: client, room: room}
}

// Room returns the room id.
func (s *Syncer) Room() string { return s.room }

// Pull fetches the room state and reconciles it with local. The returned
// state is always usable: on ErrStaleCollaborationState or
// spotter.ErrDivergentState it is local, and the error says why.
func (s *Syncer) Pull(ctx context.Context, local types.SpotterState) (types.SpotterState, error) {
	remote, err := s.client.FetchState(ctx, s.room, local.ChainID)
	if err != nil {
		logging.Get(logging.CategoryCollab).Warn("room %s: using local state for %s: %v", s.room, local.ChainID, err)
		return local, err
	}
	merged, err := spotter.Reconcile(local, remote)
	if err != nil {
		return local, err
	}
	logging.AuditWithChain(local.ChainID).Transition(logging.AuditCollabPull, -1, s.room, nil)
	return merged, nil
}

// Push posts local solves and trials to the room and returns the merged
// room state.
func (s *Syncer) Push(ctx context.Context, local types.SpotterState) (types.SpotterState, error) {
	remote := local
	var err error
	if len(local.Solves) > 0 {
		if remote, err = s.client.PostSolve(ctx, s.room, local.ChainID, local.Solves); err != nil {
			return local, fmt.Errorf("post solves: %w", err)
		}
	}
	if trials := trialsOf(s.room, local); !trials.empty() {
		if remote, err = s.client.PostTrial(ctx, s.room, local.ChainID, trials); err != nil {
			return local, fmt.Errorf("post trials: %w", err)
		}
	}
	return remote, nil
}

// Sync pulls the room into sess and pushes the result back. A missing room
// state is not an error: the local state is pushed to seed it.
func (s *Syncer) Sync(ctx context.Context, sess *spotter.Session) error {
	local := sess.State()
	remote, err := s.client.FetchState(ctx, s.room, local.ChainID)
	if err != nil {
		logging.Collab("room %s has no usable state for %s, seeding from local: %v", s.room, local.ChainID, err)
	} else if err := sess.Merge(ctx, remote); err != nil {
		return err
	}
	_, err = s.Push(ctx, sess.State())
	return err
}
