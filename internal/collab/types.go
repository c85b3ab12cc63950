// Package collab shares spotter state between players through a small
// JSON-over-HTTP room service.
package collab

import (
	"errors"

	"fleetspotter/internal/types"
)

// ErrStaleCollaborationState means the remote state could not be fetched or
// does not exist. Callers fall back to their local state.
var ErrStaleCollaborationState = errors.New("collaboration state unavailable")

// SolvesPayload is the body of a post-solve request.
type SolvesPayload struct {
	Room   string        `json:"room"`
	Solves []types.Solve `json:"solves"`
}

// TrialsPayload is the body of a post-trial request. The marks carry
// removals so a forgotten crew or restored trait leaves the room too.
type TrialsPayload struct {
	Room          string       `json:"room"`
	AttemptedCrew []string     `json:"attemptedCrew"`
	IgnoredTraits []string     `json:"ignoredTraits,omitempty"`
	CrewMarks     []types.Mark `json:"crewMarks,omitempty"`
	TraitMarks    []types.Mark `json:"traitMarks,omitempty"`
}

// trialsOf extracts the trial fields of st.
func trialsOf(room string, st types.SpotterState) TrialsPayload {
	return TrialsPayload{
		Room:          room,
		AttemptedCrew: st.AttemptedCrew,
		IgnoredTraits: st.IgnoredTraits,
		CrewMarks:     st.CrewMarks,
		TraitMarks:    st.TraitMarks,
	}
}

func (p TrialsPayload) empty() bool {
	return len(p.AttemptedCrew) == 0 && len(p.IgnoredTraits) == 0 &&
		len(p.CrewMarks) == 0 && len(p.TraitMarks) == 0
}

// RoomPayload is returned when a room is created.
type RoomPayload struct {
	Room string `json:"room"`
}

type errorPayload struct {
	Error string `json:"error"`
}
