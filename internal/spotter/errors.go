package spotter

import "errors"

var (
	// ErrNodeLocked rejects edits to infallible nodes, and new solves for
	// confirmed nodes until they are reset.
	ErrNodeLocked = errors.New("node is locked")
	// ErrUnknownNode is returned for node indexes outside the chain.
	ErrUnknownNode = errors.New("unknown node")
	// ErrSlotCount is returned when traits do not fit the node's hidden slots.
	ErrSlotCount = errors.New("trait count does not match hidden slots")
	// ErrUnknownCrew is returned for symbols missing from the roster.
	ErrUnknownCrew = errors.New("unknown crew")
	// ErrUnknownTrait is returned for traits missing from the chain's pool.
	ErrUnknownTrait = errors.New("unknown trait")
	// ErrCrewMismatch is returned when a crew cannot solve the node.
	ErrCrewMismatch = errors.New("crew does not match node")
	// ErrAmbiguousSolver is returned when a crew has several combos on the
	// node and none was chosen.
	ErrAmbiguousSolver = errors.New("crew matches several combos, choose one")
	// ErrIncomplete is returned when confirming a node with unknown slots.
	ErrIncomplete = errors.New("node is not fully resolved")
	// ErrDivergentState is returned when local and remote progress cannot be
	// ordered.
	ErrDivergentState = errors.New("data may be outdated, please refresh")
)
