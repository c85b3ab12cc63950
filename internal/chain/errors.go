package chain

import "errors"

var (
	// ErrMalformedChain marks raw data the decoder refuses to repair: slot
	// count mismatches, solves for missing nodes, unknown difficulty ids.
	ErrMalformedChain = errors.New("malformed chain")
)
