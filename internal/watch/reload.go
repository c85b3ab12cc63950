package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/spotter"
)

// SessionHandler returns a Handler that reloads the chain or roster file
// into sess, then calls after (if set) with the refreshed session.
func SessionHandler(sess *spotter.Session, chainPath, rosterPath string, after func(*spotter.Session)) (Handler, error) {
	chainAbs, err := absOrEmpty(chainPath)
	if err != nil {
		return nil, err
	}
	rosterAbs, err := absOrEmpty(rosterPath)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, path string) error {
		switch path {
		case chainAbs:
			raw, err := chain.LoadRaw(path)
			if err != nil {
				return err
			}
			if err := sess.Reload(ctx, &raw, nil); err != nil {
				return err
			}
		case rosterAbs:
			roster, err := chain.LoadRoster(path)
			if err != nil {
				return err
			}
			if err := sess.Reload(ctx, nil, roster); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected file %s", path)
		}
		if after != nil {
			after(sess)
		}
		return nil
	}, nil
}

func absOrEmpty(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(path)
}
