package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// Client talks to a collaboration server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A zero timeout means 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchState returns the room's state for a chain.
func (c *Client) FetchState(ctx context.Context, room, chainID string) (types.SpotterState, error) {
	var st types.SpotterState
	if err := c.do(ctx, http.MethodGet, chainPath(room, chainID, ""), nil, &st); err != nil {
		return types.SpotterState{}, err
	}
	if st.ChainID == "" {
		st.ChainID = chainID
	}
	return st, nil
}

// PostSolve sends solves and returns the merged room state.
func (c *Client) PostSolve(ctx context.Context, room, chainID string, solves []types.Solve) (types.SpotterState, error) {
	var st types.SpotterState
	err := c.do(ctx, http.MethodPost, chainPath(room, chainID, "/solves"), SolvesPayload{Room: room, Solves: solves}, &st)
	return st, err
}

// PostTrial sends attempted crew, ignored traits and their marks and
// returns the merged room state.
func (c *Client) PostTrial(ctx context.Context, room, chainID string, body TrialsPayload) (types.SpotterState, error) {
	var st types.SpotterState
	body.Room = room
	err := c.do(ctx, http.MethodPost, chainPath(room, chainID, "/trials"), body, &st)
	return st, err
}

// NewRoom asks the server for a fresh room id.
func (c *Client) NewRoom(ctx context.Context) (string, error) {
	var out RoomPayload
	if err := c.do(ctx, http.MethodPost, "/rooms", nil, &out); err != nil {
		return "", err
	}
	return out.Room, nil
}

func chainPath(room, chainID, suffix string) string {
	return "/rooms/" + url.PathEscape(room) + "/chains/" + url.PathEscape(chainID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStaleCollaborationState, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.CollabDebug("%s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStaleCollaborationState, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorPayload
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			logging.CollabDebug("%s %s: unreadable error body: %v", method, path, err)
		}
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%w: %s %s: %s", ErrStaleCollaborationState, method, path, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrStaleCollaborationState, path, err)
	}
	return nil
}
