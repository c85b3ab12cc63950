package chain

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// ParseRaw reads a chain from JSON. Both the flat export shape
// ({id, difficulty_id, traits, nodes}) and the game's boss payload
// ({id, difficulty_id, combo: {traits, nodes}}) are accepted.
func ParseRaw(data []byte) (RawChain, error) {
	if !gjson.ValidBytes(data) {
		return RawChain{}, fmt.Errorf("%w: invalid JSON", ErrMalformedChain)
	}
	root := gjson.ParseBytes(data)

	body := root
	if combo := root.Get("combo"); combo.IsObject() {
		body = combo
	}

	raw := RawChain{
		ID:           firstString(root, "id", "symbol"),
		DifficultyID: int(firstResult(root, body, "difficulty_id").Int()),
		Traits:       stringArray(body.Get("traits")),
	}
	if raw.ID == "" {
		raw.ID = body.Get("id").String()
	}

	nodes := body.Get("nodes")
	if !nodes.IsArray() {
		return RawChain{}, fmt.Errorf("%w: no nodes array", ErrMalformedChain)
	}
	for _, n := range nodes.Array() {
		rn := RawNode{
			OpenTraits:   stringArray(n.Get("open_traits")),
			HiddenTraits: stringArray(n.Get("hidden_traits")),
		}
		if id := n.Get("unlocked_crew_archetype_id"); id.Exists() {
			rn.UnlockedCrewArchetypeID = int(id.Int())
		} else if id := n.Get("unlocked_character.archetype_id"); id.Exists() {
			rn.UnlockedCrewArchetypeID = int(id.Int())
		}
		raw.Nodes = append(raw.Nodes, rn)
	}
	return raw, nil
}

// LoadRaw reads and parses a chain file.
func LoadRaw(path string) (RawChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawChain{}, fmt.Errorf("failed to read chain: %w", err)
	}
	raw, err := ParseRaw(data)
	if err != nil {
		return RawChain{}, fmt.Errorf("%s: %w", path, err)
	}
	logging.Decode("loaded chain %s from %s: %d nodes, %d pool traits", raw.ID, path, len(raw.Nodes), len(raw.Traits))
	return raw, nil
}

// ParseRoster reads a crew roster. YAML and JSON are both accepted.
func ParseRoster(data []byte) ([]types.Crew, error) {
	var roster []types.Crew
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	for i, c := range roster {
		if c.Symbol == "" {
			return nil, fmt.Errorf("roster entry %d has no symbol", i)
		}
	}
	return roster, nil
}

// LoadRoster reads and parses a roster file.
func LoadRoster(path string) ([]types.Crew, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return ParseRoster(data)
}

func stringArray(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func firstResult(a, b gjson.Result, path string) gjson.Result {
	if v := a.Get(path); v.Exists() {
		return v
	}
	return b.Get(path)
}
