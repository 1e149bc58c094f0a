package bindings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	toml "github.com/pelletier/go-toml/v2"
)

// Format identifies the serialization format for shortcut configs.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Source describes where the bindings config was loaded from.
type Source struct {
	Path   string
	Format Format
}

// ActionID uniquely identifies a pane action.
type ActionID string

const (
	ActionDownload    ActionID = "download"
	ActionCopy        ActionID = "copy"
	ActionNextTab     ActionID = "next_tab"
	ActionPrevTab     ActionID = "prev_tab"
	ActionNextRequest ActionID = "next_request"
	ActionPrevRequest ActionID = "prev_request"
	ActionReload      ActionID = "reload"
	ActionFilter      ActionID = "filter"
	ActionQuit        ActionID = "quit"
)

type definition struct {
	id       ActionID
	defaults []string
}

var definitions = []definition{
	{id: ActionDownload, defaults: []string{"ctrl+s", "d"}},
	{id: ActionCopy, defaults: []string{"y"}},
	{id: ActionNextTab, defaults: []string{"tab", "l"}},
	{id: ActionPrevTab, defaults: []string{"shift+tab", "h"}},
	{id: ActionNextRequest, defaults: []string{"down", "j"}},
	{id: ActionPrevRequest, defaults: []string{"up", "k"}},
	{id: ActionReload, defaults: []string{"ctrl+r"}},
	{id: ActionFilter, defaults: []string{"/"}},
	{id: ActionQuit, defaults: []string{"q", "ctrl+c"}},
}

var definitionLookup = func() map[ActionID]definition {
	out := make(map[ActionID]definition, len(definitions))
	for _, def := range definitions {
		out[def.id] = def
	}
	return out
}()

// Map stores runtime key -> action lookups.
type Map struct {
	keys    map[string]ActionID
	actions map[ActionID][]string
}

// Load attempts to read bindings from bindings.toml/json in dir. Missing files fall back to defaults.
func Load(dir string) (*Map, Source, error) {
	candidates := []Source{
		{Path: filepath.Join(dir, "bindings.toml"), Format: FormatTOML},
		{Path: filepath.Join(dir, "bindings.json"), Format: FormatJSON},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				fmt.Errorf("read bindings %q: %w", candidate.Path, err),
			)
			continue
		}

		overrides, err := parseConfig(data, candidate.Format)
		if err != nil {
			return nil, Source{}, fmt.Errorf("parse bindings %q: %w", candidate.Path, err)
		}
		built, err := buildMap(overrides)
		if err != nil {
			return nil, Source{}, fmt.Errorf("apply bindings %q: %w", candidate.Path, err)
		}
		return built, candidate, nil
	}

	if accumulated != nil {
		return nil, Source{}, accumulated
	}

	built, err := buildMap(nil)
	if err != nil {
		return nil, Source{}, err
	}
	return built, Source{Path: candidates[0].Path, Format: FormatTOML}, nil
}

// DefaultMap builds the built-in bindings without consulting disk.
func DefaultMap() *Map {
	m, err := buildMap(nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the action bound to key, if any.
func (m *Map) Match(key string) (ActionID, bool) {
	if m == nil {
		return "", false
	}
	action, ok := m.keys[NormalizeKeyString(key)]
	return action, ok
}

// Keys returns a copy of the keys bound to action.
func (m *Map) Keys(action ActionID) []string {
	if m == nil {
		return nil
	}
	keys := m.actions[action]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

type configFile struct {
	Bindings map[string][]string `json:"bindings" toml:"bindings"`
}

func parseConfig(data []byte, format Format) (map[ActionID][]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var payload configFile
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if len(payload.Bindings) == 0 {
		return nil, nil
	}

	overrides := make(map[ActionID][]string, len(payload.Bindings))
	for key, specs := range payload.Bindings {
		def, ok := definitionLookup[ActionID(key)]
		if !ok {
			return nil, fmt.Errorf("unknown action %q", key)
		}
		steps := make([]string, 0, len(specs))
		for _, spec := range specs {
			step, err := normalizeStep(spec)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", key, err)
			}
			steps = append(steps, step)
		}
		overrides[def.id] = steps
	}
	return overrides, nil
}

func buildMap(overrides map[ActionID][]string) (*Map, error) {
	actions := make(map[ActionID][]string, len(definitions))
	for _, def := range definitions {
		actions[def.id] = append([]string(nil), def.defaults...)
	}
	for id, keys := range overrides {
		actions[id] = append([]string(nil), keys...)
	}

	keys := make(map[string]ActionID)
	for _, id := range actionIDs() {
		seen := make(map[string]struct{})
		for _, key := range actions[id] {
			if _, ok := seen[key]; ok {
				return nil, fmt.Errorf("action %s: duplicate binding %q", id, key)
			}
			seen[key] = struct{}{}
			if existing, ok := keys[key]; ok {
				return nil, fmt.Errorf("binding %q assigned to both %s and %s", key, existing, id)
			}
			keys[key] = id
		}
	}
	return &Map{keys: keys, actions: actions}, nil
}

func normalizeStep(raw string) (string, error) {
	if raw == " " {
		raw = "space"
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty key step")
	}
	if raw == "?" {
		raw = "shift+/"
	}

	runes := []rune(raw)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsLetter(r) && unicode.IsUpper(r) {
			return "shift+" + strings.ToLower(raw), nil
		}
		return strings.ToLower(raw), nil
	}

	if !strings.Contains(raw, "+") {
		return strings.ToLower(raw), nil
	}

	parts := strings.Split(raw, "+")
	var keyParts []string
	modSet := make(map[string]struct{})
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		switch lower {
		case "ctrl", "control":
			modSet["ctrl"] = struct{}{}
		case "alt", "option":
			modSet["alt"] = struct{}{}
		case "shift":
			modSet["shift"] = struct{}{}
		default:
			keyParts = append(keyParts, lower)
		}
	}
	if len(keyParts) == 0 {
		return "", fmt.Errorf("binding %q missing key", raw)
	}
	key := strings.Join(keyParts, "+")
	var mods []string
	for _, mod := range []string{"ctrl", "alt", "shift"} {
		if _, ok := modSet[mod]; ok {
			mods = append(mods, mod)
		}
	}
	if len(mods) == 0 {
		return key, nil
	}
	return strings.Join(append(mods, key), "+"), nil
}

// NormalizeKeyString converts runtime key strings into canonical form for lookup.
func NormalizeKeyString(raw string) string {
	normalized, err := normalizeStep(raw)
	if err != nil {
		return ""
	}
	return normalized
}

func actionIDs() []ActionID {
	ids := make([]ActionID, 0, len(definitions))
	for _, def := range definitions {
		ids = append(ids, def.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
