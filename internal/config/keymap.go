package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"that-night/internal/game"
)

// ErrBadKeymap is returned for a keymap that binds an unknown action or one
// key twice.
var ErrBadKeymap = errors.New("invalid keymap")

// LoadKeymap reads an action: key YAML mapping. Actions the file leaves out
// keep their default key; a missing file yields the defaults.
func LoadKeymap(path string) (game.Hotkeys, error) {
	h := game.DefaultHotkeys()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("reading keymap: %w", err)
	}
	return ParseKeymap(data)
}

// ParseKeymap decodes a YAML keymap over the default bindings.
func ParseKeymap(data []byte) (game.Hotkeys, error) {
	h := game.DefaultHotkeys()

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return h, fmt.Errorf("%w: %v", ErrBadKeymap, err)
	}

	for name, key := range raw {
		a, err := game.ParseAction(name)
		if err != nil || int(a) >= game.HotkeyCount {
			return game.DefaultHotkeys(), fmt.Errorf("%w: unknown action %q", ErrBadKeymap, name)
		}
		if key == "" {
			return game.DefaultHotkeys(), fmt.Errorf("%w: empty key for %s", ErrBadKeymap, name)
		}
		h[a] = key
	}

	seen := make(map[string]game.Action, game.HotkeyCount)
	for i, key := range h {
		if prev, dup := seen[key]; dup {
			return game.DefaultHotkeys(), fmt.Errorf("%w: %q bound to both %s and %s", ErrBadKeymap, key, prev, game.Action(i))
		}
		seen[key] = game.Action(i)
	}
	return h, nil
}

// SaveKeymap writes h as YAML.
func SaveKeymap(path string, h game.Hotkeys) error {
	raw := make(map[string]string, game.HotkeyCount)
	for i, key := range h {
		raw[game.Action(i).String()] = key
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
