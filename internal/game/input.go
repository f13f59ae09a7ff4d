package game

import (
	"fmt"

	"that-night/internal/game/spatial"
)

// Action is an abstract input intent. The first HotkeyCount actions are
// bindable; the rest are menu navigation.
type Action uint8

const (
	ActionUp Action = iota
	ActionLeft
	ActionDown
	ActionRight
	ActionShoot
	ActionBomb
	ActionTurret
	ActionEmp
	ActionRun
	ActionConfirm

	ActionCount
)

// HotkeyCount is the number of bindable actions.
const HotkeyCount = int(ActionConfirm)

var actionNames = [ActionCount]string{
	"up", "left", "down", "right", "shoot", "bomb", "turret", "emp", "run", "confirm",
}

// String returns the action name
func (a Action) String() string {
	if a < ActionCount {
		return actionNames[a]
	}
	return "unknown"
}

// ParseAction resolves an action name.
func ParseAction(name string) (Action, error) {
	for a := Action(0); a < ActionCount; a++ {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Direction reports the unit step of a movement action.
func (a Action) Direction() (spatial.Point, bool) {
	switch a {
	case ActionUp:
		return spatial.Point{X: 0, Y: -1}, true
	case ActionRight:
		return spatial.Point{X: 1, Y: 0}, true
	case ActionDown:
		return spatial.Point{X: 0, Y: 1}, true
	case ActionLeft:
		return spatial.Point{X: -1, Y: 0}, true
	}
	return spatial.Point{}, false
}

// Hotkeys holds the key name bound to each bindable action.
type Hotkeys [HotkeyCount]string

// DefaultHotkeys returns the stock binding table.
func DefaultHotkeys() Hotkeys {
	return Hotkeys{"up", "left", "down", "right", "ctrl", "q", "e", "r", "w"}
}

// Lookup returns the action bound to key.
func (h Hotkeys) Lookup(key string) (Action, error) {
	for i, k := range h {
		if k == key {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Controls tracks what the player is holding. Directions are kept in press
// order; the most recent one aims and moves.
type Controls struct {
	directions []Action
	held       [ActionCount]bool
}

func (c *Controls) press(a Action) (fresh bool) {
	if _, ok := a.Direction(); ok {
		for _, d := range c.directions {
			if d == a {
				return false
			}
		}
		c.directions = append(c.directions, a)
	}
	fresh = !c.held[a]
	c.held[a] = true
	return fresh
}

func (c *Controls) release(a Action) {
	for i, d := range c.directions {
		if d == a {
			c.directions = append(c.directions[:i], c.directions[i+1:]...)
			break
		}
	}
	c.held[a] = false
}

// Held reports whether a is currently down.
func (c *Controls) Held(a Action) bool {
	return c.held[a]
}

// Aim returns the most recently pressed direction still held.
func (c *Controls) Aim() (Action, bool) {
	if len(c.directions) == 0 {
		return 0, false
	}
	return c.directions[len(c.directions)-1], true
}
