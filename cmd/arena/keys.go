package main

import (
	"slices"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// holdWindow is how long a key stays down after its last terminal event.
// Terminals report presses and auto-repeats, never releases.
const holdWindow = 150 * time.Millisecond

// keyHold turns the terminal's press stream into press/release pairs.
type keyHold struct {
	last map[string]time.Time
}

func newKeyHold() *keyHold {
	return &keyHold{last: make(map[string]time.Time)}
}

// press records key at now and reports whether it just went down.
func (k *keyHold) press(key string, now time.Time) bool {
	_, held := k.last[key]
	k.last[key] = now
	return !held
}

// expire forgets and returns the keys not seen within holdWindow, sorted.
func (k *keyHold) expire(now time.Time) []string {
	var up []string
	for key, t := range k.last {
		if now.Sub(t) >= holdWindow {
			up = append(up, key)
		}
	}
	for _, key := range up {
		delete(k.last, key)
	}
	slices.Sort(up)
	return up
}

// keyNames maps a terminal key event to the key names used by hotkeys and
// screens. A ctrl modifier is reported as its own "ctrl" key, so ctrl+arrow
// shoots while aiming.
func keyNames(ev *tcell.EventKey) []string {
	var names []string
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		names = append(names, "ctrl")
	}

	switch ev.Key() {
	case tcell.KeyUp:
		names = append(names, "up")
	case tcell.KeyDown:
		names = append(names, "down")
	case tcell.KeyLeft:
		names = append(names, "left")
	case tcell.KeyRight:
		names = append(names, "right")
	case tcell.KeyEscape:
		names = append(names, "escape")
	case tcell.KeyEnter:
		names = append(names, "enter")
	case tcell.KeyTab:
		names = append(names, "tab")
	case tcell.KeyRune:
		r := unicode.ToLower(ev.Rune())
		if r == ' ' {
			names = append(names, "space")
		} else {
			names = append(names, string(r))
		}
	}
	return names
}
