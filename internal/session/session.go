// Package session is the screen flow around a run: loading, the character
// menu, the one-off tutorial, play, key binding settings and defeat.
package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"that-night/internal/game"
	"that-night/internal/logger"
)

// Screen is one state of the flow.
type Screen uint8

const (
	ScreenLoading Screen = iota
	ScreenMenu
	ScreenTutorial
	ScreenPlaying
	ScreenSettings
	ScreenDefeat
)

// String returns the screen name
func (s Screen) String() string {
	switch s {
	case ScreenLoading:
		return "loading"
	case ScreenMenu:
		return "menu"
	case ScreenTutorial:
		return "tutorial"
	case ScreenPlaying:
		return "playing"
	case ScreenSettings:
		return "settings"
	case ScreenDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// Key names used by the screens themselves. Gameplay keys go through the
// hotkey table instead.
const (
	KeyUp       = "up"
	KeyDown     = "down"
	KeyConfirm  = "space"
	KeyBack     = "escape"
	KeySettings = "s"
)

// loadingFrames is how long the loading bar runs.
const loadingFrames = 60

// CharacterInfo is a menu entry.
type CharacterInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Bonuses     []string `json:"bonuses"`
	Requirement string   `json:"requirement"`
	Unlocked    bool     `json:"unlocked"`
}

var characters = [game.CharacterCount]CharacterInfo{
	game.CharacterJoshua:  {Title: "Olympic Runner", Bonuses: []string{"increased movement speed"}, Requirement: "Do nothing"},
	game.CharacterAnne:    {Title: "Devil Pyromaniac", Bonuses: []string{"start with 1 max ammo", "+3 max bombs", "+1 bomb radius", "-1s bomb fuse time"}, Requirement: "Achieve 1000 score using only bombs"},
	game.CharacterAndrew:  {Title: "Arms Dealer", Bonuses: []string{"+1 bullet damage", "+20% chance to not consume ammo"}, Requirement: "Kill 150 enemies in one game"},
	game.CharacterMatthew: {Title: "Hobbyist Engineer", Bonuses: []string{"doubled turret duration"}, Requirement: "Kill 50 enemies using only turrets in one game"},
	game.CharacterMegan:   {Title: "Scientist at NASA", Bonuses: []string{"+3 EMP range", "EMP immobilizes for half the duration"}, Requirement: "Achieve 3000 score"},
	game.CharacterLiShen:  {Title: "Monk of the Jade Temple", Bonuses: []string{"+50% max food", "increased luck"}, Requirement: "Achieve 1000 score without killing any monsters"},
}

// View is what a front end needs to draw the current screen.
type View struct {
	Screen     Screen          `json:"screen"`
	Frame      int             `json:"frame"`
	Progress   float64         `json:"progress,omitempty"`
	Characters []CharacterInfo `json:"characters,omitempty"`
	Cursor     int             `json:"cursor"`
	Hotkeys    game.Hotkeys    `json:"hotkeys"`
	Choosing   bool            `json:"choosing,omitempty"`
	Highscore  int             `json:"highscore"`
}

// Session owns the current screen and forwards play input to the engine.
type Session struct {
	mu sync.Mutex

	engine *game.Engine
	sinks  []game.EffectSink

	screen   Screen
	frame    int
	cursor   int // menu character or settings row
	choosing bool
	quit     bool
}

// New starts a session on the loading screen. Menu cues go to sinks.
func New(engine *game.Engine, sinks ...game.EffectSink) *Session {
	return &Session{engine: engine, sinks: sinks}
}

// Screen returns the current screen.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// Done reports whether the player asked to quit.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit
}

// Update advances one frame. While playing this is one engine step.
func (s *Session) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame++
	switch s.screen {
	case ScreenLoading:
		if s.frame > loadingFrames {
			s.enterMenu()
		}
	case ScreenPlaying:
		if s.engine.Step() == game.SignalTerminate {
			s.switchTo(ScreenDefeat)
		}
	}
}

// Pressed handles a key going down.
func (s *Session) Pressed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.screen {
	case ScreenMenu:
		s.menuPressed(key)
	case ScreenTutorial:
		s.tutorialPressed(key)
	case ScreenSettings:
		s.settingsPressed(key)
	case ScreenPlaying:
		s.playingPressed(key)
	case ScreenDefeat:
		if key == KeyBack || key == KeyConfirm {
			s.enterMenu()
		}
	}
}

// Released handles a key going up. Only play cares.
func (s *Session) Released(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen != ScreenPlaying {
		return
	}
	if a, ok := s.action(key); ok {
		s.engine.Release(a)
	}
}

func (s *Session) menuPressed(key string) {
	switch key {
	case KeyUp:
		if s.cursor > 0 {
			s.cursor--
			s.cue(game.SoundUiSwitch, 0.75)
		}
	case KeyDown:
		if s.cursor < int(game.CharacterCount)-1 {
			s.cursor++
			s.cue(game.SoundUiSwitch, 0.75)
		}
	case KeyConfirm:
		c := game.Character(s.cursor)
		rec := s.engine.Record()
		if !rec.Unlocked(c) {
			return
		}
		if err := s.engine.Reset(c); err != nil {
			logger.Log.WithError(err).WithField("character", c.String()).Error("starting run failed")
			return
		}
		if rec.Achievements[game.AchievementTutorial] {
			s.switchTo(ScreenPlaying)
		} else {
			s.switchTo(ScreenTutorial)
		}
	case KeySettings:
		s.cue(game.SoundUiSwitch, 0.75)
		s.cursor = 0
		s.choosing = false
		s.switchTo(ScreenSettings)
	case KeyBack:
		s.quit = true
	}
}

func (s *Session) tutorialPressed(key string) {
	switch key {
	case KeyConfirm:
		s.engine.GrantAchievement(game.AchievementTutorial)
		s.switchTo(ScreenPlaying)
	case KeyBack:
		s.enterMenu()
	}
}

func (s *Session) settingsPressed(key string) {
	if s.choosing {
		s.cue(game.SoundUiSwitch, 0.75)
		h := s.engine.Record().Hotkeys
		// a key already in use swaps with the row being bound
		for i, k := range h {
			if k == key {
				h[i] = h[s.cursor]
			}
		}
		h[s.cursor] = key
		s.engine.SetHotkeys(h)
		s.choosing = false
		return
	}

	switch key {
	case KeyUp:
		if s.cursor > 0 {
			s.cursor--
			s.cue(game.SoundUiSwitch, 0.75)
		}
	case KeyDown:
		if s.cursor < game.HotkeyCount-1 {
			s.cursor++
			s.cue(game.SoundUiSwitch, 0.75)
		}
	case KeyConfirm:
		s.cue(game.SoundUiSwitch, 0.75)
		s.choosing = true
	case KeyBack, KeySettings:
		s.cue(game.SoundUiSwitch, 0.75)
		s.enterMenu()
	}
}

func (s *Session) playingPressed(key string) {
	if key == KeyBack {
		s.enterMenu()
		return
	}
	if a, ok := s.action(key); ok {
		s.engine.Press(a)
	}
}

// action maps a key to a gameplay action. The confirm key drives the
// upgrade choice unless it is bound to something else.
func (s *Session) action(key string) (game.Action, bool) {
	if a, err := s.engine.Record().Hotkeys.Lookup(key); err == nil {
		return a, true
	}
	if key == KeyConfirm {
		return game.ActionConfirm, true
	}
	return 0, false
}

func (s *Session) enterMenu() {
	s.cursor = 0
	s.choosing = false
	s.switchTo(ScreenMenu)
	s.cue(game.SoundIntro, 0.2)
}

func (s *Session) switchTo(next Screen) {
	logger.Log.WithFields(logrus.Fields{"from": s.screen.String(), "to": next.String()}).Debug("screen change")
	s.screen = next
	s.frame = 0
}

func (s *Session) cue(snd game.Sound, gain float64) {
	fx := []game.Effect{{Kind: game.EffectSound, Sound: snd, Gain: gain}}
	for _, sink := range s.sinks {
		sink.HandleEffects(fx)
	}
}

// View returns the current screen state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.engine.Record()
	v := View{
		Screen:    s.screen,
		Frame:     s.frame,
		Cursor:    s.cursor,
		Hotkeys:   rec.Hotkeys,
		Choosing:  s.choosing,
		Highscore: rec.Highscore,
	}

	switch s.screen {
	case ScreenLoading:
		v.Progress = min(1, float64(s.frame)/loadingFrames)
	case ScreenMenu:
		v.Characters = make([]CharacterInfo, game.CharacterCount)
		for c := game.Character(0); c < game.CharacterCount; c++ {
			info := characters[c]
			info.Name = c.String()
			info.Unlocked = rec.Unlocked(c)
			v.Characters[c] = info
		}
	}
	return v
}
